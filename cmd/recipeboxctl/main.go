package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/recipebox/internal/config"
	"github.com/matheus3301/recipebox/internal/lock"
	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/session"
	"github.com/matheus3301/recipebox/internal/tui/client"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		fail(err)
	}
	sessionName := session.Resolve(*sessionFlag, cfg)
	if err := session.ValidateName(sessionName); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "sessions" {
		cmdSessions(*jsonFlag)
		return
	}

	socketPath := session.SocketPath(sessionName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := &command{ctx: ctx, inbox: c.Inbox, json: *jsonFlag}
	if err := cmd.run(args[0], args[1:]); err != nil {
		fail(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: recipeboxctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                          Show session status")
	fmt.Fprintln(os.Stderr, "  login --access-token T --refresh-token R --user-id U [--expires-in S]")
	fmt.Fprintln(os.Stderr, "  logout                          Sign out and stop polling")
	fmt.Fprintln(os.Stderr, "  unread                          Refresh and show unread counts")
	fmt.Fprintln(os.Stderr, "  conversations                   List conversations")
	fmt.Fprintln(os.Stderr, "  open <conversation-id>          Open a conversation")
	fmt.Fprintln(os.Stderr, "  retry                           Reload the open conversation")
	fmt.Fprintln(os.Stderr, "  chat <user-id> [username]       Find or start a conversation")
	fmt.Fprintln(os.Stderr, "  send <text>                     Send to the open conversation")
	fmt.Fprintln(os.Stderr, "  delete-message <id>             Delete one of your messages")
	fmt.Fprintln(os.Stderr, "  notifications [--unread]        List notifications")
	fmt.Fprintln(os.Stderr, "  more                            Load the next notification page")
	fmt.Fprintln(os.Stderr, "  read <id>                       Mark a notification read")
	fmt.Fprintln(os.Stderr, "  read-all                        Mark every notification read")
	fmt.Fprintln(os.Stderr, "  delete-notification <id>        Delete a notification")
	fmt.Fprintln(os.Stderr, "  sessions                        List known sessions")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

type command struct {
	ctx   context.Context
	inbox rpc.InboxClient
	json  bool
}

func (c *command) run(name string, args []string) error {
	switch name {
	case "status":
		return c.status()
	case "login":
		return c.login(args)
	case "logout":
		return c.ack(c.inbox.Logout(c.ctx, &rpc.Empty{}))
	case "unread":
		return c.unread()
	case "conversations":
		return c.conversations()
	case "open":
		if len(args) != 1 {
			return fmt.Errorf("usage: recipeboxctl open <conversation-id>")
		}
		return c.stream(c.inbox.OpenConversation(c.ctx, &rpc.OpenConversationRequest{ConversationID: args[0]}))
	case "retry":
		return c.stream(c.inbox.RetryMessages(c.ctx, &rpc.Empty{}))
	case "chat":
		if len(args) < 1 {
			return fmt.Errorf("usage: recipeboxctl chat <user-id> [username]")
		}
		req := &rpc.StartConversationRequest{UserID: args[0]}
		if len(args) > 1 {
			req.Username = args[1]
		}
		return c.stream(c.inbox.StartConversation(c.ctx, req))
	case "send":
		if len(args) == 0 {
			return fmt.Errorf("usage: recipeboxctl send <text>")
		}
		return c.send(strings.Join(args, " "))
	case "delete-message":
		if len(args) != 1 {
			return fmt.Errorf("usage: recipeboxctl delete-message <id>")
		}
		return c.ack(c.inbox.DeleteMessage(c.ctx, &rpc.DeleteMessageRequest{MessageID: args[0]}))
	case "notifications":
		fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
		unreadOnly := fs.Bool("unread", false, "only unread notifications")
		page := fs.Int("page", 1, "page number")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return c.feed(c.inbox.ListNotifications(c.ctx, &rpc.ListNotificationsRequest{Page: *page, UnreadOnly: *unreadOnly}))
	case "more":
		return c.feed(c.inbox.LoadMoreNotifications(c.ctx, &rpc.Empty{}))
	case "read":
		if len(args) != 1 {
			return fmt.Errorf("usage: recipeboxctl read <id>")
		}
		return c.ack(c.inbox.MarkNotificationRead(c.ctx, &rpc.NotificationRequest{ID: args[0]}))
	case "read-all":
		return c.ack(c.inbox.MarkAllNotificationsRead(c.ctx, &rpc.Empty{}))
	case "delete-notification":
		if len(args) != 1 {
			return fmt.Errorf("usage: recipeboxctl delete-notification <id>")
		}
		return c.ack(c.inbox.DeleteNotification(c.ctx, &rpc.NotificationRequest{ID: args[0]}))
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", name)
	}
}

func (c *command) status() error {
	resp, err := c.inbox.GetStatus(c.ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	if c.json {
		outputJSON(resp)
		return nil
	}
	fmt.Printf("Session: %s\n", resp.Session)
	fmt.Printf("Status:  %s\n", resp.Status)
	fmt.Printf("Uptime:  %dms\n", resp.UptimeMs)
	if resp.UserID != "" {
		fmt.Printf("User:    %s\n", resp.UserID)
	}
	fmt.Printf("Polling: %v\n", resp.Polling)
	fmt.Printf("Unread:  %d messages, %d notifications\n", resp.MessagesUnread, resp.NotificationsUnread)
	for _, name := range []string{"messages", "notifications"} {
		if ts, ok := resp.LastPolled[name]; ok {
			fmt.Printf("Polled:  %s at %s\n", name, ts.Local().Format(time.DateTime))
		}
	}
	return nil
}

func (c *command) login(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	access := fs.String("access-token", "", "provider access token")
	refresh := fs.String("refresh-token", "", "provider refresh token")
	user := fs.String("user-id", "", "user id the tokens belong to")
	expires := fs.Int64("expires-in", 0, "access token lifetime in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.ack(c.inbox.Login(c.ctx, &rpc.LoginRequest{
		AccessToken:  *access,
		RefreshToken: *refresh,
		UserID:       *user,
		ExpiresIn:    *expires,
	}))
}

func (c *command) unread() error {
	resp, err := c.inbox.RefreshUnread(c.ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	if c.json {
		outputJSON(resp)
		return nil
	}
	fmt.Printf("Messages:      %d\n", resp.Messages)
	fmt.Printf("Notifications: %d\n", resp.Notifications)
	return nil
}

func (c *command) conversations() error {
	resp, err := c.inbox.ListConversations(c.ctx, &rpc.ListConversationsRequest{})
	if err != nil {
		return err
	}
	if c.json {
		outputJSON(resp)
		return nil
	}
	if resp.Error != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", resp.Error)
	}
	if len(resp.Conversations) == 0 {
		fmt.Println("No conversations.")
		return nil
	}
	for _, conv := range resp.Conversations {
		id := conv.ID
		if conv.IsDraft() {
			id = "(draft)"
		}
		last := ""
		if conv.LastMessage != nil {
			last = conv.LastMessage.Content
		}
		fmt.Printf("%-38s %-20s %3d  %s\n", id, conv.OtherUser.Username, conv.UnreadCount, last)
	}
	return nil
}

func (c *command) stream(resp *rpc.StreamResponse, err error) error {
	if err != nil {
		return err
	}
	if c.json {
		outputJSON(resp)
		return nil
	}
	if resp.Conversation != nil {
		fmt.Printf("Conversation with %s (%s)\n", resp.Conversation.OtherUser.Username, resp.State)
	}
	if resp.Error != "" {
		return fmt.Errorf("%s (run `recipeboxctl retry`)", resp.Error)
	}
	for _, m := range resp.Messages {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("01-02 15:04"), m.SenderID, m.Content)
	}
	return nil
}

func (c *command) send(text string) error {
	resp, err := c.inbox.SendMessage(c.ctx, &rpc.SendMessageRequest{Content: text})
	if err != nil {
		return err
	}
	if c.json {
		outputJSON(resp)
		return nil
	}
	fmt.Printf("Sent %s\n", resp.Message.ID)
	return nil
}

func (c *command) feed(resp *rpc.NotificationsResponse, err error) error {
	if err != nil {
		return err
	}
	if c.json {
		outputJSON(resp)
		return nil
	}
	if resp.Error != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", resp.Error)
	}
	for _, n := range resp.Items {
		mark := " "
		if !n.IsRead {
			mark = "*"
		}
		fmt.Printf("%s %-38s %-20s %s\n", mark, n.ID, n.Type, n.Message)
	}
	p := resp.Pagination
	fmt.Printf("page %d/%d, %d total\n", p.Page, p.TotalPages, p.Total)
	return nil
}

func (c *command) ack(resp *rpc.Ack, err error) error {
	if err != nil {
		return err
	}
	if c.json {
		outputJSON(resp)
		return nil
	}
	fmt.Printf("Success: %v", resp.Success)
	if resp.Message != "" {
		fmt.Printf(" - %s", resp.Message)
	}
	fmt.Println()
	return nil
}

func cmdSessions(jsonOut bool) {
	names, err := session.List()
	if err != nil {
		fail(err)
	}
	type entry struct {
		Name          string `json:"name"`
		Path          string `json:"path"`
		DaemonRunning bool   `json:"daemon_running"`
	}
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, entry{
			Name:          name,
			Path:          session.Dir(name),
			DaemonRunning: lock.Holder(session.Dir(name)) != 0,
		})
	}
	if jsonOut {
		outputJSON(entries)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No sessions found.")
		return
	}
	for _, s := range entries {
		running := "stopped"
		if s.DaemonRunning {
			running = "running"
		}
		fmt.Printf("%-20s %s (%s)\n", s.Name, s.Path, running)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
