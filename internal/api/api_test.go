package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/recipebox/internal/auth"
	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/status"
	"github.com/matheus3301/recipebox/internal/store"
	"github.com/matheus3301/recipebox/internal/stream"
	intsync "github.com/matheus3301/recipebox/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// backend is a minimal in-memory rendition of the REST API.
type backend struct {
	mu            sync.Mutex
	conversations []gateway.Conversation
	messages      map[string][]gateway.Message
	notifications []gateway.Notification
	messageUnread int
	notifyUnread  int
	rateLimited   bool
	calls         []string
}

func newBackend() *backend {
	last := gateway.Message{ID: "m2", ConversationID: "c1", SenderID: "u1", ReceiverID: "me", Content: "hey"}
	return &backend{
		conversations: []gateway.Conversation{
			{ID: "c1", OtherUser: gateway.User{ID: "u1", Username: "alice"}, LastMessage: &last, UnreadCount: 1},
		},
		messages: map[string][]gateway.Message{
			"c1": {
				{ID: "m1", ConversationID: "c1", SenderID: "me", ReceiverID: "u1", Content: "hi"},
				last,
			},
		},
		notifications: []gateway.Notification{
			{ID: "n1", Type: gateway.NotificationLike, Message: "alice liked your recipe"},
			{ID: "n2", Type: gateway.NotificationFollow, Message: "bob followed you", IsRead: true},
		},
		messageUnread: 1,
		notifyUnread:  1,
	}
}

func envelope(w http.ResponseWriter, status int, data any, extra map[string]any) {
	body := map[string]any{"success": status < 300, "data": data}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		b.calls = append(b.calls, r.Method+" "+r.URL.Path)
	}
	mux.HandleFunc("GET /messages/conversations", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		envelope(w, 200, b.conversations, nil)
	})
	mux.HandleFunc("GET /messages/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		envelope(w, 200, b.messages[r.PathValue("id")], nil)
	})
	mux.HandleFunc("PUT /messages/conversations/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		b.messageUnread = 0
		envelope(w, 200, nil, nil)
	})
	mux.HandleFunc("POST /messages/send", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		var req gateway.SendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		convID := ""
		for _, c := range b.conversations {
			if c.OtherUser.ID == req.ReceiverID {
				convID = c.ID
			}
		}
		if convID == "" {
			convID = fmt.Sprintf("c%d", len(b.conversations)+1)
			b.conversations = append(b.conversations, gateway.Conversation{ID: convID, OtherUser: gateway.User{ID: req.ReceiverID}})
		}
		msg := gateway.Message{ID: fmt.Sprintf("m%d", len(b.calls)+10), ConversationID: convID, SenderID: "me", ReceiverID: req.ReceiverID, Content: req.Content, CreatedAt: time.Now()}
		b.messages[convID] = append(b.messages[convID], msg)
		envelope(w, 201, msg, nil)
	})
	mux.HandleFunc("DELETE /messages/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		if r.PathValue("id") == "m2" {
			envelope(w, 403, nil, map[string]any{"message": "not your message"})
			return
		}
		envelope(w, 200, nil, nil)
	})
	mux.HandleFunc("GET /messages/unread-count", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		if b.rateLimited {
			envelope(w, http.StatusTooManyRequests, nil, map[string]any{"message": "slow down"})
			return
		}
		envelope(w, 200, map[string]int{"count": b.messageUnread}, nil)
	})
	mux.HandleFunc("GET /notifications", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		envelope(w, 200, b.notifications, map[string]any{
			"pagination": gateway.Pagination{Page: 1, Limit: 20, Total: len(b.notifications), TotalPages: 1},
		})
	})
	mux.HandleFunc("GET /notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		if b.rateLimited {
			envelope(w, http.StatusTooManyRequests, nil, map[string]any{"message": "slow down"})
			return
		}
		envelope(w, 200, map[string]int{"unread_count": b.notifyUnread}, nil)
	})
	mux.HandleFunc("PUT /notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		b.notifyUnread = 0
		envelope(w, 200, nil, nil)
	})
	mux.HandleFunc("PUT /notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		b.notifyUnread = max(b.notifyUnread-1, 0)
		envelope(w, 200, nil, nil)
	})
	mux.HandleFunc("DELETE /notifications/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		record(r)
		envelope(w, 200, nil, nil)
	})
	return mux
}

type fixture struct {
	inbox   *Inbox
	machine *status.Machine
	engine  *intsync.Engine
	backend *backend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	be := newBackend()
	srv := httptest.NewServer(be.handler())
	t.Cleanup(srv.Close)

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	b := bus.New()
	machine := status.NewMachine(b)
	sess := auth.NewSession(db, auth.NewProviderRefresher(srv.URL+"/auth/refresh", "key", time.Second), logger)
	gw := gateway.New(srv.URL, sess, gateway.WithLogger(logger))
	engine := intsync.NewEngine(gw, machine, intsync.NewReconciler(db, logger), intsync.Options{
		MessagesInterval:      time.Hour,
		NotificationsInterval: time.Hour,
		PageSize:              20,
		Self:                  sess.UserID,
	}, b, logger)
	engine.Start(context.Background())
	t.Cleanup(engine.Stop)
	_ = machine.Transition(status.SignedOut)

	return &fixture{
		inbox: &Inbox{
			SessionService:      NewSessionService("test", machine, sess, engine, logger),
			ConversationService: NewConversationService(machine, engine, sess.UserID),
			MessageService:      NewMessageService(machine, engine, logger),
			NotificationService: NewNotificationService(machine, engine),
			SyncService:         NewSyncService(machine, engine, b, "test", logger),
		},
		machine: machine,
		engine:  engine,
		backend: be,
	}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if _, err := f.inbox.Login(context.Background(), &rpc.LoginRequest{AccessToken: "tok", RefreshToken: "ref", UserID: "me", ExpiresIn: 3600}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	// Let the first polls and the warm-up land before the test acts.
	deadline := time.Now().Add(2 * time.Second)
	for {
		cps, _ := f.engine.Checkpoints()
		polledMessages := cps["poll.messages.last_success"] != ""
		polledNotifications := cps["poll.notifications.last_success"] != ""
		if polledMessages && polledNotifications && f.engine.Feed.Pagination().TotalPages == 1 &&
			len(f.engine.Conversations.Snapshot().Conversations) > 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("initial sync did not complete")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func code(err error) codes.Code { return grpcstatus.Code(err) }

func TestSignedOutCallsAreUnauthenticated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.inbox.ListConversations(ctx, &rpc.ListConversationsRequest{}); code(err) != codes.Unauthenticated {
		t.Errorf("ListConversations code = %v", code(err))
	}
	if _, err := f.inbox.SendMessage(ctx, &rpc.SendMessageRequest{Content: "x"}); code(err) != codes.Unauthenticated {
		t.Errorf("SendMessage code = %v", code(err))
	}
	st, err := f.inbox.GetStatus(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != string(status.SignedOut) || st.Polling {
		t.Errorf("status = %+v", st)
	}
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)
	tests := []*rpc.LoginRequest{
		{UserID: "me"},
		{AccessToken: "tok"},
	}
	for _, req := range tests {
		if _, err := f.inbox.Login(context.Background(), req); code(err) != codes.InvalidArgument {
			t.Errorf("Login(%+v) code = %v", req, code(err))
		}
	}
}

func TestConversationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	st, _ := f.inbox.GetStatus(ctx, &rpc.Empty{})
	if st.Status != string(status.Active) || st.UserID != "me" || st.ExpiresAt.IsZero() {
		t.Errorf("status = %+v", st)
	}

	list, err := f.inbox.ListConversations(ctx, &rpc.ListConversationsRequest{})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list.Conversations) != 1 || list.Conversations[0].OtherUser.Username != "alice" {
		t.Fatalf("conversations = %+v", list.Conversations)
	}

	view, err := f.inbox.OpenConversation(ctx, &rpc.OpenConversationRequest{ConversationID: "c1"})
	if err != nil {
		t.Fatalf("OpenConversation: %v", err)
	}
	if view.State != string(stream.Loaded) || len(view.Messages) != 2 {
		t.Errorf("view = %+v", view)
	}
	if len(view.Deletable) != 1 || view.Deletable[0] != "m1" {
		t.Errorf("deletable = %v, want [m1]", view.Deletable)
	}

	sent, err := f.inbox.SendMessage(ctx, &rpc.SendMessageRequest{Content: "how are you?"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if sent.Message.ConversationID != "c1" {
		t.Errorf("sent = %+v", sent.Message)
	}

	if _, err := f.inbox.SendMessage(ctx, &rpc.SendMessageRequest{Content: "   "}); code(err) != codes.InvalidArgument {
		t.Errorf("blank send code = %v", code(err))
	}

	if _, err := f.inbox.DeleteMessage(ctx, &rpc.DeleteMessageRequest{MessageID: "m2"}); code(err) != codes.PermissionDenied {
		t.Errorf("delete other's message code = %v", code(err))
	}
	if _, err := f.inbox.DeleteMessage(ctx, &rpc.DeleteMessageRequest{MessageID: "m1"}); err != nil {
		t.Errorf("DeleteMessage: %v", err)
	}

	if _, err := f.inbox.OpenConversation(ctx, &rpc.OpenConversationRequest{ConversationID: "missing"}); code(err) != codes.NotFound {
		t.Errorf("open missing code = %v", code(err))
	}
}

func TestStartConversationDraftThenSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	view, err := f.inbox.StartConversation(ctx, &rpc.StartConversationRequest{UserID: "u9", Username: "carol"})
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if view.Conversation == nil || view.Conversation.ID != "" || len(view.Messages) != 0 {
		t.Fatalf("draft view = %+v", view)
	}

	f.backend.mu.Lock()
	f.backend.calls = nil
	f.backend.mu.Unlock()

	sent, err := f.inbox.SendMessage(ctx, &rpc.SendMessageRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	f.backend.mu.Lock()
	calls := append([]string(nil), f.backend.calls...)
	f.backend.mu.Unlock()
	var sends int
	for _, c := range calls {
		if strings.HasPrefix(c, "GET /messages/conversations/") {
			t.Errorf("draft send fetched messages: %v", calls)
		}
		if c == "POST /messages/send" {
			sends++
		}
	}
	if sends != 1 {
		t.Errorf("calls = %v, want one send", calls)
	}

	list, _ := f.inbox.ListConversations(ctx, &rpc.ListConversationsRequest{Cached: true})
	var found bool
	for _, c := range list.Conversations {
		if c.OtherUser.ID == "u9" {
			found = c.ID == sent.Message.ConversationID
		}
	}
	if !found {
		t.Errorf("draft not materialized: %+v", list.Conversations)
	}

	if _, err := f.inbox.StartConversation(ctx, &rpc.StartConversationRequest{UserID: "me"}); code(err) != codes.InvalidArgument {
		t.Errorf("self conversation code = %v", code(err))
	}
}

func TestNotificationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	unread, err := f.inbox.RefreshUnread(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatalf("RefreshUnread: %v", err)
	}
	if unread.Notifications != 1 || unread.Messages != 1 {
		t.Errorf("unread = %+v", unread)
	}

	feed, err := f.inbox.ListNotifications(ctx, &rpc.ListNotificationsRequest{})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(feed.Items) != 2 || feed.HasMore {
		t.Errorf("feed = %+v", feed)
	}

	more, err := f.inbox.LoadMoreNotifications(ctx, &rpc.Empty{})
	if err != nil || more.Fetched {
		t.Errorf("LoadMore = %+v, %v", more, err)
	}

	if _, err := f.inbox.MarkNotificationRead(ctx, &rpc.NotificationRequest{ID: "n1"}); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	st, _ := f.inbox.GetStatus(ctx, &rpc.Empty{})
	if st.NotificationsUnread != 0 {
		t.Errorf("notifications unread = %d, want 0", st.NotificationsUnread)
	}

	if _, err := f.inbox.MarkAllNotificationsRead(ctx, &rpc.Empty{}); err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	if _, err := f.inbox.DeleteNotification(ctx, &rpc.NotificationRequest{ID: "n2"}); err != nil {
		t.Fatalf("DeleteNotification: %v", err)
	}
	if _, err := f.inbox.DeleteNotification(ctx, &rpc.NotificationRequest{}); code(err) != codes.InvalidArgument {
		t.Errorf("empty id code = %v", code(err))
	}

	feed, _ = f.inbox.ListNotifications(ctx, &rpc.ListNotificationsRequest{Cached: true})
	if len(feed.Items) != 1 || !feed.Items[0].IsRead {
		t.Errorf("feed after actions = %+v", feed.Items)
	}
}

func TestLogoutStopsPolling(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	if _, err := f.inbox.Logout(context.Background(), &rpc.Empty{}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if f.machine.Current() != status.SignedOut {
		t.Errorf("status = %s", f.machine.Current())
	}
	deadline := time.Now().Add(time.Second)
	for {
		st, _ := f.inbox.GetStatus(context.Background(), &rpc.Empty{})
		if !st.Polling {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pollers still running after logout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRateLimitedUnreadRefreshIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t)

	f.backend.mu.Lock()
	f.backend.rateLimited = true
	f.backend.mu.Unlock()

	unread, err := f.inbox.RefreshUnread(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatalf("RefreshUnread: %v", err)
	}
	if unread.Messages != 1 || unread.Notifications != 1 {
		t.Errorf("unread = %+v, want previous counts 1/1", unread)
	}

	st, err := f.inbox.GetStatus(ctx, &rpc.Empty{})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"poll.messages.last_error", "poll.notifications.last_error"} {
		if v := st.Checkpoints[key]; v != "" {
			t.Errorf("%s = %q, want rate limit unrecorded", key, v)
		}
	}
	if _, ok := st.LastPolled["messages"]; !ok {
		t.Errorf("LastPolled = %v, want messages entry", st.LastPolled)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{gateway.ErrLoginRequired, codes.Unauthenticated},
		{fmt.Errorf("x: %w", auth.ErrNoSession), codes.Unauthenticated},
		{&stream.ValidationError{Reason: "empty"}, codes.InvalidArgument},
		{stream.ErrNoConversation, codes.FailedPrecondition},
		{&gateway.APIError{Status: 404}, codes.NotFound},
		{&gateway.APIError{Status: 403}, codes.PermissionDenied},
		{&gateway.APIError{Status: 429}, codes.ResourceExhausted},
		{&gateway.APIError{Status: 422}, codes.InvalidArgument},
		{&gateway.APIError{Status: 503}, codes.Unavailable},
		{&url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}, codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		if got := codeOf(tt.err); got != tt.want {
			t.Errorf("codeOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
