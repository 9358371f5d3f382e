// Package model caches what the TUI shows and talks to the daemon.
package model

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/rpc"
)

// ErrNoConversation is returned by message actions when no conversation is
// open.
var ErrNoConversation = errors.New("no conversation open")

// ViewModel caches daemon state and signals UI refreshes. Methods block on
// daemon calls and are run off the UI goroutine.
type ViewModel struct {
	mu sync.RWMutex

	inbox         rpc.InboxClient
	status        *rpc.StatusResponse
	conversations []gateway.Conversation
	selected      string
	stream        *rpc.StreamResponse
	feed          *rpc.NotificationsResponse

	refreshCh chan struct{}
}

// NewViewModel creates a view model backed by the daemon client.
func NewViewModel(inbox rpc.InboxClient) *ViewModel {
	return &ViewModel{
		inbox:     inbox,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadStatus fetches the session status and unread counts. It does not hit
// the backend.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.inbox.GetStatus(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// RefreshUnread asks the daemon to re-fetch both unread counts.
func (vm *ViewModel) RefreshUnread(ctx context.Context) error {
	resp, err := vm.inbox.RefreshUnread(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	if vm.status != nil {
		st := *vm.status
		st.MessagesUnread, st.NotificationsUnread = resp.Messages, resp.Notifications
		vm.status = &st
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Logout signs the daemon out.
func (vm *ViewModel) Logout(ctx context.Context) error {
	if _, err := vm.inbox.Logout(ctx, &rpc.Empty{}); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.conversations, vm.selected, vm.stream, vm.feed = nil, "", nil, nil
	vm.mu.Unlock()
	return vm.LoadStatus(ctx)
}

// LoadConversations fetches the conversation list. Cached reads the
// daemon's list without a backend call. A refresh failure keeps the
// previous list and is returned.
func (vm *ViewModel) LoadConversations(ctx context.Context, cached bool) error {
	resp, err := vm.inbox.ListConversations(ctx, &rpc.ListConversationsRequest{Cached: cached})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.conversations = resp.Conversations
	vm.selected = resp.Selected
	vm.mu.Unlock()
	vm.signalRefresh()
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

// StartConversation finds or drafts the conversation with a user and opens
// it.
func (vm *ViewModel) StartConversation(ctx context.Context, userID, username string) error {
	resp, err := vm.inbox.StartConversation(ctx, &rpc.StartConversationRequest{UserID: userID, Username: username})
	if err != nil {
		return err
	}
	return vm.adoptStream(ctx, resp)
}

// OpenConversation opens conv. Drafts are addressed by the other user.
func (vm *ViewModel) OpenConversation(ctx context.Context, conv gateway.Conversation) error {
	req := &rpc.OpenConversationRequest{ConversationID: conv.ID}
	if conv.IsDraft() {
		req = &rpc.OpenConversationRequest{UserID: conv.OtherUser.ID}
	}
	resp, err := vm.inbox.OpenConversation(ctx, req)
	if err != nil {
		return err
	}
	return vm.adoptStream(ctx, resp)
}

// Retry reloads the open conversation.
func (vm *ViewModel) Retry(ctx context.Context) error {
	resp, err := vm.inbox.RetryMessages(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	return vm.adoptStream(ctx, resp)
}

// adoptStream stores a stream response, then refreshes the cached list
// and badges that opening a conversation changes.
func (vm *ViewModel) adoptStream(ctx context.Context, resp *rpc.StreamResponse) error {
	vm.mu.Lock()
	vm.stream = resp
	vm.mu.Unlock()
	vm.signalRefresh()

	_ = vm.LoadConversations(ctx, true)
	_ = vm.LoadStatus(ctx)
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

// Send posts text to the open conversation.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	if vm.Stream() == nil {
		return ErrNoConversation
	}
	resp, err := vm.inbox.SendMessage(ctx, &rpc.SendMessageRequest{Content: text})
	if err != nil {
		return err
	}

	vm.mu.Lock()
	if vm.stream != nil {
		st := *vm.stream
		st.Messages = append(append([]gateway.Message(nil), st.Messages...), resp.Message)
		st.Deletable = append(append([]string(nil), st.Deletable...), resp.Message.ID)
		if st.Conversation != nil && st.Conversation.IsDraft() {
			conv := *st.Conversation
			conv.ID = resp.Message.ConversationID
			st.Conversation = &conv
		}
		vm.stream = &st
	}
	vm.mu.Unlock()
	vm.signalRefresh()

	return vm.LoadConversations(ctx, true)
}

// DeleteMessage deletes one of the user's messages from the open
// conversation.
func (vm *ViewModel) DeleteMessage(ctx context.Context, id string) error {
	if _, err := vm.inbox.DeleteMessage(ctx, &rpc.DeleteMessageRequest{MessageID: id}); err != nil {
		return err
	}
	vm.mu.Lock()
	if vm.stream != nil {
		st := *vm.stream
		st.Messages = without(st.Messages, func(m gateway.Message) bool { return m.ID == id })
		st.Deletable = without(st.Deletable, func(d string) bool { return d == id })
		vm.stream = &st
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadNotifications fetches the first notification page.
func (vm *ViewModel) LoadNotifications(ctx context.Context, unreadOnly bool) error {
	return vm.adoptFeed(vm.inbox.ListNotifications(ctx, &rpc.ListNotificationsRequest{Page: 1, UnreadOnly: unreadOnly}))
}

// LoadMoreNotifications appends the next page if there is one.
func (vm *ViewModel) LoadMoreNotifications(ctx context.Context) error {
	return vm.adoptFeed(vm.inbox.LoadMoreNotifications(ctx, &rpc.Empty{}))
}

// MarkNotificationRead marks one notification read.
func (vm *ViewModel) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := vm.inbox.MarkNotificationRead(ctx, &rpc.NotificationRequest{ID: id})
	return vm.afterFeedAction(ctx, err)
}

// MarkAllNotificationsRead marks the whole feed read.
func (vm *ViewModel) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := vm.inbox.MarkAllNotificationsRead(ctx, &rpc.Empty{})
	return vm.afterFeedAction(ctx, err)
}

// DeleteNotification deletes one notification.
func (vm *ViewModel) DeleteNotification(ctx context.Context, id string) error {
	_, err := vm.inbox.DeleteNotification(ctx, &rpc.NotificationRequest{ID: id})
	return vm.afterFeedAction(ctx, err)
}

// afterFeedAction re-reads the daemon's feed and badges. Both are updated
// or rolled back by the daemon whether or not the action succeeded.
func (vm *ViewModel) afterFeedAction(ctx context.Context, actionErr error) error {
	_ = vm.adoptFeed(vm.inbox.ListNotifications(ctx, &rpc.ListNotificationsRequest{Cached: true}))
	_ = vm.LoadStatus(ctx)
	return actionErr
}

func (vm *ViewModel) adoptFeed(resp *rpc.NotificationsResponse, err error) error {
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.feed = resp
	vm.mu.Unlock()
	vm.signalRefresh()
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

// Watch follows daemon events until ctx is done, reconnecting after
// stream errors. onEvent runs after the caches an event affects are
// reloaded.
func (vm *ViewModel) Watch(ctx context.Context, onEvent func(kind string)) {
	for ctx.Err() == nil {
		err := vm.watchOnce(ctx, onEvent)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (vm *ViewModel) watchOnce(ctx context.Context, onEvent func(kind string)) error {
	stream, err := vm.inbox.WatchEvents(ctx, &rpc.WatchEventsRequest{})
	if err != nil {
		return err
	}
	for {
		ev, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case strings.HasPrefix(ev.Kind, "unread."), strings.HasPrefix(ev.Kind, "session."):
			_ = vm.LoadStatus(ctx)
		case strings.HasPrefix(ev.Kind, "conversations."):
			_ = vm.LoadConversations(ctx, true)
		case strings.HasPrefix(ev.Kind, "notifications.") && vm.Feed() != nil:
			_ = vm.adoptFeed(vm.inbox.ListNotifications(ctx, &rpc.ListNotificationsRequest{Cached: true}))
		}
		if onEvent != nil {
			onEvent(ev.Kind)
		}
	}
}

// Status returns the last fetched status, or nil.
func (vm *ViewModel) Status() *rpc.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Conversations returns the cached conversation list and the selected
// conversation's other user id.
func (vm *ViewModel) Conversations() ([]gateway.Conversation, string) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.conversations, vm.selected
}

// Stream returns the open conversation view, or nil.
func (vm *ViewModel) Stream() *rpc.StreamResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.stream
}

// Feed returns the loaded notification feed, or nil.
func (vm *ViewModel) Feed() *rpc.NotificationsResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.feed
}

func without[T any](items []T, drop func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !drop(it) {
			out = append(out, it)
		}
	}
	return out
}
