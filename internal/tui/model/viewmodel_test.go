package model

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeInbox implements the calls the view model makes. The embedded
// interface panics on anything else.
type fakeInbox struct {
	rpc.InboxClient

	status   rpc.StatusResponse
	convs    rpc.ConversationsResponse
	listReqs []rpc.ListConversationsRequest
	opened   []rpc.OpenConversationRequest
	stream   rpc.StreamResponse
	sent     []string
	sendErr  error
	deleted  []string
	feed     rpc.NotificationsResponse
	feedReqs []rpc.ListNotificationsRequest
	markErr  error
	events   []rpc.EventEnvelope
}

func (f *fakeInbox) GetStatus(context.Context, *rpc.Empty, ...grpc.CallOption) (*rpc.StatusResponse, error) {
	st := f.status
	return &st, nil
}

func (f *fakeInbox) ListConversations(_ context.Context, in *rpc.ListConversationsRequest, _ ...grpc.CallOption) (*rpc.ConversationsResponse, error) {
	f.listReqs = append(f.listReqs, *in)
	resp := f.convs
	return &resp, nil
}

func (f *fakeInbox) OpenConversation(_ context.Context, in *rpc.OpenConversationRequest, _ ...grpc.CallOption) (*rpc.StreamResponse, error) {
	f.opened = append(f.opened, *in)
	resp := f.stream
	return &resp, nil
}

func (f *fakeInbox) SendMessage(_ context.Context, in *rpc.SendMessageRequest, _ ...grpc.CallOption) (*rpc.MessageResponse, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, in.Content)
	return &rpc.MessageResponse{Message: gateway.Message{ID: "m9", ConversationID: "c9", SenderID: "me", Content: in.Content}}, nil
}

func (f *fakeInbox) DeleteMessage(_ context.Context, in *rpc.DeleteMessageRequest, _ ...grpc.CallOption) (*rpc.Ack, error) {
	f.deleted = append(f.deleted, in.MessageID)
	return &rpc.Ack{Success: true}, nil
}

func (f *fakeInbox) ListNotifications(_ context.Context, in *rpc.ListNotificationsRequest, _ ...grpc.CallOption) (*rpc.NotificationsResponse, error) {
	f.feedReqs = append(f.feedReqs, *in)
	resp := f.feed
	return &resp, nil
}

func (f *fakeInbox) MarkNotificationRead(context.Context, *rpc.NotificationRequest, ...grpc.CallOption) (*rpc.Ack, error) {
	if f.markErr != nil {
		return nil, f.markErr
	}
	return &rpc.Ack{Success: true}, nil
}

func (f *fakeInbox) WatchEvents(ctx context.Context, _ *rpc.WatchEventsRequest, _ ...grpc.CallOption) (grpc.ServerStreamingClient[rpc.EventEnvelope], error) {
	return &fakeEvents{ctx: ctx, events: f.events}, nil
}

type fakeEvents struct {
	grpc.ClientStream
	ctx    context.Context
	events []rpc.EventEnvelope
}

func (s *fakeEvents) Recv() (*rpc.EventEnvelope, error) {
	if len(s.events) == 0 {
		<-s.ctx.Done()
		return nil, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return &ev, nil
}

func TestOpenDraftAddressesUser(t *testing.T) {
	f := &fakeInbox{stream: rpc.StreamResponse{State: "LOADED"}}
	vm := NewViewModel(f)

	draft := gateway.Conversation{OtherUser: gateway.User{ID: "u2"}}
	if err := vm.OpenConversation(context.Background(), draft); err != nil {
		t.Fatal(err)
	}
	if err := vm.OpenConversation(context.Background(), gateway.Conversation{ID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if len(f.opened) != 2 || f.opened[0].UserID != "u2" || f.opened[0].ConversationID != "" || f.opened[1].ConversationID != "c1" {
		t.Errorf("opened = %+v", f.opened)
	}
	// Opening re-reads the daemon's list without a backend refresh.
	for _, req := range f.listReqs {
		if !req.Cached {
			t.Errorf("list request not cached: %+v", req)
		}
	}
}

func TestOpenReturnsLoadError(t *testing.T) {
	f := &fakeInbox{stream: rpc.StreamResponse{State: "ERROR", Error: "failed to load messages: boom"}}
	vm := NewViewModel(f)

	err := vm.OpenConversation(context.Background(), gateway.Conversation{ID: "c1"})
	if err == nil || err.Error() != "failed to load messages: boom" {
		t.Errorf("err = %v", err)
	}
	if vm.Stream().State != "ERROR" {
		t.Errorf("stream not stored: %+v", vm.Stream())
	}
}

func TestSendAppendsAndAdoptsDraftID(t *testing.T) {
	f := &fakeInbox{stream: rpc.StreamResponse{
		State:        "LOADED",
		Conversation: &gateway.Conversation{OtherUser: gateway.User{ID: "u2"}},
	}}
	vm := NewViewModel(f)
	ctx := context.Background()

	if err := vm.Send(ctx, "hi"); !errors.Is(err, ErrNoConversation) {
		t.Fatalf("send without conversation: err = %v", err)
	}
	if err := vm.OpenConversation(ctx, gateway.Conversation{OtherUser: gateway.User{ID: "u2"}}); err != nil {
		t.Fatal(err)
	}
	if err := vm.Send(ctx, "hi"); err != nil {
		t.Fatal(err)
	}

	s := vm.Stream()
	if len(s.Messages) != 1 || s.Messages[0].ID != "m9" {
		t.Errorf("messages = %+v", s.Messages)
	}
	if s.Conversation.ID != "c9" {
		t.Errorf("conversation id = %q", s.Conversation.ID)
	}
	if len(s.Deletable) != 1 || s.Deletable[0] != "m9" {
		t.Errorf("deletable = %v", s.Deletable)
	}
}

func TestSendFailureKeepsStream(t *testing.T) {
	f := &fakeInbox{
		stream:  rpc.StreamResponse{State: "LOADED", Conversation: &gateway.Conversation{ID: "c1"}},
		sendErr: status.Error(codes.InvalidArgument, "content must not be empty"),
	}
	vm := NewViewModel(f)
	ctx := context.Background()
	_ = vm.OpenConversation(ctx, gateway.Conversation{ID: "c1"})

	if err := vm.Send(ctx, " "); status.Code(err) != codes.InvalidArgument {
		t.Errorf("err = %v", err)
	}
	if len(vm.Stream().Messages) != 0 {
		t.Error("failed send appended a message")
	}
}

func TestDeleteMessageRemovesLocally(t *testing.T) {
	f := &fakeInbox{stream: rpc.StreamResponse{
		State:     "LOADED",
		Messages:  []gateway.Message{{ID: "m1"}, {ID: "m2"}},
		Deletable: []string{"m1", "m2"},
	}}
	vm := NewViewModel(f)
	ctx := context.Background()
	_ = vm.OpenConversation(ctx, gateway.Conversation{ID: "c1"})

	if err := vm.DeleteMessage(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	s := vm.Stream()
	if len(s.Messages) != 1 || s.Messages[0].ID != "m2" || len(s.Deletable) != 1 {
		t.Errorf("stream = %+v", s)
	}
	// The response stored before the delete is not mutated.
	if len(f.stream.Messages) != 2 {
		t.Error("shared slice mutated")
	}
}

func TestFeedActionRereadsFeedOnFailure(t *testing.T) {
	f := &fakeInbox{
		feed:    rpc.NotificationsResponse{Items: []gateway.Notification{{ID: "n1"}}},
		markErr: status.Error(codes.Unavailable, "backend down"),
		status:  rpc.StatusResponse{NotificationsUnread: 3},
	}
	vm := NewViewModel(f)

	err := vm.MarkNotificationRead(context.Background(), "n1")
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("err = %v", err)
	}
	if len(f.feedReqs) != 1 || !f.feedReqs[0].Cached {
		t.Errorf("feed requests = %+v", f.feedReqs)
	}
	if vm.Feed() == nil || vm.Status().NotificationsUnread != 3 {
		t.Error("feed or status not reloaded after failed action")
	}
}

func TestLoadNotificationsFirstPage(t *testing.T) {
	f := &fakeInbox{feed: rpc.NotificationsResponse{Error: "failed to load notifications: boom"}}
	vm := NewViewModel(f)

	if err := vm.LoadNotifications(context.Background(), true); err == nil {
		t.Error("feed error not returned")
	}
	if got := f.feedReqs[0]; got.Page != 1 || !got.UnreadOnly || got.Cached {
		t.Errorf("request = %+v", got)
	}
}

func TestWatchReloadsOnEvents(t *testing.T) {
	f := &fakeInbox{
		status: rpc.StatusResponse{MessagesUnread: 4},
		events: []rpc.EventEnvelope{
			{Kind: "unread.messages.changed"},
			{Kind: "conversations.changed"},
		},
	}
	vm := NewViewModel(f)
	ctx, cancel := context.WithCancel(context.Background())

	kinds := make(chan string, 2)
	done := make(chan struct{})
	go func() {
		vm.Watch(ctx, func(kind string) { kinds <- kind })
		close(done)
	}()

	for _, want := range []string{"unread.messages.changed", "conversations.changed"} {
		select {
		case got := <-kinds:
			if got != want {
				t.Errorf("kind = %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	if vm.Status() == nil || vm.Status().MessagesUnread != 4 {
		t.Errorf("status = %+v", vm.Status())
	}
	if len(f.listReqs) != 1 || !f.listReqs[0].Cached {
		t.Errorf("list requests = %+v", f.listReqs)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
