package conversations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/gateway"
)

type mockLister struct {
	mu    sync.Mutex
	convs []gateway.Conversation
	err   error
	calls int
}

func (m *mockLister) ListConversations(context.Context) ([]gateway.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]gateway.Conversation(nil), m.convs...), nil
}

func (m *mockLister) set(convs []gateway.Conversation, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs, m.err = convs, err
}

func (m *mockLister) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type recordingCounter struct {
	decrements []int
}

func (r *recordingCounter) Decrement(n int) { r.decrements = append(r.decrements, n) }

func conv(id, userID string, unread int) gateway.Conversation {
	return gateway.Conversation{
		ID:          id,
		OtherUser:   gateway.User{ID: userID, Username: "user-" + userID},
		UnreadCount: unread,
		LastMessage: &gateway.Message{ID: "m-" + id, ConversationID: id, Content: "hi"},
	}
}

func ids(convs []gateway.Conversation) []string {
	out := make([]string, len(convs))
	for i, c := range convs {
		out[i] = c.ID + "/" + c.OtherUser.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListKeepsServerOrder(t *testing.T) {
	api := &mockLister{convs: []gateway.Conversation{conv("c2", "u2", 0), conv("c1", "u1", 3), conv("c3", "u3", 0)}}
	s := New(api, nil, nil, nil)

	if err := s.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
	got := ids(s.Snapshot().Conversations)
	want := []string{"c2/u2", "c1/u1", "c3/u3"}
	if !equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestListFailureKeepsCache(t *testing.T) {
	api := &mockLister{convs: []gateway.Conversation{conv("c1", "u1", 0)}}
	s := New(api, nil, nil, nil)
	_ = s.List(context.Background())

	api.set(nil, errors.New("boom"))
	if err := s.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := s.Snapshot()
	if len(snap.Conversations) != 1 || snap.Err == "" || snap.Loading {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestCreateOrGetFindsLocalWithoutNetwork(t *testing.T) {
	api := &mockLister{convs: []gateway.Conversation{conv("c1", "u1", 2)}}
	counter := &recordingCounter{}
	s := New(api, counter, nil, nil)
	_ = s.List(context.Background())

	c, err := s.CreateOrGet(context.Background(), gateway.User{ID: "u1"})
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if c.ID != "c1" {
		t.Errorf("ID = %q, want c1", c.ID)
	}
	if api.callCount() != 1 {
		t.Errorf("list calls = %d, want 1", api.callCount())
	}
	if sel, ok := s.Selected(); !ok || sel.ID != "c1" {
		t.Errorf("Selected = %+v, %v", sel, ok)
	}
	if len(counter.decrements) != 1 || counter.decrements[0] != 2 {
		t.Errorf("decrements = %v, want [2]", counter.decrements)
	}
}

func TestCreateOrGetSearchesFreshList(t *testing.T) {
	api := &mockLister{}
	s := New(api, nil, nil, nil)
	_ = s.List(context.Background())

	// Another device started the conversation meanwhile.
	api.set([]gateway.Conversation{conv("c9", "u9", 0)}, nil)

	c, err := s.CreateOrGet(context.Background(), gateway.User{ID: "u9"})
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if c.ID != "c9" || c.IsDraft() {
		t.Errorf("got %+v, want server conversation c9", c)
	}
	if len(s.Snapshot().Conversations) != 1 {
		t.Errorf("unexpected draft added: %v", ids(s.Snapshot().Conversations))
	}
}

func TestCreateOrGetCreatesDraftAtHeadIdempotently(t *testing.T) {
	api := &mockLister{convs: []gateway.Conversation{conv("c1", "u1", 0)}}
	s := New(api, nil, nil, nil)
	_ = s.List(context.Background())

	target := gateway.User{ID: "u5", Username: "chef"}
	first, err := s.CreateOrGet(context.Background(), target)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if !first.IsDraft() || first.LastMessage != nil || first.OtherUser.Username != "chef" {
		t.Errorf("draft = %+v", first)
	}

	second, err := s.CreateOrGet(context.Background(), target)
	if err != nil {
		t.Fatalf("CreateOrGet again: %v", err)
	}
	if second.OtherUser.ID != first.OtherUser.ID || !second.IsDraft() {
		t.Errorf("second = %+v", second)
	}

	got := ids(s.Snapshot().Conversations)
	want := []string{"/u5", "c1/u1"}
	if !equal(got, want) {
		t.Errorf("list = %v, want %v", got, want)
	}
	if sel, ok := s.Selected(); !ok || sel.OtherUser.ID != "u5" {
		t.Errorf("Selected = %+v, %v", sel, ok)
	}
}

func TestCreateOrGetFallsBackToDraftWhenRefreshFails(t *testing.T) {
	api := &mockLister{err: errors.New("offline")}
	s := New(api, nil, nil, nil)

	c, err := s.CreateOrGet(context.Background(), gateway.User{ID: "u5"})
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if !c.IsDraft() {
		t.Errorf("expected draft, got %+v", c)
	}
}

func TestCreateOrGetRequiresUserID(t *testing.T) {
	s := New(&mockLister{}, nil, nil, nil)
	if _, err := s.CreateOrGet(context.Background(), gateway.User{}); !errors.Is(err, ErrNoTarget) {
		t.Errorf("err = %v, want ErrNoTarget", err)
	}
}

func TestListReplacesKnownDraftAndSelectionFollows(t *testing.T) {
	api := &mockLister{convs: []gateway.Conversation{conv("c1", "u1", 0)}}
	s := New(api, nil, nil, nil)
	_ = s.List(context.Background())
	_, _ = s.CreateOrGet(context.Background(), gateway.User{ID: "u5"})
	_, _ = s.CreateOrGet(context.Background(), gateway.User{ID: "u6"})

	api.set([]gateway.Conversation{conv("c5", "u5", 0), conv("c1", "u1", 0)}, nil)
	if err := s.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}

	got := ids(s.Snapshot().Conversations)
	want := []string{"/u6", "c5/u5", "c1/u1"}
	if !equal(got, want) {
		t.Errorf("list = %v, want %v", got, want)
	}
	if sel, ok := s.Selected(); !ok || sel.OtherUser.ID != "u6" {
		t.Errorf("Selected = %+v", sel)
	}

	s.Select(conv("c5", "u5", 0))
	if sel, _ := s.Selected(); sel.ID != "c5" {
		t.Errorf("Selected after select = %+v", sel)
	}
}

func TestSelectDecrementsOnlyOnce(t *testing.T) {
	api := &mockLister{convs: []gateway.Conversation{conv("c1", "u1", 4)}}
	counter := &recordingCounter{}
	s := New(api, counter, nil, nil)
	_ = s.List(context.Background())

	c, _ := s.Get("c1")
	s.Select(c)
	s.Select(c)

	if len(counter.decrements) != 2 || counter.decrements[0] != 4 || counter.decrements[1] != 0 {
		t.Errorf("decrements = %v, want [4 0]", counter.decrements)
	}
}

func TestAdoptMaterializesDraft(t *testing.T) {
	s := New(&mockLister{}, nil, nil, nil)
	_, _ = s.CreateOrGet(context.Background(), gateway.User{ID: "u5"})

	msg := gateway.Message{ID: "m1", ConversationID: "c77", SenderID: "me", ReceiverID: "u5", Content: "hello", CreatedAt: time.Now()}
	c, ok := s.Adopt(msg)
	if !ok {
		t.Fatal("Adopt found nothing")
	}
	if c.ID != "c77" || c.LastMessage == nil || c.LastMessage.Content != "hello" {
		t.Errorf("adopted = %+v", c)
	}
	if got, ok := s.Get("c77"); !ok || got.OtherUser.ID != "u5" {
		t.Errorf("Get(c77) = %+v, %v", got, ok)
	}
}

func TestAdoptUpdatesLastMessage(t *testing.T) {
	api := &mockLister{convs: []gateway.Conversation{conv("c1", "u1", 0)}}
	s := New(api, nil, nil, nil)
	_ = s.List(context.Background())

	if _, ok := s.Adopt(gateway.Message{ID: "m2", ConversationID: "c1", Content: "again"}); !ok {
		t.Fatal("Adopt found nothing")
	}
	c, _ := s.Get("c1")
	if c.LastMessage.ID != "m2" {
		t.Errorf("last message = %+v", c.LastMessage)
	}
	if _, ok := s.Adopt(gateway.Message{ID: "m3", ConversationID: "zzz", ReceiverID: "nobody"}); ok {
		t.Error("Adopt matched an unknown conversation")
	}
}

func TestChangesPublished(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conversations.", 16)
	defer unsub()

	api := &mockLister{convs: []gateway.Conversation{conv("c1", "u1", 0)}}
	s := New(api, nil, b, nil)
	_ = s.List(context.Background())

	deadline := time.After(time.Second)
	for {
		select {
		case evt := <-ch:
			snap := evt.Payload.(Snapshot)
			if !snap.Loading && len(snap.Conversations) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no loaded snapshot published")
		}
	}
}

func TestReset(t *testing.T) {
	api := &mockLister{convs: []gateway.Conversation{conv("c1", "u1", 0)}}
	s := New(api, nil, nil, nil)
	_ = s.List(context.Background())
	s.Select(conv("c1", "u1", 0))
	s.Reset()

	if _, ok := s.Selected(); ok {
		t.Error("selection survived Reset")
	}
	if n := len(s.Snapshot().Conversations); n != 0 {
		t.Errorf("conversations = %d after Reset", n)
	}
}
