// Package conversations keeps the local cache of the user's conversation list
// and the current selection.
package conversations

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/gateway"
	"go.uber.org/zap"
)

// ErrNoTarget is returned by CreateOrGet for a user without an id.
var ErrNoTarget = errors.New("conversation target has no user id")

// Lister fetches the server's conversation list.
type Lister interface {
	ListConversations(ctx context.Context) ([]gateway.Conversation, error)
}

// Decrementer is the slice of the unread counter the list needs.
type Decrementer interface {
	Decrement(n int)
}

// Snapshot is the published state of the list.
type Snapshot struct {
	Conversations []gateway.Conversation `json:"conversations"`
	// Selected is the other user's id of the selected conversation.
	Selected string `json:"selected,omitempty"`
	Loading  bool   `json:"loading"`
	Err      string `json:"error,omitempty"`
}

// Synchronizer holds the conversation list in server order, with local
// drafts at the head. Conversations are keyed by the other participant,
// since the server identifies them by the pair of users.
type Synchronizer struct {
	mu       sync.RWMutex
	list     []gateway.Conversation
	selected string
	loading  bool
	err      error

	api     Lister
	counter Decrementer
	bus     *bus.Bus
	logger  *zap.Logger
}

// New creates a synchronizer. counter receives the optimistic decrement on
// selection and may be nil.
func New(api Lister, counter Decrementer, b *bus.Bus, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{api: api, counter: counter, bus: b, logger: logger}
}

// List replaces the cache with the server's list. Drafts the server does not
// know yet stay at the head; the others are superseded by their server entry.
// On failure the previous list is kept.
func (s *Synchronizer) List(ctx context.Context) error {
	s.update(func() { s.loading = true })

	convs, err := s.api.ListConversations(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load conversations: %w", err)
		s.update(func() {
			s.loading = false
			s.err = err
		})
		s.logger.Warn("list conversations failed", zap.Error(err))
		return err
	}

	s.update(func() {
		s.loading = false
		s.err = nil
		s.list = mergeDrafts(s.list, convs)
	})
	s.logger.Debug("conversations listed", zap.Int("count", len(convs)))
	return nil
}

func mergeDrafts(local, server []gateway.Conversation) []gateway.Conversation {
	known := make(map[string]bool, len(server))
	for _, c := range server {
		known[c.OtherUser.ID] = true
	}
	merged := make([]gateway.Conversation, 0, len(server)+1)
	for _, c := range local {
		if c.IsDraft() && !known[c.OtherUser.ID] {
			merged = append(merged, c)
		}
	}
	return append(merged, server...)
}

// CreateOrGet returns the conversation with target and selects it. The local
// list is searched first; on a miss the list is re-fetched and searched again.
// If the server has none either, a draft is put at the head of the list. The
// server creates the conversation on the first message sent to it. Calling
// it again for the same user returns the same entry.
func (s *Synchronizer) CreateOrGet(ctx context.Context, target gateway.User) (gateway.Conversation, error) {
	if target.ID == "" {
		return gateway.Conversation{}, ErrNoTarget
	}
	if c, ok := s.FindByUser(target.ID); ok {
		s.Select(c)
		return c, nil
	}

	if err := s.List(ctx); err != nil {
		s.logger.Warn("refresh before create failed, falling back to draft",
			zap.String("user_id", target.ID), zap.Error(err))
	} else if c, ok := s.FindByUser(target.ID); ok {
		s.Select(c)
		return c, nil
	}

	var conv gateway.Conversation
	s.update(func() {
		if i := s.indexByUser(target.ID); i >= 0 {
			conv = s.list[i]
			return
		}
		conv = gateway.Conversation{OtherUser: target, UpdatedAt: time.Now()}
		s.list = slices.Insert(s.list, 0, conv)
		s.logger.Info("draft conversation created", zap.String("user_id", target.ID))
	})
	s.Select(conv)
	return conv, nil
}

// Select makes conv the active conversation and subtracts its unread count
// from the global counter. The entry's own count is zeroed so selecting it
// again does not subtract twice; the next List restores the server's value.
func (s *Synchronizer) Select(conv gateway.Conversation) {
	var unread int
	s.update(func() {
		s.selected = conv.OtherUser.ID
		unread = conv.UnreadCount
		if i := s.indexByUser(conv.OtherUser.ID); i >= 0 {
			unread = s.list[i].UnreadCount
			s.list[i].UnreadCount = 0
		}
	})
	if s.counter != nil {
		s.counter.Decrement(unread)
	}
}

// Selected returns the active conversation, if any.
func (s *Synchronizer) Selected() (gateway.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return gateway.Conversation{}, false
	}
	if i := s.indexByUser(s.selected); i >= 0 {
		return s.list[i], true
	}
	return gateway.Conversation{}, false
}

// Adopt records a message returned by the server: the matching conversation
// gets it as last message and, if it was a draft, takes the server id.
func (s *Synchronizer) Adopt(msg gateway.Message) (gateway.Conversation, bool) {
	var (
		conv  gateway.Conversation
		found bool
	)
	s.update(func() {
		i := slices.IndexFunc(s.list, func(c gateway.Conversation) bool {
			return c.ID != "" && c.ID == msg.ConversationID
		})
		if i < 0 {
			i = slices.IndexFunc(s.list, func(c gateway.Conversation) bool {
				return c.IsDraft() && (c.OtherUser.ID == msg.ReceiverID || c.OtherUser.ID == msg.SenderID)
			})
		}
		if i < 0 {
			return
		}
		if s.list[i].IsDraft() {
			s.list[i].ID = msg.ConversationID
			s.logger.Info("draft conversation materialized",
				zap.String("conversation_id", msg.ConversationID))
		}
		m := msg
		s.list[i].LastMessage = &m
		s.list[i].UpdatedAt = msg.CreatedAt
		conv, found = s.list[i], true
	})
	return conv, found
}

// Get returns the conversation with the given server id.
func (s *Synchronizer) Get(id string) (gateway.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.list {
		if c.ID != "" && c.ID == id {
			return c, true
		}
	}
	return gateway.Conversation{}, false
}

// FindByUser returns the conversation with the given other user.
func (s *Synchronizer) FindByUser(userID string) (gateway.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByUser(userID); i >= 0 {
		return s.list[i], true
	}
	return gateway.Conversation{}, false
}

// Err returns the last list failure, cleared on the next success.
func (s *Synchronizer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Snapshot returns a copy of the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Reset drops the cache, used when the session ends.
func (s *Synchronizer) Reset() {
	s.update(func() {
		s.list = nil
		s.selected = ""
		s.err = nil
		s.loading = false
	})
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	snap := Snapshot{
		Conversations: slices.Clone(s.list),
		Selected:      s.selected,
		Loading:       s.loading,
	}
	if snap.Conversations == nil {
		snap.Conversations = []gateway.Conversation{}
	}
	if s.err != nil {
		snap.Err = s.err.Error()
	}
	return snap
}

func (s *Synchronizer) indexByUser(userID string) int {
	return slices.IndexFunc(s.list, func(c gateway.Conversation) bool {
		return c.OtherUser.ID == userID
	})
}

func (s *Synchronizer) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.bus.Emit(bus.KindConversations, snap)
}
