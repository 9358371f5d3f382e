// Package stream is the message view of the open conversation: loading,
// mark-as-read, sending and deleting messages.
package stream

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/optimistic"
	"go.uber.org/zap"
)

// Gateway is the subset of the REST client the view calls.
type Gateway interface {
	ListMessages(ctx context.Context, conversationID string) ([]gateway.Message, error)
	MarkConversationRead(ctx context.Context, conversationID string) error
	SendMessage(ctx context.Context, req gateway.SendMessageRequest) (*gateway.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

// CountRefresher re-reads the authoritative unread message count.
type CountRefresher interface {
	Fetch(ctx context.Context) error
}

// Adopter receives messages the server created so the conversation list can
// follow them.
type Adopter interface {
	Adopt(msg gateway.Message) (gateway.Conversation, bool)
}

// Snapshot is the published state of the view.
type Snapshot struct {
	State        State                 `json:"state"`
	Conversation *gateway.Conversation `json:"conversation,omitempty"`
	Messages     []gateway.Message     `json:"messages"`
	Err          string                `json:"error,omitempty"`
}

// View holds the messages of one open conversation. Every Open bumps a
// generation; results of calls started under an older generation are
// dropped.
type View struct {
	mu       sync.RWMutex
	state    State
	conv     *gateway.Conversation
	messages []gateway.Message
	err      error
	gen      uint64

	api     Gateway
	counter CountRefresher
	convs   Adopter
	self    func() string
	bus     *bus.Bus
	logger  *zap.Logger
}

// Option configures a View.
type Option func(*View)

// WithAdopter forwards sent messages to a.
func WithAdopter(a Adopter) Option {
	return func(v *View) { v.convs = a }
}

// WithSelf sets the function returning the current user id, used by CanDelete.
func WithSelf(fn func() string) Option {
	return func(v *View) { v.self = fn }
}

// New creates an idle view. counter may be nil.
func New(api Gateway, counter CountRefresher, b *bus.Bus, logger *zap.Logger, opts ...Option) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &View{state: Idle, api: api, counter: counter, bus: b, logger: logger}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open shows conv. A conversation without a last message has nothing on the
// server, so it is shown empty without any call. Otherwise the messages are
// fetched, then the conversation is marked read, then the global count is
// refreshed, in that order.
func (v *View) Open(ctx context.Context, conv gateway.Conversation) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	sameConv := v.conv != nil && v.conv.ID != "" && v.conv.ID == conv.ID
	c := conv
	v.conv = &c
	v.err = nil

	if conv.LastMessage == nil {
		v.messages = []gateway.Message{}
		v.transitionLocked(Loaded)
		v.mu.Unlock()
		v.publishMessages()
		return nil
	}

	if !sameConv {
		v.messages = nil
	}
	v.transitionLocked(Loading)
	v.mu.Unlock()

	return v.load(ctx, gen, conv.ID)
}

// Retry re-runs the fetch of the open conversation.
func (v *View) Retry(ctx context.Context) error {
	v.mu.Lock()
	if v.conv == nil {
		v.mu.Unlock()
		return ErrNoConversation
	}
	if v.state != Errored && v.state != Loaded {
		v.mu.Unlock()
		return ErrNothingToRetry
	}
	if v.conv.IsDraft() {
		v.mu.Unlock()
		return nil
	}
	v.gen++
	gen, id := v.gen, v.conv.ID
	v.err = nil
	v.transitionLocked(Loading)
	v.mu.Unlock()

	return v.load(ctx, gen, id)
}

func (v *View) load(ctx context.Context, gen uint64, id string) error {
	msgs, err := v.api.ListMessages(ctx, id)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.logger.Debug("dropping stale messages", zap.String("conversation_id", id))
		return nil
	}
	if err != nil {
		v.err = fmt.Errorf("failed to load messages: %w", err)
		v.transitionLocked(Errored)
		loadErr := v.err
		v.mu.Unlock()
		v.logger.Warn("load messages failed", zap.String("conversation_id", id), zap.Error(err))
		return loadErr
	}
	if msgs == nil {
		msgs = []gateway.Message{}
	}
	v.messages = msgs
	v.transitionLocked(Loaded)
	v.mu.Unlock()
	v.publishMessages()

	if err := v.api.MarkConversationRead(ctx, id); err != nil {
		v.logger.Warn("mark conversation read failed", zap.String("conversation_id", id), zap.Error(err))
	}
	if v.counter != nil {
		_ = v.counter.Fetch(ctx)
	}
	return nil
}

// Send validates content and posts it to the open conversation's other user.
// The server's message is appended as returned. For a draft the returned
// conversation id becomes the conversation's id.
func (v *View) Send(ctx context.Context, content string) (*gateway.Message, error) {
	if err := Validate(content); err != nil {
		return nil, err
	}

	v.mu.RLock()
	if v.conv == nil {
		v.mu.RUnlock()
		return nil, ErrNoConversation
	}
	gen, receiver := v.gen, v.conv.OtherUser.ID
	v.mu.RUnlock()

	msg, err := v.api.SendMessage(ctx, gateway.SendMessageRequest{ReceiverID: receiver, Content: content})
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	if v.convs != nil {
		v.convs.Adopt(*msg)
	}

	v.mu.Lock()
	if gen == v.gen {
		if v.conv.IsDraft() && msg.ConversationID != "" {
			v.conv.ID = msg.ConversationID
		}
		m := *msg
		v.conv.LastMessage = &m
		v.messages = append(v.messages, *msg)
	}
	v.mu.Unlock()
	v.publishMessages()

	v.logger.Debug("message sent", zap.String("message_id", msg.ID), zap.String("conversation_id", msg.ConversationID))
	return msg, nil
}

// Validate checks message content: non-blank and at most MaxContentLength
// characters.
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Reason: "message is empty"}
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return &ValidationError{Reason: fmt.Sprintf("message is %d characters, limit is %d", n, MaxContentLength)}
	}
	return nil
}

// Delete removes a message locally, then on the server. The message is put
// back at its former position if the server call fails, except on a 404:
// the message is already gone.
func (v *View) Delete(ctx context.Context, messageID string) error {
	var (
		removed gateway.Message
		index   int
		gen     uint64
	)
	cmd := optimistic.Command{
		Name: "delete message",
		Apply: func() bool {
			v.mu.Lock()
			defer v.mu.Unlock()
			gen = v.gen
			index = slices.IndexFunc(v.messages, func(m gateway.Message) bool { return m.ID == messageID })
			if index < 0 {
				return false
			}
			removed = v.messages[index]
			v.messages = slices.Delete(v.messages, index, index+1)
			return true
		},
		Compensate: func() {
			v.mu.Lock()
			if gen == v.gen {
				v.messages = slices.Insert(v.messages, min(index, len(v.messages)), removed)
			}
			v.mu.Unlock()
			v.publishMessages()
		},
	}

	err := optimistic.Run(ctx, cmd, func(ctx context.Context) error {
		v.publishMessages()
		return v.api.DeleteMessage(ctx, messageID)
	}, gateway.IsNotFound)
	if gateway.IsNotFound(err) {
		v.logger.Debug("message already deleted", zap.String("message_id", messageID))
		return nil
	}
	if err != nil {
		v.logger.Warn("delete message failed", zap.String("message_id", messageID), zap.Error(err))
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// CanDelete reports whether the current user sent msg. Only such messages
// offer a delete action; the server enforces the rule.
func (v *View) CanDelete(msg gateway.Message) bool {
	if v.self == nil {
		return false
	}
	self := v.self()
	return self != "" && msg.SenderID == self
}

// State returns the current load state.
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Err returns the load error while Errored.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// Conversation returns the open conversation.
func (v *View) Conversation() (gateway.Conversation, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.conv == nil {
		return gateway.Conversation{}, false
	}
	return *v.conv, true
}

// Messages returns a copy of the displayed messages.
func (v *View) Messages() []gateway.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.messages)
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshotLocked()
}

// Close returns the view to Idle, used when the session ends.
func (v *View) Close() {
	v.mu.Lock()
	v.gen++
	from := v.state
	v.state = Idle
	v.conv = nil
	v.messages = nil
	v.err = nil
	v.mu.Unlock()
	v.bus.Emit(bus.KindStreamState, StateChange{From: from, To: Idle})
}

func (v *View) snapshotLocked() Snapshot {
	snap := Snapshot{State: v.state, Messages: slices.Clone(v.messages)}
	if snap.Messages == nil {
		snap.Messages = []gateway.Message{}
	}
	if v.conv != nil {
		c := *v.conv
		snap.Conversation = &c
	}
	if v.err != nil {
		snap.Err = v.err.Error()
	}
	return snap
}

// transitionLocked moves to a new state and publishes the change. Callers
// hold v.mu.
func (v *View) transitionLocked(to State) {
	from := v.state
	if !canTransition(from, to) {
		v.logger.Warn("invalid stream transition", zap.String("from", string(from)), zap.String("to", string(to)))
		return
	}
	v.state = to
	var id string
	if v.conv != nil {
		id = v.conv.ID
	}
	v.bus.Emit(bus.KindStreamState, StateChange{From: from, To: to, ConversationID: id})
}

func (v *View) publishMessages() {
	v.bus.Emit(bus.KindStreamMessages, v.Snapshot())
}
