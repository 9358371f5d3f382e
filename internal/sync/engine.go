// Package sync composes the sync components and ties their pollers to the
// session lifecycle.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/conversations"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/notifications"
	"github.com/matheus3301/recipebox/internal/status"
	"github.com/matheus3301/recipebox/internal/stream"
	"github.com/matheus3301/recipebox/internal/unread"
	"go.uber.org/zap"
)

// Counter names, also used as checkpoint prefixes.
const (
	MessagesCounter      = "messages"
	NotificationsCounter = "notifications"
)

// Gateway is every backend call the components make.
type Gateway interface {
	conversations.Lister
	stream.Gateway
	notifications.Gateway
	MessageUnreadCount(ctx context.Context) (int, error)
	NotificationUnreadCount(ctx context.Context) (int, error)
}

// Options configures the engine.
type Options struct {
	MessagesInterval      time.Duration
	NotificationsInterval time.Duration
	PageSize              int
	// Self returns the signed-in user's id.
	Self func() string
}

// Engine owns the sync components. Pollers run while the session is ACTIVE
// and local caches are dropped when it ends.
type Engine struct {
	Messages      *unread.Counter
	Notifications *unread.Counter
	Conversations *conversations.Synchronizer
	Stream        *stream.View
	Feed          *notifications.Feed

	pollers    []*unread.Poller
	reconciler *Reconciler
	machine    *status.Machine
	pageSize   int
	bus        *bus.Bus
	logger     *zap.Logger
	cancel     context.CancelFunc
	done       chan struct{}
	// stopActive cancels the work started by the current activation.
	stopActive context.CancelFunc
}

// NewEngine builds the components over gw. reconciler may be nil.
func NewEngine(gw Gateway, machine *status.Machine, reconciler *Reconciler, opts Options, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		reconciler: reconciler,
		machine:    machine,
		pageSize:   opts.PageSize,
		bus:        b,
		logger:     logger,
	}
	e.Messages = unread.NewCounter(MessagesCounter, bus.KindMessageUnread, gw.MessageUnreadCount, b, logger)
	e.Notifications = unread.NewCounter(NotificationsCounter, bus.KindNotificationUnread, gw.NotificationUnreadCount, b, logger)
	e.Conversations = conversations.New(gw, e.Messages, b, logger.Named("conversations"))
	e.Stream = stream.New(gw, e.Messages, b, logger.Named("stream"),
		stream.WithAdopter(e.Conversations), stream.WithSelf(opts.Self))
	e.Feed = notifications.New(gw, e.Notifications, opts.PageSize, b, logger.Named("notifications"))

	e.pollers = []*unread.Poller{
		unread.NewPoller(e.Messages, opts.MessagesInterval, logger),
		unread.NewPoller(e.Notifications, opts.NotificationsInterval, logger),
	}
	if reconciler != nil {
		for _, p := range e.pollers {
			p.OnPoll = reconciler.RecordPoll
		}
	}
	return e
}

// Start follows session status changes until Stop or ctx ends.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe(bus.KindSessionStatus, 16)

	if e.machine != nil && e.machine.Current() == status.Active {
		e.activate(ctx)
	}

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the event loop and every poller.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
	if e.stopActive != nil {
		e.stopActive()
		e.stopActive = nil
	}
	e.stopPolling()
}

func (e *Engine) handleEvent(ctx context.Context, evt bus.Event) {
	change, ok := evt.Payload.(status.StatusChange)
	if !ok {
		return
	}
	switch {
	case change.To == status.Active:
		e.activate(ctx)
	case change.From == status.Active:
		e.deactivate()
	}
}

func (e *Engine) activate(ctx context.Context) {
	if e.stopActive != nil {
		return
	}
	ctx, e.stopActive = context.WithCancel(ctx)
	for _, p := range e.pollers {
		p.Start(ctx)
	}
	go e.warmUp(ctx)
}

// warmUp loads the first screens of data after sign-in.
func (e *Engine) warmUp(ctx context.Context) {
	if err := e.Conversations.List(ctx); err != nil && ctx.Err() == nil {
		e.logger.Warn("initial conversation list failed", zap.Error(err))
	}
	if err := e.Feed.Fetch(ctx, 1, e.pageSize, false); err != nil && ctx.Err() == nil {
		e.logger.Warn("initial notification fetch failed", zap.Error(err))
	}
}

func (e *Engine) deactivate() {
	if e.stopActive == nil {
		return
	}
	e.stopActive()
	e.stopActive = nil
	e.stopPolling()
	e.Stream.Close()
	e.Conversations.Reset()
	e.Feed.Reset()
	e.Messages.Reset()
	e.Notifications.Reset()
	e.logger.Info("session ended, sync caches cleared")
}

func (e *Engine) stopPolling() {
	for _, p := range e.pollers {
		p.Stop()
	}
}

// Polling reports whether the pollers are running.
func (e *Engine) Polling() bool {
	for _, p := range e.pollers {
		if !p.Running() {
			return false
		}
	}
	return len(e.pollers) > 0
}

// RefreshUnread fetches both counters now. Rate-limited fetches are not
// reported; the counters keep their values.
func (e *Engine) RefreshUnread(ctx context.Context) error {
	return errors.Join(dropRateLimited(e.Messages.Fetch(ctx)), dropRateLimited(e.Notifications.Fetch(ctx)))
}

func dropRateLimited(err error) error {
	if gateway.IsRateLimited(err) {
		return nil
	}
	return err
}

// LastPolled returns the last successful poll time of each counter that has
// polled at least once.
func (e *Engine) LastPolled() (map[string]time.Time, error) {
	out := map[string]time.Time{}
	if e.reconciler == nil {
		return out, nil
	}
	for _, c := range []*unread.Counter{e.Messages, e.Notifications} {
		ts, err := e.reconciler.LastSuccess(c.Name())
		if err != nil {
			return nil, err
		}
		if !ts.IsZero() {
			out[c.Name()] = ts
		}
	}
	return out, nil
}

// Checkpoints returns the stored sync checkpoints.
func (e *Engine) Checkpoints() (map[string]string, error) {
	if e.reconciler == nil {
		return map[string]string{}, nil
	}
	return e.reconciler.Checkpoints()
}
