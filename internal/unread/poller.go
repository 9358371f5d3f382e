package unread

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller refreshes a Counter on a fixed interval while started. It is started
// when a session becomes active and stopped when it ends.
type Poller struct {
	counter  *Counter
	interval time.Duration
	logger   *zap.Logger

	// OnPoll, if set before Start, runs after every fetch.
	OnPoll func(snap Snapshot, err error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// DefaultInterval is used when a poller is created without an interval.
const DefaultInterval = 30 * time.Second

// NewPoller creates a poller for c.
func NewPoller(c *Counter, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{counter: c, interval: interval, logger: logger.With(zap.String("poller", c.Name()))}
}

// Start fetches immediately and then every interval until Stop or ctx ends.
// Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	p.logger.Info("polling started", zap.Duration("interval", p.interval))
}

// Stop halts polling and waits for an in-flight fetch to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("polling stopped")
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	err := p.counter.Fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if p.OnPoll != nil {
		p.OnPoll(p.counter.Snapshot(), err)
	}
}
