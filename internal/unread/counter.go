// Package unread holds the authoritative unread counts shown as badges.
//
// A Counter never derives its value from local message or notification
// lists: it is set from the server's count endpoint and only nudged locally
// (Decrement, Increment, Reset) between two fetches.
package unread

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/gateway"
	"go.uber.org/zap"
)

// FetchFunc returns the authoritative count.
type FetchFunc func(ctx context.Context) (int, error)

// Snapshot is the published state of a counter.
type Snapshot struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	Loading   bool      `json:"loading"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Counter is a single observable unread count. Every change is published on
// the bus under its event kind.
type Counter struct {
	mu        sync.RWMutex
	count     int
	loading   bool
	err       error
	fetchedAt time.Time

	name   string
	kind   string
	fetch  FetchFunc
	bus    *bus.Bus
	logger *zap.Logger
}

// NewCounter creates a counter named name that publishes kind events.
func NewCounter(name, kind string, fetch FetchFunc, b *bus.Bus, logger *zap.Logger) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Counter{
		name:   name,
		kind:   kind,
		fetch:  fetch,
		bus:    b,
		logger: logger.With(zap.String("counter", name)),
	}
}

// Name returns the counter's name.
func (c *Counter) Name() string { return c.name }

// Count returns the current value.
func (c *Counter) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Err returns the last non rate-limit fetch failure, cleared by the next
// successful fetch. It is diagnostic only; views keep showing the stale count.
func (c *Counter) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Snapshot returns the current state.
func (c *Counter) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Counter) snapshotLocked() Snapshot {
	return Snapshot{Name: c.name, Count: c.count, Loading: c.loading, FetchedAt: c.fetchedAt}
}

// Fetch replaces the count with the server's value. On failure the count is
// left as it was; a 429 does not even record an error.
func (c *Counter) Fetch(ctx context.Context) error {
	c.update(func() { c.loading = true })

	n, err := c.fetch(ctx)
	if err != nil {
		c.update(func() {
			c.loading = false
			if !gateway.IsRateLimited(err) {
				c.err = err
			}
		})
		if gateway.IsRateLimited(err) {
			c.logger.Debug("unread count rate limited, keeping stale value")
		} else {
			c.logger.Warn("unread count fetch failed, keeping stale value", zap.Error(err))
		}
		return err
	}

	c.update(func() {
		c.loading = false
		c.err = nil
		c.count = max(n, 0)
		c.fetchedAt = time.Now()
	})
	return nil
}

// Decrement lowers the count by n, never below zero. n <= 0 is a no-op.
func (c *Counter) Decrement(n int) {
	if n <= 0 {
		return
	}
	c.update(func() { c.count = max(c.count-n, 0) })
}

// Increment raises the count by n; used to undo a failed optimistic decrement.
func (c *Counter) Increment(n int) {
	if n <= 0 {
		return
	}
	c.update(func() { c.count += n })
}

// Reset sets the count to zero.
func (c *Counter) Reset() {
	c.update(func() { c.count = 0 })
}

// Set overwrites the count, used to restore a value captured earlier.
func (c *Counter) Set(n int) {
	c.update(func() { c.count = max(n, 0) })
}

// Subscribe returns bus events carrying this counter's Snapshot.
func (c *Counter) Subscribe(bufSize int) (<-chan bus.Event, func()) {
	return c.bus.Subscribe(c.kind, bufSize)
}

func (c *Counter) update(fn func()) {
	c.mu.Lock()
	fn()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.bus.Emit(c.kind, snap)
}
