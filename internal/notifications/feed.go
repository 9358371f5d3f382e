// Package notifications keeps the paginated notification feed and applies
// read/delete actions to it optimistically.
package notifications

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/optimistic"
	"go.uber.org/zap"
)

// DefaultPageSize is used when a fetch does not specify a limit.
const DefaultPageSize = 20

// Gateway is the subset of the REST client the feed calls.
type Gateway interface {
	ListNotifications(ctx context.Context, q gateway.NotificationQuery) (*gateway.NotificationPage, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
}

// Counter is the unread notification counter the feed adjusts.
type Counter interface {
	Count() int
	Decrement(n int)
	Increment(n int)
	Reset()
	Set(n int)
}

// Snapshot is the published state of the feed.
type Snapshot struct {
	Items      []gateway.Notification `json:"items"`
	Pagination gateway.Pagination     `json:"pagination"`
	UnreadOnly bool                   `json:"unread_only"`
	Loading    bool                   `json:"loading"`
	Err        string                 `json:"error,omitempty"`
}

// Feed is the local cache of the notification list.
type Feed struct {
	mu         sync.RWMutex
	items      []gateway.Notification
	pagination gateway.Pagination
	unreadOnly bool
	limit      int
	loading    bool
	err        error
	gen        uint64

	api     Gateway
	counter Counter
	bus     *bus.Bus
	logger  *zap.Logger
}

// New creates an empty feed. pageSize <= 0 selects DefaultPageSize.
func New(api Gateway, counter Counter, pageSize int, b *bus.Bus, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Feed{api: api, counter: counter, limit: pageSize, bus: b, logger: logger}
}

// Fetch loads one page. Page 1 replaces the list; later pages are appended,
// skipping notifications already present. A rate-limited fetch leaves the
// feed untouched and is not reported as an error.
func (f *Feed) Fetch(ctx context.Context, page, limit int, unreadOnly bool) error {
	if page < 1 {
		page = 1
	}
	var gen uint64
	f.update(func() {
		if limit <= 0 {
			limit = f.limit
		}
		if page == 1 {
			f.gen++
		}
		gen = f.gen
		f.loading = true
	})

	res, err := f.api.ListNotifications(ctx, gateway.NotificationQuery{Page: page, Limit: limit, UnreadOnly: unreadOnly})
	if err != nil {
		rateLimited := gateway.IsRateLimited(err)
		err = fmt.Errorf("failed to load notifications: %w", err)
		f.update(func() {
			f.loading = false
			if !rateLimited {
				f.err = err
			}
		})
		if rateLimited {
			f.logger.Debug("notification list rate limited", zap.Int("page", page))
			return nil
		}
		f.logger.Warn("list notifications failed", zap.Int("page", page), zap.Error(err))
		return err
	}

	f.update(func() {
		f.loading = false
		if gen != f.gen {
			f.logger.Debug("dropping stale notification page", zap.Int("page", page))
			return
		}
		f.err = nil
		f.unreadOnly = unreadOnly
		f.limit = limit
		f.pagination = res.Pagination
		if page == 1 {
			f.items = slices.Clone(res.Items)
			return
		}
		f.items = appendNew(f.items, res.Items)
	})
	return nil
}

func appendNew(items, page []gateway.Notification) []gateway.Notification {
	seen := make(map[string]bool, len(items))
	for _, n := range items {
		seen[n.ID] = true
	}
	for _, n := range page {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		items = append(items, n)
	}
	return items
}

// LoadMore fetches the page after the last one loaded, with the same filter.
// It reports false without a call once the last page is loaded.
func (f *Feed) LoadMore(ctx context.Context) (bool, error) {
	f.mu.RLock()
	p, limit, unreadOnly := f.pagination, f.limit, f.unreadOnly
	f.mu.RUnlock()

	if p.Page >= p.TotalPages {
		return false, nil
	}
	return true, f.Fetch(ctx, p.Page+1, limit, unreadOnly)
}

// HasMore reports whether LoadMore would fetch.
func (f *Feed) HasMore() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pagination.Page < f.pagination.TotalPages
}

// MarkAsRead flips one notification to read and, if it was unread, lowers the
// unread counter. Both are undone if the server call fails; the flag only if
// no first page was loaded in the meantime.
func (f *Feed) MarkAsRead(ctx context.Context, id string) error {
	var (
		wasUnread bool
		gen       uint64
	)
	cmd := optimistic.Command{
		Name: "mark notification read",
		Apply: func() bool {
			f.update(func() {
				gen = f.gen
				i := f.index(id)
				if i < 0 || f.items[i].IsRead {
					return
				}
				f.items[i].IsRead = true
				wasUnread = true
			})
			if wasUnread {
				f.decrement(1)
			}
			return wasUnread
		},
		Compensate: func() {
			f.update(func() {
				if gen != f.gen {
					return
				}
				if i := f.index(id); i >= 0 {
					f.items[i].IsRead = false
				}
			})
			f.increment(1)
		},
	}
	err := optimistic.Run(ctx, cmd, func(ctx context.Context) error {
		return f.api.MarkNotificationRead(ctx, id)
	}, nil)
	if err != nil {
		f.logger.Warn("mark notification read failed", zap.String("notification_id", id), zap.Error(err))
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllAsRead flips every loaded notification to read and zeroes the
// counter. Calling it again changes nothing. On failure the previous flags
// and count are restored.
func (f *Feed) MarkAllAsRead(ctx context.Context) error {
	var (
		flipped []string
		prior   int
		gen     uint64
	)
	cmd := optimistic.Command{
		Name: "mark all notifications read",
		Apply: func() bool {
			flipped = nil
			f.update(func() {
				gen = f.gen
				for i := range f.items {
					if !f.items[i].IsRead {
						f.items[i].IsRead = true
						flipped = append(flipped, f.items[i].ID)
					}
				}
			})
			if f.counter != nil {
				prior = f.counter.Count()
				f.counter.Reset()
			}
			return true
		},
		Compensate: func() {
			f.update(func() {
				if gen != f.gen {
					return
				}
				for _, id := range flipped {
					if i := f.index(id); i >= 0 {
						f.items[i].IsRead = false
					}
				}
			})
			if f.counter != nil {
				f.counter.Set(prior)
			}
		},
	}
	err := optimistic.Run(ctx, cmd, f.api.MarkAllNotificationsRead, nil)
	if err != nil {
		f.logger.Warn("mark all notifications read failed", zap.Error(err))
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification locally, lowering the counter if it was
// unread, then on the server. Both are undone if the server call fails. A 404
// means it is already gone, so the removal stands.
func (f *Feed) Delete(ctx context.Context, id string) error {
	var (
		removed gateway.Notification
		index   = -1
		gen     uint64
	)
	cmd := optimistic.Command{
		Name: "delete notification",
		Apply: func() bool {
			f.update(func() {
				gen = f.gen
				index = f.index(id)
				if index < 0 {
					return
				}
				removed = f.items[index]
				f.items = slices.Delete(f.items, index, index+1)
				f.pagination.Total = max(f.pagination.Total-1, 0)
			})
			if index < 0 {
				return false
			}
			if !removed.IsRead {
				f.decrement(1)
			}
			return true
		},
		Compensate: func() {
			f.update(func() {
				if gen != f.gen || f.index(id) >= 0 {
					return
				}
				f.items = slices.Insert(f.items, min(index, len(f.items)), removed)
				f.pagination.Total++
			})
			if !removed.IsRead {
				f.increment(1)
			}
		},
	}
	err := optimistic.Run(ctx, cmd, func(ctx context.Context) error {
		return f.api.DeleteNotification(ctx, id)
	}, gateway.IsNotFound)
	if gateway.IsNotFound(err) {
		f.logger.Debug("notification already deleted", zap.String("notification_id", id))
		return nil
	}
	if err != nil {
		f.logger.Warn("delete notification failed", zap.String("notification_id", id), zap.Error(err))
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// Items returns a copy of the loaded notifications.
func (f *Feed) Items() []gateway.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.items)
}

// Pagination returns the pagination of the last loaded page.
func (f *Feed) Pagination() gateway.Pagination {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pagination
}

// Err returns the last non rate-limit fetch failure.
func (f *Feed) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshotLocked()
}

// Reset drops the cache, used when the session ends.
func (f *Feed) Reset() {
	f.update(func() {
		f.gen++
		f.items = nil
		f.pagination = gateway.Pagination{}
		f.unreadOnly = false
		f.loading = false
		f.err = nil
	})
}

func (f *Feed) snapshotLocked() Snapshot {
	snap := Snapshot{
		Items:      slices.Clone(f.items),
		Pagination: f.pagination,
		UnreadOnly: f.unreadOnly,
		Loading:    f.loading,
	}
	if snap.Items == nil {
		snap.Items = []gateway.Notification{}
	}
	if f.err != nil {
		snap.Err = f.err.Error()
	}
	return snap
}

func (f *Feed) index(id string) int {
	return slices.IndexFunc(f.items, func(n gateway.Notification) bool { return n.ID == id })
}

func (f *Feed) decrement(n int) {
	if f.counter != nil {
		f.counter.Decrement(n)
	}
}

func (f *Feed) increment(n int) {
	if f.counter != nil {
		f.counter.Increment(n)
	}
}

func (f *Feed) update(fn func()) {
	f.mu.Lock()
	fn()
	snap := f.snapshotLocked()
	f.mu.Unlock()
	f.bus.Emit(bus.KindNotifications, snap)
}
