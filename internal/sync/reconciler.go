package sync

import (
	"fmt"
	"time"

	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/store"
	"github.com/matheus3301/recipebox/internal/unread"
	"go.uber.org/zap"
)

// CheckpointStore persists sync checkpoints.
type CheckpointStore interface {
	PutCheckpoint(key, value string) error
	GetCheckpoint(key string) (*store.Checkpoint, error)
	ListCheckpoints() ([]store.Checkpoint, error)
}

// Reconciler records poll outcomes as sync checkpoints so the status of each
// counter survives a daemon restart.
type Reconciler struct {
	db     CheckpointStore
	logger *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(db CheckpointStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{db: db, logger: logger}
}

func pollKey(name, field string) string {
	return "poll." + name + "." + field
}

// RecordPoll stores the outcome of one counter poll. Successful polls record
// the time; failures record the error text. Counts are never stored, and
// rate-limited polls are not recorded.
func (r *Reconciler) RecordPoll(snap unread.Snapshot, err error) {
	if gateway.IsRateLimited(err) {
		return
	}
	var writes [][2]string
	if err != nil {
		writes = append(writes, [2]string{pollKey(snap.Name, "last_error"), err.Error()})
	} else {
		writes = append(writes,
			[2]string{pollKey(snap.Name, "last_success"), snap.FetchedAt.UTC().Format(time.RFC3339Nano)},
			[2]string{pollKey(snap.Name, "last_error"), ""},
		)
	}
	for _, w := range writes {
		if perr := r.UpdateCheckpoint(w[0], w[1]); perr != nil {
			r.logger.Warn("failed to record poll checkpoint", zap.String("key", w[0]), zap.Error(perr))
		}
	}
}

// LastSuccess returns when the named counter last polled successfully, or
// the zero time if it never did.
func (r *Reconciler) LastSuccess(name string) (time.Time, error) {
	v, err := r.GetCheckpoint(pollKey(name, "last_success"))
	if err != nil || v == "" {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkpoint: %w", err)
	}
	return ts, nil
}

// UpdateCheckpoint updates a sync checkpoint value.
func (r *Reconciler) UpdateCheckpoint(key, value string) error {
	return r.db.PutCheckpoint(key, value)
}

// GetCheckpoint retrieves a sync checkpoint value, empty if unset.
func (r *Reconciler) GetCheckpoint(key string) (string, error) {
	cp, err := r.db.GetCheckpoint(key)
	if err != nil || cp == nil {
		return "", err
	}
	return cp.Value, nil
}

// Checkpoints returns every stored checkpoint as a map.
func (r *Reconciler) Checkpoints() (map[string]string, error) {
	cps, err := r.db.ListCheckpoints()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(cps))
	for _, cp := range cps {
		out[cp.Key] = cp.Value
	}
	return out, nil
}
