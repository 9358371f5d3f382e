package store

import (
	"database/sql"
	"time"
)

// PutCheckpoint upserts a sync_state value.
func (db *DB) PutCheckpoint(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// GetCheckpoint returns a sync_state entry, or nil if the key is unset.
func (db *DB) GetCheckpoint(key string) (*Checkpoint, error) {
	cp := Checkpoint{Key: key}
	err := db.QueryRow(`SELECT value, updated_at FROM sync_state WHERE key = ?`, key).Scan(&cp.Value, &cp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// ListCheckpoints returns every sync_state entry ordered by key.
func (db *DB) ListCheckpoints() ([]Checkpoint, error) {
	rows, err := db.Query(`SELECT key, value, updated_at FROM sync_state ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.Key, &cp.Value, &cp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}
