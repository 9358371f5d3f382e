package store

import (
	"database/sql"
	"time"
)

// SaveCredentials replaces the stored session.
func (db *DB) SaveCredentials(c *Credentials) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO credentials (id, user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		c.UserID, c.AccessToken, c.RefreshToken, c.ExpiresAt, now)
	if err == nil {
		c.UpdatedAt = now
	}
	return err
}

// LoadCredentials returns the stored session, or nil if nobody is signed in.
func (db *DB) LoadCredentials() (*Credentials, error) {
	var c Credentials
	err := db.QueryRow(`
		SELECT user_id, access_token, refresh_token, expires_at, updated_at
		FROM credentials WHERE id = 1`).
		Scan(&c.UserID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClearCredentials removes the stored session.
func (db *DB) ClearCredentials() error {
	_, err := db.Exec(`DELETE FROM credentials`)
	return err
}
