// Package auth holds the signed-in user's provider session and refreshes it.
// Token issuance belongs to the hosted auth provider; this package only stores,
// hands out and refreshes what the provider issued.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/recipebox/internal/store"
	"go.uber.org/zap"
)

// ErrNoSession is returned by Token when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// CredentialStore persists the session between daemon restarts.
type CredentialStore interface {
	SaveCredentials(c *store.Credentials) error
	LoadCredentials() (*store.Credentials, error)
	ClearCredentials() error
}

// Refresher exchanges a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*store.Credentials, error)
}

// Session is the gateway's token source.
type Session struct {
	mu        sync.RWMutex
	creds     *store.Credentials
	refreshMu sync.Mutex

	store     CredentialStore
	refresher Refresher
	logger    *zap.Logger
}

// NewSession creates an empty session. Call Restore to load a stored one.
func NewSession(cs CredentialStore, r Refresher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{store: cs, refresher: r, logger: logger}
}

// Restore loads stored credentials. Reports whether a session was found.
func (s *Session) Restore() (bool, error) {
	c, err := s.store.LoadCredentials()
	if err != nil {
		return false, fmt.Errorf("load credentials: %w", err)
	}
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
	return c != nil, nil
}

// Login stores provider-issued credentials as the active session.
func (s *Session) Login(c store.Credentials) error {
	if c.AccessToken == "" {
		return errors.New("access token is required")
	}
	if err := s.store.SaveCredentials(&c); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	s.mu.Lock()
	s.creds = &c
	s.mu.Unlock()
	s.logger.Info("signed in", zap.String("user_id", c.UserID))
	return nil
}

// Logout forgets the active session.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()
	if err := s.store.ClearCredentials(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// Active reports whether a session is held.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds != nil
}

// UserID returns the signed-in user's id, or "" when signed out.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ""
	}
	return s.creds.UserID
}

// ExpiresAt returns the access token expiry, zero if unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil || s.creds.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.creds.ExpiresAt)
}

// Token returns the current access token.
func (s *Session) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return "", ErrNoSession
	}
	return s.creds.AccessToken, nil
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers are serialized; one that waited behind a successful refresh reuses
// its result instead of spending the new refresh token again.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	before := s.creds
	s.mu.RUnlock()

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	current := s.creds
	s.mu.RUnlock()
	if current == nil {
		return ErrNoSession
	}
	if before != nil && current != before && current.AccessToken != before.AccessToken {
		return nil
	}
	if current.RefreshToken == "" {
		return errors.New("session has no refresh token")
	}
	if s.refresher == nil {
		return errors.New("no refresh endpoint configured")
	}

	next, err := s.refresher.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if next.UserID == "" {
		next.UserID = current.UserID
	}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if err := s.store.SaveCredentials(next); err != nil {
		s.logger.Warn("refreshed session not persisted", zap.Error(err))
	}

	s.mu.Lock()
	s.creds = next
	s.mu.Unlock()
	s.logger.Info("session refreshed", zap.String("user_id", next.UserID))
	return nil
}
