package session

import (
	"os"

	"github.com/matheus3301/recipebox/internal/config"
)

const (
	DefaultSessionName = "main"
	// SessionEnv selects the session when no --session flag is given.
	SessionEnv = "RECIPEBOX_SESSION"
)

// Resolve determines the active session name using precedence:
// 1. flagOverride (--session flag)
// 2. $RECIPEBOX_SESSION
// 3. cfg.DefaultSession (cfg may be nil)
// 4. "main"
func Resolve(flagOverride string, cfg *config.Config) string {
	if flagOverride != "" {
		return flagOverride
	}
	if env := os.Getenv(SessionEnv); env != "" {
		return env
	}
	if cfg != nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
