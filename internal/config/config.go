package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration encoded as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.recipebox/config.toml.
type Config struct {
	DefaultSession string              `toml:"default_session"`
	API            APIConfig           `toml:"api"`
	Auth           AuthConfig          `toml:"auth"`
	Polling        PollingConfig       `toml:"polling"`
	Notifications  NotificationsConfig `toml:"notifications"`
	Log            LogConfig           `toml:"log"`
}

// APIConfig points at the REST backend.
type APIConfig struct {
	BaseURL   string   `toml:"base_url"`
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

// AuthConfig points at the hosted auth provider's token refresh endpoint.
type AuthConfig struct {
	RefreshURL string `toml:"refresh_url"`
	APIKey     string `toml:"api_key"`
}

// PollingConfig holds the unread-count poll intervals.
type PollingConfig struct {
	MessagesInterval      Duration `toml:"messages_interval"`
	NotificationsInterval Duration `toml:"notifications_interval"`
}

// NotificationsConfig controls the notification feed.
type NotificationsConfig struct {
	PageSize int `toml:"page_size"`
}

// LogConfig controls the daemon logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:3000/api",
			Timeout:   Duration{15 * time.Second},
			UserAgent: "recipebox/1.0",
		},
		Polling: PollingConfig{
			MessagesInterval:      Duration{30 * time.Second},
			NotificationsInterval: Duration{60 * time.Second},
		},
		Notifications: NotificationsConfig{PageSize: 20},
		Log:           LogConfig{Level: "info"},
	}
}

// Load reads config from the given path on top of Default. Returns nil and
// error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads config from path, falling back to Default when the file
// does not exist. Malformed files are still reported.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the daemon cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.Polling.MessagesInterval.Duration <= 0 {
		return fmt.Errorf("polling.messages_interval must be positive")
	}
	if c.Polling.NotificationsInterval.Duration <= 0 {
		return fmt.Errorf("polling.notifications_interval must be positive")
	}
	if c.Notifications.PageSize <= 0 || c.Notifications.PageSize > 50 {
		return fmt.Errorf("notifications.page_size must be in [1, 50], got %d", c.Notifications.PageSize)
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
