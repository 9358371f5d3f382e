// Package gateway is the typed REST client for the recipebox backend. Every
// request carries the session's bearer token; a 401 triggers exactly one
// token refresh and one retry.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource supplies bearer tokens from the external session provider.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// Envelope is the JSON shape of every backend response.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Client issues authenticated requests against the backend.
type Client struct {
	http       *resty.Client
	tokens     TokenSource
	onAuthLost func(error)
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.http.SetHeader("User-Agent", ua)
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuthLostHook registers fn to run when a refresh fails and the user has
// to log in again.
func WithAuthLostHook(fn func(error)) Option {
	return func(c *Client) { c.onAuthLost = fn }
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json").
			SetTimeout(15 * time.Second),
		tokens: tokens,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends method path with an optional JSON body and query params and
// returns the decoded envelope. On 401 it refreshes the token once and
// retries once; a failed refresh yields ErrLoginRequired.
func (c *Client) Do(ctx context.Context, method, path string, body any, params map[string]string) (*Envelope, error) {
	resp, err := c.send(ctx, method, path, body, params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		c.logger.Debug("access token rejected, refreshing", zap.String("path", path))
		if rerr := c.tokens.Refresh(ctx); rerr != nil {
			c.authLost(rerr)
			return nil, fmt.Errorf("%w: refresh: %v", ErrLoginRequired, rerr)
		}
		resp, err = c.send(ctx, method, path, body, params)
		if err != nil {
			return nil, err
		}
	}

	return c.decode(method, path, resp)
}

// Into runs Do and unmarshals the envelope's data into out (which may be nil).
func (c *Client) Into(ctx context.Context, method, path string, body any, params map[string]string, out any) (*Envelope, error) {
	env, err := c.Do(ctx, method, path, body, params)
	if err != nil {
		return nil, err
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return env, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, params map[string]string) (*resty.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginRequired, err)
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("X-Request-ID", uuid.NewString())
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("took", time.Since(start)))
	return resp, nil
}

func (c *Client) decode(method, path string, resp *resty.Response) (*Envelope, error) {
	var env Envelope
	raw := resp.Body()
	decodeErr := json.Unmarshal(raw, &env)

	if resp.IsError() {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode(), Payload: json.RawMessage(raw)}
		if decodeErr == nil {
			apiErr.Message = firstNonEmpty(env.Message, env.Error)
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		if len(raw) == 0 || resp.StatusCode() == http.StatusNoContent {
			return &Envelope{Success: true}, nil
		}
		return nil, fmt.Errorf("%s %s: decode envelope: %w", method, path, decodeErr)
	}
	if !env.Success {
		return nil, &APIError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode(),
			Message: firstNonEmpty(env.Message, env.Error, "request rejected"),
			Payload: json.RawMessage(raw),
		}
	}
	return &env, nil
}

func (c *Client) authLost(err error) {
	c.logger.Warn("session refresh failed, login required", zap.Error(err))
	if c.onAuthLost != nil {
		c.onAuthLost(err)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsLoginRequired reports whether err means the session is gone.
func IsLoginRequired(err error) bool {
	return errors.Is(err, ErrLoginRequired)
}
