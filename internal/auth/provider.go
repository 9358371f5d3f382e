package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/matheus3301/recipebox/internal/store"
)

// ProviderRefresher calls the hosted auth provider's refresh-token grant.
type ProviderRefresher struct {
	http   *resty.Client
	url    string
	apiKey string
	now    func() time.Time
}

// NewProviderRefresher creates a refresher posting to refreshURL.
func NewProviderRefresher(refreshURL, apiKey string, timeout time.Duration) *ProviderRefresher {
	client := resty.New().SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &ProviderRefresher{http: client, url: refreshURL, apiKey: apiKey, now: time.Now}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

type providerError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Message     string `json:"msg"`
}

// Refresh implements Refresher.
func (p *ProviderRefresher) Refresh(ctx context.Context, refreshToken string) (*store.Credentials, error) {
	var out tokenResponse
	var perr providerError
	req := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&out).
		SetError(&perr)
	if p.apiKey != "" {
		req.SetHeader("apikey", p.apiKey)
	}

	resp, err := req.Post(p.url)
	if err != nil {
		return nil, fmt.Errorf("refresh request: %w", err)
	}
	if resp.IsError() {
		msg := firstNonEmpty(perr.Description, perr.Message, perr.Error, resp.Status())
		return nil, fmt.Errorf("refresh rejected (status %d): %s", resp.StatusCode(), msg)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("refresh response has no access_token")
	}

	c := &store.Credentials{
		UserID:       out.User.ID,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}
	if out.ExpiresIn > 0 {
		c.ExpiresAt = p.now().Add(time.Duration(out.ExpiresIn) * time.Second).UnixMilli()
	}
	return c, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
