package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrLoginRequired is returned when no valid session exists and a token
// refresh could not produce one. Callers should send the user to login.
var ErrLoginRequired = errors.New("login required")

// APIError is a non-2xx (or success=false) response carrying the server's
// error payload.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Payload json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// StatusOf returns the HTTP status carried by err, or 0 if it is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsRateLimited reports whether err is an HTTP 429 response.
func IsRateLimited(err error) bool {
	return StatusOf(err) == http.StatusTooManyRequests
}

// IsNotFound reports whether err is an HTTP 404 response.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
