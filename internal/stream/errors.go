package stream

import (
	"errors"
	"fmt"
)

// MaxContentLength is the longest message the backend accepts, in characters.
const MaxContentLength = 1000

var (
	// ErrNoConversation is returned when no conversation is open.
	ErrNoConversation = errors.New("no conversation open")
	// ErrNothingToRetry is returned by Retry before anything was loaded.
	ErrNothingToRetry = errors.New("nothing to retry")
)

// ValidationError rejects message content before it reaches the network.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s", e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
