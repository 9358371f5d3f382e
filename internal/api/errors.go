package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/matheus3301/recipebox/internal/auth"
	"github.com/matheus3301/recipebox/internal/conversations"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/stream"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps an operation error onto a gRPC status.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	return grpcstatus.Errorf(codeOf(err), "%s: %v", op, err)
}

func codeOf(err error) codes.Code {
	switch {
	case gateway.IsLoginRequired(err), errors.Is(err, auth.ErrNoSession):
		return codes.Unauthenticated
	case stream.IsValidation(err), errors.Is(err, conversations.ErrNoTarget):
		return codes.InvalidArgument
	case errors.Is(err, stream.ErrNoConversation), errors.Is(err, stream.ErrNothingToRetry):
		return codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}

	switch s := gateway.StatusOf(err); {
	case s == http.StatusNotFound:
		return codes.NotFound
	case s == http.StatusForbidden:
		return codes.PermissionDenied
	case s == http.StatusUnauthorized:
		return codes.Unauthenticated
	case s == http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case s == http.StatusBadRequest, s == http.StatusUnprocessableEntity:
		return codes.InvalidArgument
	case s >= 500:
		return codes.Unavailable
	case s != 0:
		return codes.FailedPrecondition
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return codes.Unavailable
	}
	return codes.Internal
}

// surface reports whether err must be returned as an RPC error rather than
// folded into the response as component state.
func surface(err error) bool {
	return gateway.IsLoginRequired(err) || errors.Is(err, auth.ErrNoSession) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
