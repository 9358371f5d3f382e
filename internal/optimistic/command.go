// Package optimistic runs local state mutations ahead of the network call that
// confirms them, undoing them when the call fails.
package optimistic

import (
	"context"
	"errors"
	"fmt"
)

// Command pairs a local mutation with its inverse. Apply returns false when
// it had nothing to do; Compensate is then skipped. Compensate must restore
// what Apply changed and nothing else, since unrelated updates may have
// landed in between.
type Command struct {
	Name       string
	Apply      func() bool
	Compensate func()
}

// CompensatedError wraps the call error of a command whose local effect has
// been rolled back.
type CompensatedError struct {
	Command string
	Err     error
}

func (e *CompensatedError) Error() string {
	return fmt.Sprintf("%s: %v (local change reverted)", e.Command, e.Err)
}

func (e *CompensatedError) Unwrap() error { return e.Err }

// Run applies cmd, performs call and compensates if call fails. Errors for
// which keep reports true leave the optimistic state in place; keep may be nil.
func Run(ctx context.Context, cmd Command, call func(context.Context) error, keep func(error) bool) error {
	applied := true
	if cmd.Apply != nil {
		applied = cmd.Apply()
	}

	err := call(ctx)
	if err == nil {
		return nil
	}
	if keep != nil && keep(err) {
		return err
	}
	if applied && cmd.Compensate != nil {
		cmd.Compensate()
		return &CompensatedError{Command: cmd.Name, Err: err}
	}
	return err
}

// WasCompensated reports whether err came from a rolled back command.
func WasCompensated(err error) bool {
	var ce *CompensatedError
	return errors.As(err, &ce)
}
