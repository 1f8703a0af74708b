package cli

import (
	"errors"
	"fmt"
)

// Exit codes returned by toolflow commands.
const (
	// ExitFailure means a workflow ran and one of its steps failed, or a
	// command could not complete.
	ExitFailure = 1

	// ExitUsage means the request itself was invalid: an unknown workflow or a
	// malformed context.
	ExitUsage = 2
)

// ExitError represents a command execution failure with a specific exit code.
//
// This error type allows Cobra RunE functions to signal non-zero exit codes
// without calling os.Exit() directly, enabling testable CLI behavior. The
// [Execute] function handles the actual os.Exit() call based on the code.
//
// Err, when set, is the underlying cause; it is printed by [Execute] and is
// reachable through errors.Is and errors.As.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the cause's message, or "exit status N" when there is none.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying cause.
func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an [ExitError] with the given exit code and no cause.
// Use it when the failure has already been reported to the user.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// exitErrorf creates an [ExitError] whose cause is formatted like fmt.Errorf.
func exitErrorf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// IsExitError checks if an error is an [ExitError] and extracts its exit code.
//
// Returns (code, true) if err is or wraps an *ExitError. Returns (0, false)
// for nil or other errors.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
