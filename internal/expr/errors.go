package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrAssignment indicates an expression tried to assign to a value.
	ErrAssignment = errors.New("expr: assignment is not allowed in expressions")

	// ErrTimeout indicates evaluation was interrupted.
	ErrTimeout = errors.New("expr: evaluation timed out")

	// ErrNotNumber indicates a numeric result was required.
	ErrNotNumber = errors.New("expr: result is not a number")
)

// Error wraps a compile or evaluation failure with the offending source.
type Error struct {
	Expr string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Expr, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
