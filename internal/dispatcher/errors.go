package dispatcher

import (
	"errors"
	"fmt"
)

// Dispatcher errors.
var (
	// ErrCancelled indicates a command cancelled the dispatch.
	ErrCancelled = errors.New("dispatcher: dispatch cancelled")

	// ErrHandlerExists indicates an action name is already registered.
	ErrHandlerExists = errors.New("dispatcher: handler already registered")

	// ErrUnknownAction indicates no handler serves a built-in command.
	ErrUnknownAction = errors.New("dispatcher: unknown built-in command")
)

// CommandError is a command failure that aborted a dispatch.
type CommandError struct {
	Command string
	// Index is the descriptor's position in the command list.
	Index int
	Err   error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s (#%d) failed: %v", e.Command, e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}
