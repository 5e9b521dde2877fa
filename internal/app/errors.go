package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrClosed indicates the application was already closed.
	ErrClosed = errors.New("app: closed")

	// ErrNoHost indicates Options carried no host.
	ErrNoHost = errors.New("app: host is required")

	// ErrWatching indicates Watch was called twice.
	ErrWatching = errors.New("app: already watching")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// LoadError reports a specification file that could not be loaded. The
// previously active bindings stay installed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
