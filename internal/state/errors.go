package state

import "errors"

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("state: store closed")

	// ErrPanic wraps a panic raised inside a transform.
	ErrPanic = errors.New("state: transform panicked")
)
