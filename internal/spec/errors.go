package spec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat indicates an unknown document extension.
	ErrUnsupportedFormat = errors.New("spec: unsupported document format")

	// ErrMissingVersion indicates the header has no version.
	ErrMissingVersion = errors.New("spec: header.version is required")

	// ErrIncompatibleVersion indicates the header version is not supported.
	ErrIncompatibleVersion = errors.New("spec: incompatible specification version")
)

// ParseError represents an error while reading a specification document.
type ParseError struct {
	// Path is the file the document came from, or "<reader>".
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
