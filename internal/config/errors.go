package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrValidationFailed indicates a setting has an invalid value.
	ErrValidationFailed = errors.New("validation failed")

	// ErrNoSpecPath indicates a command needs a specification file but none was set.
	ErrNoSpecPath = errors.New("no specification file configured")
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	// Setting is the setting key.
	Setting string
	// Value is the rejected value.
	Value any
	// Message describes what is wrong.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("setting %s = %v: %s", e.Setting, e.Value, e.Message)
}

// Unwrap returns ErrValidationFailed.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
