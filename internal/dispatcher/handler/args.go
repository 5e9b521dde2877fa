package handler

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidArgs indicates arguments that do not fit a command's schema.
var ErrInvalidArgs = errors.New("invalid arguments")

// ArgsError reports a schema mismatch. The dispatcher shows it and skips the
// command instead of failing the dispatch.
type ArgsError struct {
	Action string
	Err    error
}

// Error implements the error interface.
func (e *ArgsError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Action, ErrInvalidArgs, e.Err)
}

// Unwrap returns the wrapped errors.
func (e *ArgsError) Unwrap() []error {
	return []error{ErrInvalidArgs, e.Err}
}

// DecodeArgs decodes args into out, which should be a pointer to a struct
// with mapstructure tags. Unknown fields are rejected; scalars are
// converted where it is lossless enough (e.g. "3" to 3).
func DecodeArgs(action string, args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return &ArgsError{Action: action, Err: err}
	}
	return nil
}

// InvalidArgs creates an error result for a schema mismatch found after
// decoding.
func InvalidArgs(action string, format string, args ...any) Result {
	return Error(&ArgsError{Action: action, Err: fmt.Errorf(format, args...)})
}
