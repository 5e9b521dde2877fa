package spec

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ErrNoCommand indicates a descriptor without a command name.
var ErrNoCommand = errors.New("spec: descriptor has no command")

// Command describes one command to invoke.
type Command struct {
	// Command is the command identifier.
	Command string `json:"command" mapstructure:"command"`

	// Args are the literal arguments.
	Args map[string]any `json:"args,omitempty" mapstructure:"args"`

	// ComputedArgs maps argument names to expressions evaluated at dispatch
	// time and merged over Args.
	ComputedArgs map[string]string `json:"computedArgs,omitempty" mapstructure:"computedArgs"`

	// If is nil, a bool, or an expression string guarding the command.
	If any `json:"if,omitempty" mapstructure:"if"`
}

// Clone returns a copy whose maps can be modified independently.
func (c Command) Clone() Command {
	out := c
	out.Args = CloneMap(c.Args)
	if c.ComputedArgs != nil {
		out.ComputedArgs = make(map[string]string, len(c.ComputedArgs))
		for k, v := range c.ComputedArgs {
			out.ComputedArgs[k] = v
		}
	}
	return out
}

// CloneMap deep-copies nested maps and slices.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return CloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// DeepMerge returns base with over merged on top. Nested maps merge
// recursively; any other value in over replaces the one in base.
func DeepMerge(base, over map[string]any) map[string]any {
	if base == nil && over == nil {
		return nil
	}
	out := CloneMap(base)
	if out == nil {
		out = make(map[string]any, len(over))
	}
	for k, v := range over {
		if vm, ok := v.(map[string]any); ok {
			if bm, ok := out[k].(map[string]any); ok {
				out[k] = DeepMerge(bm, vm)
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

// DecodeCommand decodes a descriptor from a string (the command name) or a
// table with command, args, computedArgs and if fields. Unknown fields are
// an error.
func DecodeCommand(v any) (Command, error) {
	if name, ok := v.(string); ok {
		if name == "" {
			return Command{}, ErrNoCommand
		}
		return Command{Command: name}, nil
	}
	var c Command
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Command{}, err
	}
	if err := dec.Decode(v); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if c.Command == "" {
		return Command{}, ErrNoCommand
	}
	return c, nil
}
