package key

import (
	"fmt"
	"strings"
)

// Sequence is an ordered list of keys pressed one after another.
type Sequence []Key

// ParseSequence parses a space separated sequence such as "g g" or
// "ctrl+k ctrl+c".
func ParseSequence(spec string) (Sequence, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return nil, ErrEmptySpec
	}
	seq := make(Sequence, 0, len(fields))
	for i, f := range fields {
		k, err := Parse(f)
		if err != nil {
			return nil, fmt.Errorf("key %d of %q: %w", i+1, spec, err)
		}
		seq = append(seq, k)
	}
	return seq, nil
}

// String joins the canonical keys with single spaces.
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		parts[i] = k.String()
	}
	return strings.Join(parts, " ")
}

// Strings returns the canonical form of every key.
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, k := range s {
		out[i] = k.String()
	}
	return out
}

// JoinPrefix appends a key to a space-joined prefix string.
func JoinPrefix(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + " " + k
}
