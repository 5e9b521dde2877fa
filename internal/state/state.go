package state

import (
	"maps"
	"reflect"
)

type field struct {
	value     any
	reset     any
	transient bool
	public    bool
}

// Option sets per-key behavior when a key is written.
type Option func(*field)

// Public marks the key as mirrored into the host context.
func Public() Option {
	return func(f *field) {
		f.public = true
	}
}

// Transient marks the key as reverting to reset on Reset.
func Transient(reset any) Option {
	return func(f *field) {
		f.transient = true
		f.reset = reset
	}
}

// initial records reset for a newly created key without making it transient.
func initial(reset any) Option {
	return func(f *field) {
		f.reset = reset
	}
}

// Persistent clears a previous Transient marking.
func Persistent() Option {
	return func(f *field) {
		f.transient = false
		f.reset = nil
	}
}

// State is one immutable version of the session state.
type State struct {
	version uint64
	fields  map[string]field
	reg     *registry
}

func newState(reg *registry) *State {
	return &State{fields: make(map[string]field), reg: reg}
}

// Version increases by one with every change.
func (s *State) Version() uint64 {
	return s.version
}

// Get returns the value of key.
func (s *State) Get(key string) (any, bool) {
	f, ok := s.fields[key]
	return f.value, ok
}

// Has reports whether key has been written.
func (s *State) Has(key string) bool {
	_, ok := s.fields[key]
	return ok
}

// Value returns the value of key as a T, or def when the key is absent or
// holds another type.
func Value[T any](s *State, key string, def T) T {
	f, ok := s.fields[key]
	if !ok {
		return def
	}
	v, ok := f.value.(T)
	if !ok {
		return def
	}
	return v
}

// Set returns a new version with key set to value. Options apply on top
// of the key's existing flags. Set listeners for key run before Set
// returns.
func (s *State) Set(key string, value any, opts ...Option) *State {
	next := s.with(key, func(f *field) {
		f.value = value
		for _, opt := range opts {
			opt(f)
		}
	})
	if s.reg != nil {
		s.reg.fireSet(key, value, next)
	}
	return next
}

// Update reads key (def when absent), applies fn and writes the result
// with the same semantics as Set.
func Update[T any](s *State, key string, def T, fn func(T) T, opts ...Option) *State {
	return s.Set(key, fn(Value(s, key, def)), opts...)
}

// Reset returns a version with every transient key restored to its reset
// value. It returns s itself when nothing changes.
func (s *State) Reset() *State {
	var changed []string
	for k, f := range s.fields {
		if f.transient && !equal(f.value, f.reset) {
			changed = append(changed, k)
		}
	}
	if len(changed) == 0 {
		return s
	}
	next := s
	for _, k := range changed {
		next = next.Set(k, s.fields[k].reset)
	}
	return next
}

// Values returns a copy of every key's value, for expression bindings.
func (s *State) Values() map[string]any {
	out := make(map[string]any, len(s.fields))
	for k, f := range s.fields {
		out[k] = f.value
	}
	return out
}

// PublicValues returns a copy of the public keys' values.
func (s *State) PublicValues() map[string]any {
	out := make(map[string]any)
	for k, f := range s.fields {
		if f.public {
			out[k] = f.value
		}
	}
	return out
}

// IsPublic reports whether key is mirrored.
func (s *State) IsPublic(key string) bool {
	return s.fields[key].public
}

// IsTransient reports whether key is reset by Reset.
func (s *State) IsTransient(key string) bool {
	return s.fields[key].transient
}

// Resolve runs the resolve listeners and mirrors the public keys into the
// host context.
func (s *State) Resolve() {
	if s.reg != nil {
		s.reg.resolve(s)
	}
}

func (s *State) with(key string, fn func(*field)) *State {
	fields := maps.Clone(s.fields)
	f := fields[key]
	fn(&f)
	fields[key] = f
	return &State{version: s.version + 1, fields: fields, reg: s.reg}
}

// equal compares values of comparable types; maps and slices never match.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
