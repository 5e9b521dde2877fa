package state

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// SetListener observes every write to one key. s is the version that
// contains the write.
type SetListener func(value any, s *State)

// ResolveListener runs once per resolve.
type ResolveListener func(s *State)

// Mirror receives public keys on resolve. host.Host satisfies it.
type Mirror interface {
	SetContext(key string, value any)
}

// Subscription is the handle returned by OnSet and OnResolve.
type Subscription struct {
	id     string
	once   sync.Once
	cancel func()
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Cancel removes the listener. Calling it more than once is a no-op, and
// it may be called from inside the listener itself.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

type setEntry struct {
	id string
	fn SetListener
}

type resolveEntry struct {
	name string
	id   string
	fn   ResolveListener
}

// registry is shared by every version of a store's state.
type registry struct {
	mu       sync.Mutex
	set      map[string][]setEntry
	resolves []resolveEntry
	mirror   Mirror
	prefix   string
	logger   *slog.Logger
}

func newRegistry(mirror Mirror, prefix string, logger *slog.Logger) *registry {
	return &registry{
		set:    make(map[string][]setEntry),
		mirror: mirror,
		prefix: prefix,
		logger: logger,
	}
}

func (r *registry) onSet(key string, fn SetListener) *Subscription {
	id := uuid.NewString()
	r.mu.Lock()
	r.set[key] = append(r.set[key], setEntry{id: id, fn: fn})
	r.mu.Unlock()
	return &Subscription{id: id, cancel: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.set[key]
		for i, e := range list {
			if e.id == id {
				r.set[key] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}}
}

// onResolve installs fn under name, replacing any listener with that name.
func (r *registry) onResolve(name string, fn ResolveListener) *Subscription {
	id := uuid.NewString()
	r.mu.Lock()
	replaced := false
	for i, e := range r.resolves {
		if e.name == name {
			r.resolves[i] = resolveEntry{name: name, id: id, fn: fn}
			replaced = true
			break
		}
	}
	if !replaced {
		r.resolves = append(r.resolves, resolveEntry{name: name, id: id, fn: fn})
	}
	r.mu.Unlock()
	return &Subscription{id: id, cancel: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.resolves {
			if e.id == id {
				r.resolves = append(r.resolves[:i:i], r.resolves[i+1:]...)
				break
			}
		}
	}}
}

func (r *registry) fireSet(key string, value any, s *State) {
	r.mu.Lock()
	list := append([]setEntry(nil), r.set[key]...)
	r.mu.Unlock()
	for _, e := range list {
		e.fn(value, s)
	}
}

func (r *registry) resolve(s *State) {
	r.mu.Lock()
	list := append([]resolveEntry(nil), r.resolves...)
	mirror := r.mirror
	r.mu.Unlock()
	for _, e := range list {
		e.fn(s)
	}
	if mirror == nil {
		return
	}
	public := s.PublicValues()
	for _, k := range slices.Sorted(maps.Keys(public)) {
		mirror.SetContext(r.prefix+"."+k, public[k])
	}
}
