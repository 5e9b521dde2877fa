package dispatcher

import (
	"fmt"
	"sort"
	"sync"

	"github.com/haberdashPI/vscode-master-key-sub000/internal/dispatcher/handler"
)

// Registry maps built-in action names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]handler.Handler
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]handler.Handler),
	}
}

// Register adds h under each of its action names. Registering a name twice
// is an error and leaves the registry unchanged.
func (r *Registry) Register(h handler.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := h.Actions()
	for _, name := range names {
		if _, ok := r.handlers[name]; ok {
			return fmt.Errorf("%w: %s", ErrHandlerExists, name)
		}
	}
	for _, name := range names {
		r.handlers[name] = h
	}
	return nil
}

// Unregister removes the handler for an action name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Get returns the handler for an action, or nil.
func (r *Registry) Get(name string) handler.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[name]
}

// Has returns true if a handler is registered for the action.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// List returns all registered action names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered actions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
