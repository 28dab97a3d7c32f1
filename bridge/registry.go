package bridge

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc executes one command.
type HandlerFunc func(ctx context.Context, cmd Command) Result

// Registry maps command names to handlers. It is safe for concurrent use.
type Registry struct {
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers handler for name. Registering a name twice is an error.
func (r *Registry) Handle(name string, handler HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler for command '%s' already registered", name)
	}
	r.handlers[name] = handler
	return nil
}

// Get returns the handler for name.
func (r *Registry) Get(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns every registered command name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
