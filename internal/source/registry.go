package source

import (
	"fmt"
	"sort"
	"sync"

	"logstream-srv/internal/model"
)

// Registry maps provider kinds to adapter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for a provider kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// New builds an adapter for conn using the factory registered for its provider.
func (r *Registry) New(conn model.Connection, secrets map[string]string) (Adapter, error) {
	if conn.Provider == "" {
		return nil, Terminalf("provider is required")
	}

	r.mu.RLock()
	f, ok := r.factories[conn.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, Terminal(fmt.Errorf("%w: %s", ErrUnknownProvider, conn.Provider))
	}
	return f(conn, secrets)
}

// Kinds lists the registered provider kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
