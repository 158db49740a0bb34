package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/sluice/pkg/domain"
)

// Registry manages the named lookup tables available to a migration.
// A registry is created by the caller and handed to the engine, so its lifetime is explicit.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]Table),
	}
}

// Register adds a table to the registry.
// If a table with the same name exists, it is overwritten.
func (r *Registry) Register(name string, t Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = t
}

// Get returns a table by name.
// Returns domain.ErrUnknownLookup if the table is not registered.
func (r *Registry) Get(name string) (Table, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLookup, name)
	}
	r.mu.RLock()
	t, ok := r.tables[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLookup, name)
	}
	return t, nil
}

// Names lists the registered tables in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
