package engine

import (
	"fmt"
	"slices"
	"sync"
)

// Factory constructs an operation instance called name.
type Factory func(name string) (Operation, error)

// Registry maps operation type names to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering a type twice is an error.
func (r *Registry) Register(typeName string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[typeName]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typeName)
	}
	r.factories[typeName] = f
	return nil
}

// Create instantiates typeName as an operation called name.
func (r *Registry) Create(typeName, name string) (Operation, error) {
	r.mu.RLock()
	f, ok := r.factories[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, configError(name, "", fmt.Errorf("%w: %s", ErrUnknownType, typeName))
	}
	op, err := f(name)
	if err != nil {
		return nil, fmt.Errorf("create %s %q: %w", typeName, name, err)
	}
	return op, nil
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
