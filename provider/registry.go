package provider

import (
	"sort"
	"sync"

	"github.com/kbukum/stageflow/errors"
)

// Factory creates a provider from typed configuration.
type Factory[C any, T Provider] func(cfg C) (T, error)

// Registry maps names to provider factories.
type Registry[C any, T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[C, T]
}

// NewRegistry creates an empty Registry.
func NewRegistry[C any, T Provider]() *Registry[C, T] {
	return &Registry[C, T]{factories: make(map[string]Factory[C, T])}
}

// Register adds or replaces the factory for name.
func (r *Registry[C, T]) Register(name string, factory Factory[C, T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create builds a provider with the named factory. An unknown name yields
// a NOT_FOUND AppError.
func (r *Registry[C, T]) Create(name string, cfg C) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, errors.NotFound("provider factory", name)
	}
	return factory(cfg)
}

// Names returns the registered names, sorted.
func (r *Registry[C, T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
