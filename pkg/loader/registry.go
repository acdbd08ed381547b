package loader

import (
	"fmt"
	"iter"
	"sync"

	"github.com/containerd/errdefs"
)

// ErrDuplicate is returned when an identifier is registered twice.
var ErrDuplicate = fmt.Errorf("already registered: %w", errdefs.ErrAlreadyExists)

// Registry maps architecture identifiers to loaded models. Entries are only
// ever added, and each identifier appears at most once. Iteration follows
// insertion order.
type Registry[M any] struct {
	mu     sync.RWMutex
	order  []string
	models map[string]M
}

// NewRegistry returns an empty registry.
func NewRegistry[M any]() *Registry[M] {
	return &Registry[M]{models: make(map[string]M)}
}

// Add registers model under name.
func (r *Registry[M]) Add(name string, model M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.models[name] = model
	r.order = append(r.order, name)
	return nil
}

// Get returns the model registered under name.
func (r *Registry[M]) Get(name string) (M, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Has reports whether name loaded.
func (r *Registry[M]) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of registered models.
func (r *Registry[M]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Names returns the registered identifiers in insertion order.
func (r *Registry[M]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// All iterates over a snapshot of the registry in insertion order.
func (r *Registry[M]) All() iter.Seq2[string, M] {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	models := make([]M, len(names))
	for i, n := range names {
		models[i] = r.models[n]
	}
	r.mu.RUnlock()

	return func(yield func(string, M) bool) {
		for i, n := range names {
			if !yield(n, models[i]) {
				return
			}
		}
	}
}
