package modelkit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ambrel/patchbay"
)

// Registry maps model names to descriptors.  Profile loading resolves the
// model references in profile documents through it.  Registration keys on
// ModelName, so every registered model needs a distinct name.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[string]patchbay.Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]patchbay.Model)}
}

// Register adds a model under its own name.  It wraps ErrDuplicateModel
// when the name is taken by a different descriptor; registering the same
// descriptor twice is a no-op.
func (r *Registry) Register(m patchbay.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := m.ModelName()
	if prev, ok := r.models[name]; ok {
		if prev == m {
			return nil
		}
		return fmt.Errorf("%q: %w", name, ErrDuplicateModel)
	}
	r.models[name] = m
	return nil
}

// MustRegister registers models and panics on error.
func (r *Registry) MustRegister(models ...patchbay.Model) {
	for _, m := range models {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// LookupModel returns the model registered under name.
func (r *Registry) LookupModel(name string) (patchbay.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// LookupName implements patchbay.NameSource, so a registry can back
// SelectionMap.ResolveNames directly.
func (r *Registry) LookupName(name string) (patchbay.SelectionValue, bool) {
	m, ok := r.LookupModel(name)
	if !ok {
		return nil, false
	}
	return m, true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.models))
	for name := range r.models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
