package template

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores engines by name, providing discovery and duplication
// safeguards.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates a registry seeded with the given engines.
func NewRegistry(engines ...Engine) (*Registry, error) {
	r := &Registry{engines: make(map[string]Engine)}
	for _, engine := range engines {
		if err := r.Register(engine); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an engine by its Name(). Duplicate names return an error.
func (r *Registry) Register(engine Engine) error {
	if engine == nil {
		return fmt.Errorf("template: engine is required")
	}
	name := engine.Name()
	if name == "" {
		return fmt.Errorf("template: engine name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("template: engine %q already registered", name)
	}
	r.engines[name] = engine
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(engine Engine) {
	if err := r.Register(engine); err != nil {
		panic(err)
	}
}

// Get retrieves an engine by name.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("template: engine %q not found (available: %v)", name, r.listLocked())
	}
	return engine, nil
}

// List returns a sorted list of engine names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

// Has reports whether an engine is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.engines[name]
	return ok
}

func (r *Registry) listLocked() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
