package workflow

import (
	"sort"
	"sync"
)

// Registry maps workflow names to step sequences.
//
// Registry is safe for concurrent use. Register takes an exclusive lock and
// stores a private copy of the steps; Lookup takes a shared lock and returns
// a snapshot copy. A run therefore keeps executing the definition it looked up
// even if the name is re-registered while it is in flight.
type Registry struct {
	mu        sync.RWMutex
	workflows map[string][]Step
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{workflows: make(map[string][]Step)}
}

// NewDefaultRegistry creates a [Registry] preloaded with [BuiltinWorkflows].
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for name, steps := range BuiltinWorkflows() {
		r.Register(name, steps)
	}
	return r
}

// Register stores steps under name, replacing any existing definition.
// Neither tool names nor parameters are validated.
func (r *Registry) Register(name string, steps []Step) {
	copied := cloneSteps(steps)
	if copied == nil {
		copied = []Step{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[name] = copied
}

// Lookup returns a copy of the steps registered under name.
func (r *Registry) Lookup(name string) ([]Step, bool) {
	r.mu.RLock()
	steps, ok := r.workflows[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneSteps(steps), true
}

// Names returns the registered workflow names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workflows))
	for name := range r.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of every registered definition.
func (r *Registry) Snapshot() map[string][]Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]Step, len(r.workflows))
	for name, steps := range r.workflows {
		out[name] = cloneSteps(steps)
	}
	return out
}

// Len returns the number of registered workflows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workflows)
}
