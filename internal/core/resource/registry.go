package resource

import "sync"

// =============================================================================
// Registry
// =============================================================================

// Registry is a name-keyed table of built groups that preserves the order
// in which names were first registered. It is owned by the caller and safe
// for concurrent use.
type Registry struct {
	mu     sync.Mutex
	order  []string
	groups map[string]*Group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]*Group)}
}

// Register stores g under g.Name. A name keeps the position of its first
// registration; registering it again replaces the stored group in place.
// Returns true when the name was new.
func (r *Registry) Register(g *Group) bool {
	if g == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.groups[g.Name]
	if !exists {
		r.order = append(r.order, g.Name)
	}
	r.groups[g.Name] = g
	return !exists
}

// Get returns the group registered under name.
func (r *Registry) Get(name string) (*Group, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[name]
	return g, ok
}

// Names returns registered names in first-registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.order...)
}

// Groups returns registered groups in first-registration order.
func (r *Registry) Groups() []*Group {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*Group, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.groups[name])
	}
	return result
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.order)
}
