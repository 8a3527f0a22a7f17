package work

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the pipeline work types. Lookups are by ID; the processor
// walks them in priority order.
type Registry struct {
	types   map[string]*WorkType
	ordered []*WorkType // highest priority first
	mu      sync.RWMutex
	reorder bool
}

// NewRegistry creates a new work type registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*WorkType)}
}

// Register adds a work type to the registry.
// If a work type with the same ID already exists, it will be replaced.
func (r *Registry) Register(wt *WorkType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types[wt.ID] = wt
	r.reorder = true
}

// Get returns a work type by ID, or nil if not found.
func (r *Registry) Get(id string) *WorkType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.types[id]
}

// ByPriority returns all work types ordered by priority (highest first).
// Within the same priority, work types are ordered alphabetically by ID.
func (r *Registry) ByPriority() []*WorkType {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reorder {
		r.ordered = make([]*WorkType, 0, len(r.types))
		for _, wt := range r.types {
			r.ordered = append(r.ordered, wt)
		}
		sort.Slice(r.ordered, func(i, j int) bool {
			if r.ordered[i].Priority != r.ordered[j].Priority {
				return r.ordered[i].Priority > r.ordered[j].Priority
			}
			return r.ordered[i].ID < r.ordered[j].ID
		})
		r.reorder = false
	}

	result := make([]*WorkType, len(r.ordered))
	copy(result, r.ordered)
	return result
}

// Count returns the number of registered work types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.types)
}

// IDs returns all registered work type IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedIDs(r.types)
}

// GetDependents returns the work types that depend on the given work type,
// sorted by ID.
func (r *Registry) GetDependents(id string) []*WorkType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var dependents []*WorkType
	for _, wt := range r.types {
		for _, depID := range wt.DependsOn {
			if depID == id {
				dependents = append(dependents, wt)
				break
			}
		}
	}
	sort.Slice(dependents, func(i, j int) bool { return dependents[i].ID < dependents[j].ID })
	return dependents
}

// Validate checks that every dependency names a registered work type and that
// the dependency graph has no cycle. A cycle would requeue work forever.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range sortedIDs(r.types) {
		for _, dep := range r.types[id].DependsOn {
			if _, ok := r.types[dep]; !ok {
				return fmt.Errorf("work type %s depends on unknown work type %s", id, dep)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.types))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("work type dependency cycle through %s", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range r.types[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for _, id := range sortedIDs(r.types) {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs(types map[string]*WorkType) []string {
	ids := make([]string, 0, len(types))
	for id := range types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
