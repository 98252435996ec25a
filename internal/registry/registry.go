package registry

import (
	"fmt"
	"sort"
)

// SystemID identifies one backend system. IDs are stable and never reused
// for a different system.
type SystemID string

const (
	SystemJira       SystemID = "jira"
	SystemConfluence SystemID = "confluence"
	SystemBitbucket  SystemID = "bitbucket"
)

// Descriptor describes one backend system: display metadata for the UI
// plus the routing signals used to score query relevance.
type Descriptor struct {
	ID          SystemID `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`

	// PrimaryKeywords score 3 points per match, SecondaryKeywords 1,
	// Patterns (regular expressions) 2. See router.Route.
	PrimaryKeywords   []string `json:"-"`
	SecondaryKeywords []string `json:"-"`
	Patterns          []string `json:"-"`
}

// Registry is the catalog of available backend systems. It is built once
// at startup and read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	systems []Descriptor
	byID    map[SystemID]Descriptor
}

// New creates a Registry from the given descriptors. An empty catalog is a
// configuration error: the service must not accept queries without at
// least one system to route to.
func New(systems []Descriptor) (*Registry, error) {
	if len(systems) == 0 {
		return nil, fmt.Errorf("registry: no backend systems configured")
	}

	byID := make(map[SystemID]Descriptor, len(systems))
	for _, d := range systems {
		if d.ID == "" {
			return nil, fmt.Errorf("registry: system with empty id")
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate system id %q", d.ID)
		}
		byID[d.ID] = d
	}

	ordered := make([]Descriptor, len(systems))
	copy(ordered, systems)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	return &Registry{systems: ordered, byID: byID}, nil
}

// Default returns a Registry with the three built-in systems.
func Default() *Registry {
	r, err := New(BuiltinSystems())
	if err != nil {
		// BuiltinSystems is a static, non-empty catalog.
		panic(err)
	}
	return r
}

// Get returns the descriptor for the given system id.
func (r *Registry) Get(id SystemID) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Has reports whether the given system id exists in the catalog.
func (r *Registry) Has(id SystemID) bool {
	_, ok := r.byID[id]
	return ok
}

// List returns all descriptors sorted by id.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.systems))
	copy(out, r.systems)
	return out
}

// IDs returns all system ids sorted.
func (r *Registry) IDs() []SystemID {
	ids := make([]SystemID, len(r.systems))
	for i, d := range r.systems {
		ids[i] = d.ID
	}
	return ids
}

// Len returns the number of registered systems.
func (r *Registry) Len() int { return len(r.systems) }

// Parse validates a raw system id string against the catalog.
func (r *Registry) Parse(s string) (SystemID, error) {
	id := SystemID(s)
	if !r.Has(id) {
		return "", fmt.Errorf("registry: unknown system %q", s)
	}
	return id, nil
}
