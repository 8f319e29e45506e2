// Package labels holds the fixed class registries the benchmarks score
// against. A Registry is a bijection between class ids and names and is
// never mutated after construction.
package labels

import (
	"sort"

	"github.com/banshee-data/scenebench/internal/faults"
)

// Registry maps class ids to names and back.
type Registry struct {
	names  []string
	ids    []int
	byID   map[int]int
	byName map[string]int
	maxID  int
}

// NewRegistry builds a registry from parallel name and id lists. Order is
// preserved and defines the order of every per-class report.
func NewRegistry(names []string, ids []int) (*Registry, error) {
	if len(names) != len(ids) {
		return nil, faults.Config("registry has %d names but %d ids", len(names), len(ids))
	}
	if len(names) == 0 {
		return nil, faults.Config("registry must contain at least one class")
	}
	r := &Registry{
		names:  append([]string(nil), names...),
		ids:    append([]int(nil), ids...),
		byID:   make(map[int]int, len(ids)),
		byName: make(map[string]int, len(names)),
		maxID:  -1,
	}
	for i, id := range ids {
		if id < 0 {
			return nil, faults.Config("class %q has negative id %d", names[i], id)
		}
		if names[i] == "" {
			return nil, faults.Config("class id %d has an empty name", id)
		}
		if _, dup := r.byID[id]; dup {
			return nil, faults.Config("duplicate class id %d", id)
		}
		if _, dup := r.byName[names[i]]; dup {
			return nil, faults.Config("duplicate class name %q", names[i])
		}
		r.byID[id] = i
		r.byName[names[i]] = i
		if id > r.maxID {
			r.maxID = id
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables; it panics on error.
func MustRegistry(names []string, ids []int) *Registry {
	r, err := NewRegistry(names, ids)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of classes.
func (r *Registry) Len() int { return len(r.ids) }

// Labels returns class names in registry order.
func (r *Registry) Labels() []string { return append([]string(nil), r.names...) }

// IDs returns class ids in registry order.
func (r *Registry) IDs() []int { return append([]int(nil), r.ids...) }

// Valid reports whether id belongs to the registry.
func (r *Registry) Valid(id int) bool {
	_, ok := r.byID[id]
	return ok
}

// Name returns the class name for id.
func (r *Registry) Name(id int) (string, bool) {
	i, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return r.names[i], true
}

// ID returns the class id for name.
func (r *Registry) ID(name string) (int, bool) {
	i, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return r.ids[i], true
}

// Index returns the registry position of name, or -1.
func (r *Registry) Index(name string) int {
	i, ok := r.byName[name]
	if !ok {
		return -1
	}
	return i
}

// MaxID is the largest valid class id.
func (r *Registry) MaxID() int { return r.maxID }

// UnknownID is the sentinel id one above MaxID that out-of-registry
// predictions are mapped to in confusion matrices.
func (r *Registry) UnknownID() int { return r.maxID + 1 }

// SortedIDs returns the valid ids in ascending order.
func (r *Registry) SortedIDs() []int {
	ids := r.IDs()
	sort.Ints(ids)
	return ids
}
