package parser

import (
	"cmp"
	"fmt"
	"slices"
)

// Registry maps message IDs to the constructors of the messages that they
// identify.  Each parser has its own registry.
//
// Registering the same ID twice is a programming error, so Register panics
// rather than returning an error.
type Registry[ID cmp.Ordered] struct {
	constructors map[ID]Constructor[ID]
}

// Register files constructor under id.  It panics if id is already
// registered or if the messages that constructor makes don't have that ID.
func (r *Registry[ID]) Register(id ID, constructor Constructor[ID]) {
	if constructor == nil {
		panic(fmt.Sprintf("parser: nil constructor for message %v", id))
	}

	if r.constructors == nil {
		r.constructors = make(map[ID]Constructor[ID])
	}

	if _, ok := r.constructors[id]; ok {
		panic(fmt.Sprintf("parser: message %v is already registered", id))
	}

	// Build a throwaway message and check that it agrees about its ID.
	if got := constructor().MessageID(); got != id {
		panic(fmt.Sprintf("parser: constructor registered as message %v makes message %v", id, got))
	}

	r.constructors[id] = constructor
}

// Add registers constructor under the ID of the messages that it makes.
func (r *Registry[ID]) Add(constructor Constructor[ID]) {
	if constructor == nil {
		panic("parser: nil constructor")
	}
	r.Register(constructor().MessageID(), constructor)
}

// Lookup returns the constructor registered under id.
func (r *Registry[ID]) Lookup(id ID) (Constructor[ID], bool) {
	constructor, ok := r.constructors[id]
	return constructor, ok
}

// IDs returns the registered IDs in ascending order.
func (r *Registry[ID]) IDs() []ID {
	ids := make([]ID, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
