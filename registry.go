package nestfsm

import (
	"fmt"
)

// Definition accumulates state declarations before validation. It is the
// mutable build-time counterpart of Registry: declare the tree, then call
// Finalize exactly once to obtain the immutable, shareable registry.
type Definition struct {
	states     map[StateID]*state
	order      []StateID
	defaults   map[StateID]StateID
	duplicates []StateID
}

// NewDefinition creates a new empty definition.
func NewDefinition() *Definition {
	return &Definition{
		states:   make(map[StateID]*state),
		defaults: make(map[StateID]StateID),
	}
}

// Composite declares a grouping state. An empty parent marks the root of
// the tree; every other state names its parent composite. A composite must
// be given a default child before Finalize.
func (d *Definition) Composite(id, parent StateID, opts ...StateOption) *Definition {
	return d.declare(id, parent, KindComposite, opts)
}

// Leaf declares a terminal state. Transition handlers are attached with the
// On state option.
func (d *Definition) Leaf(id, parent StateID, opts ...StateOption) *Definition {
	return d.declare(id, parent, KindLeaf, opts)
}

func (d *Definition) declare(id, parent StateID, kind Kind, opts []StateOption) *Definition {
	if _, exists := d.states[id]; exists {
		d.duplicates = append(d.duplicates, id)
		return d
	}

	s := &state{
		id:     id,
		kind:   kind,
		parent: parent,
	}
	for _, opt := range opts {
		opt(s)
	}

	d.states[id] = s
	d.order = append(d.order, id)
	return d
}

// DefaultChild names the child a composite descends into when it is entered
// without a deeper target. It may be called before or after either state is
// declared; the link is resolved and checked at Finalize.
func (d *Definition) DefaultChild(composite, child StateID) *Definition {
	d.defaults[composite] = child
	return d
}

// Finalize validates the declared tree and produces the immutable registry.
// It fails with a ConfigurationError on: a duplicate id, an unknown or leaf
// parent, a missing or ambiguous root, a cycle in the parent graph, a
// composite without a default child, a default child that is not an
// immediate child, a default-child chain that does not terminate in a leaf,
// or a handler naming an unknown target. Ancestor paths and depths are
// precomputed here; after Finalize the registry is read-only and may be
// shared by any number of machines.
func (d *Definition) Finalize() (*Registry, error) {
	if len(d.duplicates) > 0 {
		return nil, NewConfigurationError("Definition",
			fmt.Sprintf("duplicate state id '%s'", d.duplicates[0]))
	}

	var root *state
	for _, id := range d.order {
		s := d.states[id]
		if !s.isRoot() {
			continue
		}
		if root != nil {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("multiple roots: '%s' and '%s'", root.id, s.id))
		}
		root = s
	}
	if root == nil {
		return nil, NewConfigurationError("Definition", "no root state declared")
	}

	// Resolve parent links.
	for _, id := range d.order {
		s := d.states[id]
		if s.isRoot() {
			continue
		}
		parent, ok := d.states[s.parent]
		if !ok {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("state '%s' references unknown parent '%s'", s.id, s.parent))
		}
		if parent.kind != KindComposite {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("state '%s' has leaf parent '%s'", s.id, s.parent))
		}
		s.parentState = parent
	}

	// Reject cycles before walking paths.
	for _, id := range d.order {
		if err := d.checkParentCycle(id); err != nil {
			return nil, err
		}
	}

	// Precompute ancestor paths, state first and root last.
	for _, id := range d.order {
		s := d.states[id]
		path := make([]*state, 0, 4)
		for cur := s; cur != nil; cur = cur.parentState {
			path = append(path, cur)
		}
		s.path = path
		s.depth = len(path) - 1
	}

	for composite, child := range d.defaults {
		s, ok := d.states[composite]
		if !ok {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("default child set on unknown state '%s'", composite))
		}
		if s.kind != KindComposite {
			return nil, NewConfigurationError("Definition",
				fmt.Sprintf("default child set on leaf '%s'", composite))
		}
		s.defaultChild = child
	}

	if err := d.checkDefaults(); err != nil {
		return nil, err
	}
	if err := d.checkHandlers(); err != nil {
		return nil, err
	}

	return &Registry{
		states: d.states,
		order:  d.order,
		root:   root,
	}, nil
}

func (d *Definition) checkParentCycle(id StateID) error {
	visited := make(map[StateID]bool)
	for cur := d.states[id]; cur != nil; cur = cur.parentState {
		if visited[cur.id] {
			return NewConfigurationError("Definition",
				fmt.Sprintf("cycle in parent hierarchy at state '%s'", cur.id))
		}
		visited[cur.id] = true
	}
	return nil
}

// checkDefaults verifies every composite carries a default child that is an
// immediate child, and that following default children from any composite
// reaches a leaf without revisiting a state. The missing-default check runs
// as its own pass over all composites first, so a defaultless composite is
// reported as such rather than surfacing as a broken chain walked from one
// of its ancestors.
func (d *Definition) checkDefaults() error {
	for _, id := range d.order {
		s := d.states[id]
		if s.kind == KindComposite && s.defaultChild == "" {
			return NewConfigurationError("Definition",
				fmt.Sprintf("composite '%s' has no default child", s.id))
		}
	}

	for _, id := range d.order {
		s := d.states[id]
		if s.kind != KindComposite {
			continue
		}
		child, ok := d.states[s.defaultChild]
		if !ok {
			return NewConfigurationError("Definition",
				fmt.Sprintf("composite '%s' references unknown default child '%s'", s.id, s.defaultChild))
		}
		if child.parent != s.id {
			return NewConfigurationError("Definition",
				fmt.Sprintf("default child '%s' is not an immediate child of '%s'", child.id, s.id))
		}

		visited := map[StateID]bool{s.id: true}
		cur := child
		for cur.kind == KindComposite {
			if visited[cur.id] {
				return NewConfigurationError("Definition",
					fmt.Sprintf("default-child chain from '%s' cycles at '%s'", s.id, cur.id))
			}
			visited[cur.id] = true
			next, ok := d.states[cur.defaultChild]
			if !ok {
				return NewConfigurationError("Definition",
					fmt.Sprintf("default-child chain from '%s' does not terminate in a leaf", s.id))
			}
			cur = next
		}
	}
	return nil
}

func (d *Definition) checkHandlers() error {
	for _, id := range d.order {
		s := d.states[id]
		for event, target := range s.handlers {
			if event == "" {
				return NewConfigurationError("Definition",
					fmt.Sprintf("state '%s' declares a handler with an empty event name", s.id))
			}
			if _, ok := d.states[target]; !ok {
				return NewConfigurationError("Definition",
					fmt.Sprintf("state '%s' handles '%s' with unknown target '%s'", s.id, event, target))
			}
		}
	}
	return nil
}

// Registry is the validated, immutable state tree. It owns every state
// descriptor for the lifetime of the program and is safe to share across
// goroutines; machines hold non-owning references into it.
type Registry struct {
	states map[StateID]*state
	order  []StateID
	root   *state
}

// Root returns the id of the unique parentless state.
func (r *Registry) Root() StateID {
	return r.root.id
}

// Contains reports whether the registry declares the given id.
func (r *Registry) Contains(id StateID) bool {
	_, ok := r.states[id]
	return ok
}

// States returns all state ids in declaration order.
func (r *Registry) States() []StateID {
	out := make([]StateID, len(r.order))
	copy(out, r.order)
	return out
}

// KindOf returns the kind of a state.
func (r *Registry) KindOf(id StateID) (Kind, bool) {
	s, ok := r.states[id]
	if !ok {
		return 0, false
	}
	return s.kind, true
}

// ParentOf returns the parent id of a state; the root reports an empty id.
func (r *Registry) ParentOf(id StateID) (StateID, bool) {
	s, ok := r.states[id]
	if !ok {
		return "", false
	}
	return s.parent, true
}

// DefaultChildOf returns the default child of a composite.
func (r *Registry) DefaultChildOf(id StateID) (StateID, bool) {
	s, ok := r.states[id]
	if !ok || s.defaultChild == "" {
		return "", false
	}
	return s.defaultChild, true
}

// HandlersOf returns a copy of the handler table of a state.
func (r *Registry) HandlersOf(id StateID) map[string]StateID {
	s, ok := r.states[id]
	if !ok {
		return nil
	}
	out := make(map[string]StateID, len(s.handlers))
	for event, target := range s.handlers {
		out[event] = target
	}
	return out
}

// PathOf returns the ancestor path of a state: the state itself first, the
// root last.
func (r *Registry) PathOf(id StateID) []StateID {
	s, ok := r.states[id]
	if !ok {
		return nil
	}
	out := make([]StateID, len(s.path))
	for i, p := range s.path {
		out[i] = p.id
	}
	return out
}

// DepthOf returns the depth of a state; the root has depth zero.
func (r *Registry) DepthOf(id StateID) (int, bool) {
	s, ok := r.states[id]
	if !ok {
		return 0, false
	}
	return s.depth, true
}

func (r *Registry) lookup(id StateID) (*state, bool) {
	s, ok := r.states[id]
	return s, ok
}
