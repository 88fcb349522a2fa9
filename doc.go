// Package nestfsm is an embeddable engine for UML-style hierarchical state
// machines. States form a tree of composites and leaves; only a leaf is
// ever current, composites group behavior and name a default child for
// initial descent. A transition between two states runs exactly the exit
// and entry actions between them and their lowest common ancestor, then
// descends through default children until a leaf is current again.
//
// Applications declare the tree on a Definition, finalize it once into an
// immutable Registry, and run any number of Machine instances over it:
//
//	def := nestfsm.NewDefinition()
//	def.Composite("player", "").
//		Leaf("stopped", "player", nestfsm.On("play", "playing")).
//		Leaf("playing", "player", nestfsm.On("stop", "stopped")).
//		DefaultChild("player", "stopped")
//
//	registry, err := def.Finalize()
//	if err != nil {
//		// duplicate ids, broken parent links, missing default children
//	}
//	m := registry.NewMachine()
//	_ = m.Start()
//	m.Dispatch("play", nil)
//
// Dispatch walks the current leaf's ancestor chain for the nearest handler,
// so an event a leaf does not understand falls through to the composite
// that does. Unhandled events are normal and leave the machine untouched.
//
// Parallel regions, history states and timed events are out of scope. A
// machine is not safe for concurrent dispatch; the registry is immutable
// and may be shared freely.
package nestfsm
