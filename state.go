package nestfsm

// StateID identifies a state within a registry. IDs are application-chosen
// and must be unique across the whole tree.
type StateID string

// Kind distinguishes grouping states from terminal states.
type Kind int

const (
	// KindComposite is a grouping state. It is never current; it exists to
	// group behavior and to name a default child for initial descent.
	KindComposite Kind = iota
	// KindLeaf is a terminal state, the only kind a machine holds as current.
	KindLeaf
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindComposite:
		return "composite"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// ActionFunc is an entry or exit action. A returned error is logged and
// forwarded to observers but never alters the transition in progress.
type ActionFunc func(ctx Context) error

// StateOption configures a state at declaration time.
type StateOption func(*state)

// OnEntry sets the entry action for the state.
func OnEntry(action ActionFunc) StateOption {
	return func(s *state) {
		s.entry = action
	}
}

// OnExit sets the exit action for the state.
func OnExit(action ActionFunc) StateOption {
	return func(s *state) {
		s.exit = action
	}
}

// On maps an event name to a transition target. Handlers are usually
// declared on leaves; a handler on a composite answers events that none of
// its currently active descendants handle.
func On(event string, target StateID) StateOption {
	return func(s *state) {
		if s.handlers == nil {
			s.handlers = make(map[string]StateID)
		}
		s.handlers[event] = target
	}
}

// state is the immutable descriptor for one node of the tree. Parent links,
// ancestor paths and depth are resolved once by Definition.Finalize.
type state struct {
	id           StateID
	kind         Kind
	parent       StateID
	entry        ActionFunc
	exit         ActionFunc
	defaultChild StateID
	handlers     map[string]StateID

	parentState *state
	path        []*state // this state first, root last
	depth       int
}

// isRoot reports whether the state has no parent.
func (s *state) isRoot() bool {
	return s.parent == ""
}

// handlerTarget looks up the transition target this state declares for an
// event, if any.
func (s *state) handlerTarget(event string) (StateID, bool) {
	target, ok := s.handlers[event]
	return target, ok
}
