package nestfsm

import (
	"reflect"
	"testing"
)

// actionTrace records entry/exit action execution so tests can assert the
// exact chain order of a transition.
type actionTrace struct {
	calls []string
}

func newActionTrace() *actionTrace {
	return &actionTrace{calls: make([]string, 0)}
}

func (tr *actionTrace) entry(id StateID) ActionFunc {
	return func(ctx Context) error {
		tr.calls = append(tr.calls, "entry("+string(id)+")")
		return nil
	}
}

func (tr *actionTrace) exit(id StateID) ActionFunc {
	return func(ctx Context) error {
		tr.calls = append(tr.calls, "exit("+string(id)+")")
		return nil
	}
}

// traced returns the entry and exit options for one state in a single call.
func (tr *actionTrace) traced(id StateID) []StateOption {
	return []StateOption{OnEntry(tr.entry(id)), OnExit(tr.exit(id))}
}

// take returns the recorded calls and clears the trace.
func (tr *actionTrace) take() []string {
	out := tr.calls
	tr.calls = make([]string, 0)
	return out
}

// newNestedRegistry builds the canonical test tree:
//
//	Root(composite, default=A)
//	├── A(composite, default=A2)
//	│   ├── A1(leaf)  swap → A2, self → A1, up → A
//	│   └── A2(leaf)  toB → B, swap → A1
//	└── B(leaf)       toA2 → A2, toA → A
//
// Root additionally handles "reset" by re-entering A, exercising a handler
// declared on an ancestor composite.
func newNestedRegistry(t *testing.T, tr *actionTrace) *Registry {
	t.Helper()

	def := NewDefinition()
	def.Composite("Root", "", withTrace(tr, "Root", On("reset", "A"))...)
	def.Composite("A", "Root", withTrace(tr, "A")...)
	def.Leaf("A1", "A", withTrace(tr, "A1", On("swap", "A2"), On("self", "A1"), On("up", "A"))...)
	def.Leaf("A2", "A", withTrace(tr, "A2", On("toB", "B"), On("swap", "A1"))...)
	def.Leaf("B", "Root", withTrace(tr, "B", On("toA2", "A2"), On("toA", "A"))...)
	def.DefaultChild("Root", "A")
	def.DefaultChild("A", "A2")

	registry, err := def.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed for nested test tree: %v", err)
	}
	return registry
}

// withTrace combines the trace options for a state with any extra options.
func withTrace(tr *actionTrace, id StateID, extra ...StateOption) []StateOption {
	return append(tr.traced(id), extra...)
}

// startedMachine builds the canonical tree, starts a machine on it and
// clears the start-up trace so tests see only their own transitions.
func startedMachine(t *testing.T, tr *actionTrace) *Machine {
	t.Helper()

	registry := newNestedRegistry(t, tr)
	m := registry.NewMachine()
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tr.take()
	return m
}

// AssertState checks if the machine's current leaf matches
func AssertState(t *testing.T, m *Machine, expected StateID) {
	t.Helper()
	if current := m.CurrentID(); current != expected {
		t.Errorf("Expected state %s, got %s", expected, current)
	}
}

// AssertTrace checks the recorded action sequence matches exactly. With no
// expected entries it asserts that no actions ran; the nil variadic slice and
// the trace's empty slice compare equal here.
func AssertTrace(t *testing.T, tr *actionTrace, expected ...string) {
	t.Helper()
	got := tr.take()
	if len(got) == 0 && len(expected) == 0 {
		return
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected trace %v, got %v", expected, got)
	}
}

// AssertHandled checks whether the dispatch result reports handled
func AssertHandled(t *testing.T, result *DispatchResult, want bool) {
	t.Helper()
	if result.Handled != want {
		if want {
			t.Errorf("Expected event to be handled, rejection: %q, err: %v", result.RejectionReason, result.Err)
		} else {
			t.Error("Expected event to be unhandled")
		}
	}
}

// AssertConfigurationError checks that Finalize rejected a definition
func AssertConfigurationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected a ConfigurationError, got nil")
	}
	if !IsConfigurationError(err) {
		t.Fatalf("Expected a ConfigurationError, got %T: %v", err, err)
	}
}

// testObserver captures observer callbacks for assertions.
type testObserver struct {
	transitions []string
	enters      []StateID
	exits       []StateID
	rejected    []string
	errors      []error
	started     int
}

func newTestObserver() *testObserver {
	return &testObserver{}
}

func (o *testObserver) OnTransition(from, to StateID, event Event, ctx Context) {
	o.transitions = append(o.transitions, string(from)+"->"+string(to)+" on "+event.Name)
}

func (o *testObserver) OnStateEnter(state StateID, ctx Context) {
	o.enters = append(o.enters, state)
}

func (o *testObserver) OnStateExit(state StateID, ctx Context) {
	o.exits = append(o.exits, state)
}

func (o *testObserver) OnEventRejected(event Event, reason string, ctx Context) {
	o.rejected = append(o.rejected, event.Name)
}

func (o *testObserver) OnError(err error, ctx Context) {
	o.errors = append(o.errors, err)
}

func (o *testObserver) OnMachineStarted(ctx Context) {
	o.started++
}
