package nestfsm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMachine_StartEntersInitialLeaf(t *testing.T) {
	tr := newActionTrace()
	registry := newNestedRegistry(t, tr)
	m := registry.NewMachine()

	if m.CurrentID() != "" {
		t.Errorf("Expected no current state before Start, got %s", m.CurrentID())
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	AssertState(t, m, "A2")
	AssertTrace(t, tr, "entry(A)", "entry(A2)")
}

func TestMachine_StartTwice(t *testing.T) {
	tr := newActionTrace()
	m := startedMachine(t, tr)

	err := m.Start()
	if err == nil {
		t.Fatal("Expected second Start to fail")
	}
	if GetErrorCode(err) != ErrCodeAlreadyStarted {
		t.Errorf("Expected ErrCodeAlreadyStarted, got %v", GetErrorCode(err))
	}
}

func TestMachine_DispatchBeforeStart(t *testing.T) {
	tr := newActionTrace()
	registry := newNestedRegistry(t, tr)
	m := registry.NewMachine()

	result := m.Dispatch("toB", nil)
	AssertHandled(t, result, false)
	if !IsMachineError(result.Err) {
		t.Errorf("Expected a MachineError, got %v", result.Err)
	}
	if GetErrorCode(result.Err) != ErrCodeMachineNotStarted {
		t.Errorf("Expected ErrCodeMachineNotStarted, got %v", GetErrorCode(result.Err))
	}
}

func TestMachine_UnhandledEventLeavesStateUntouched(t *testing.T) {
	tr := newActionTrace()
	m := startedMachine(t, tr)

	result := m.Dispatch("bogus", nil)
	AssertHandled(t, result, false)
	if result.StateChanged {
		t.Error("Expected no state change for unhandled event")
	}
	if result.Err != nil {
		t.Errorf("Unhandled event is not an error, got %v", result.Err)
	}
	if result.RejectionReason == "" {
		t.Error("Expected a rejection reason")
	}
	AssertState(t, m, "A2")
	AssertTrace(t, tr)
}

func TestMachine_EmptyEventName(t *testing.T) {
	tr := newActionTrace()
	m := startedMachine(t, tr)

	result := m.Dispatch("  ", nil)
	AssertHandled(t, result, false)
	if GetErrorCode(result.Err) != ErrCodeInvalidEvent {
		t.Errorf("Expected ErrCodeInvalidEvent, got %v", GetErrorCode(result.Err))
	}
	AssertState(t, m, "A2")
}

func TestMachine_EventBubblesToAncestorHandler(t *testing.T) {
	tr := newActionTrace()
	m := startedMachine(t, tr)

	// "reset" is declared on Root, not on the current leaf A2.
	result := m.Dispatch("reset", nil)
	AssertHandled(t, result, true)
	AssertState(t, m, "A2")
}

func TestMachine_DispatchResultFields(t *testing.T) {
	tr := newActionTrace()
	m := startedMachine(t, tr)

	result := m.Dispatch("toB", nil)
	if !result.Success() {
		t.Fatalf("Expected success, rejection: %q err: %v", result.RejectionReason, result.Err)
	}
	if result.PreviousState != "A2" || result.CurrentState != "B" {
		t.Errorf("Expected A2 -> B, got %s -> %s", result.PreviousState, result.CurrentState)
	}
	if !result.StateChanged {
		t.Error("Expected StateChanged")
	}
}

func TestMachine_ReentrantDispatchRejected(t *testing.T) {
	var reentrant *DispatchResult
	def := NewDefinition()
	def.Composite("Root", "")
	def.Leaf("a", "Root", On("go", "b"))
	def.Leaf("b", "Root", OnEntry(func(ctx Context) error {
		reentrant = ctx.Machine().Dispatch("back", nil)
		return nil
	}), On("back", "a"))
	def.DefaultChild("Root", "a")

	registry, err := def.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	m := registry.NewMachine()
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result := m.Dispatch("go", nil)
	AssertHandled(t, result, true)
	AssertState(t, m, "b")

	if reentrant == nil {
		t.Fatal("Expected entry action to have dispatched")
	}
	AssertHandled(t, reentrant, false)
	if GetErrorCode(reentrant.Err) != ErrCodeReentrantDispatch {
		t.Errorf("Expected ErrCodeReentrantDispatch, got %v", GetErrorCode(reentrant.Err))
	}
}

func TestMachine_ActionErrorsDoNotAbortTransition(t *testing.T) {
	def := NewDefinition()
	def.Composite("Root", "")
	def.Leaf("a", "Root",
		OnExit(func(ctx Context) error { return errors.New("exit boom") }),
		On("go", "b"))
	def.Leaf("b", "Root",
		OnEntry(func(ctx Context) error { panic("entry boom") }))
	def.DefaultChild("Root", "a")

	registry, err := def.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	observer := newTestObserver()
	m := registry.NewMachine(WithObserver(observer))
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result := m.Dispatch("go", nil)
	AssertHandled(t, result, true)
	AssertState(t, m, "b")

	if len(observer.errors) != 2 {
		t.Fatalf("Expected 2 action errors reported, got %d", len(observer.errors))
	}
}

func TestMachine_PathAndIsIn(t *testing.T) {
	tr := newActionTrace()
	m := startedMachine(t, tr)

	path := m.Path()
	want := []StateID{"A2", "A", "Root"}
	if len(path) != len(want) {
		t.Fatalf("Expected path %v, got %v", want, path)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("Expected path %v, got %v", want, path)
		}
	}

	if !m.IsIn("A2") || !m.IsIn("A") || !m.IsIn("Root") {
		t.Error("Expected leaf and all ancestors to be active")
	}
	if m.IsIn("B") || m.IsIn("A1") {
		t.Error("Expected sibling states to be inactive")
	}
}

func TestMachine_SnapshotRoundTrip(t *testing.T) {
	tr := newActionTrace()
	registry := newNestedRegistry(t, tr)

	m := registry.NewMachine()
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.Dispatch("toB", nil)
	AssertState(t, m, "B")

	snapshot, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	// Restoring into a recorded leaf installs it directly, with no entry
	// actions.
	restored := registry.NewMachine()
	tr.take()
	if err := json.Unmarshal(snapshot, restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	AssertState(t, restored, "B")
	AssertTrace(t, tr)

	result := restored.Dispatch("toA2", nil)
	AssertHandled(t, result, true)
	AssertState(t, restored, "A2")
}

func TestMachine_RestoreIntoComposite(t *testing.T) {
	tr := newActionTrace()
	registry := newNestedRegistry(t, tr)

	m := registry.NewMachine()
	tr.take()

	// Resuming into a composite re-enters through descent semantics.
	if err := m.Restore("A"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	AssertState(t, m, "A2")
	AssertTrace(t, tr, "entry(A2)")
}

func TestMachine_RestoreUnknownState(t *testing.T) {
	tr := newActionTrace()
	registry := newNestedRegistry(t, tr)
	m := registry.NewMachine()

	err := m.Restore("ghost")
	if !IsStateError(err) {
		t.Fatalf("Expected a StateError, got %v", err)
	}
}

func TestMachine_MarshalBeforeStart(t *testing.T) {
	tr := newActionTrace()
	registry := newNestedRegistry(t, tr)
	m := registry.NewMachine()

	if _, err := json.Marshal(m); err == nil {
		t.Fatal("Expected Marshal of an unstarted machine to fail")
	}
}

func TestMachine_ObserverNotifications(t *testing.T) {
	tr := newActionTrace()
	registry := newNestedRegistry(t, tr)

	observer := newTestObserver()
	m := registry.NewMachine(WithObserver(observer))
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if observer.started != 1 {
		t.Errorf("Expected 1 started notification, got %d", observer.started)
	}
	if len(observer.enters) != 2 {
		t.Errorf("Expected 2 enter notifications from start, got %d", len(observer.enters))
	}

	m.Dispatch("toB", nil)
	if len(observer.transitions) != 1 || observer.transitions[0] != "A2->B on toB" {
		t.Errorf("Unexpected transition notifications: %v", observer.transitions)
	}
	if len(observer.exits) != 2 {
		t.Errorf("Expected exits [A2 A], got %v", observer.exits)
	}

	m.Dispatch("bogus", nil)
	if len(observer.rejected) != 1 {
		t.Errorf("Expected 1 rejection notification, got %d", len(observer.rejected))
	}
}

func TestMachine_ContextCarriesEventAndEndpoints(t *testing.T) {
	var name string
	var data any
	var source, target StateID

	def := NewDefinition()
	def.Composite("Root", "")
	def.Leaf("a", "Root", On("go", "b"))
	def.Leaf("b", "Root", OnEntry(func(ctx Context) error {
		name = ctx.EventName()
		data = ctx.EventData()
		source = ctx.SourceID()
		target = ctx.TargetID()
		return nil
	}))
	def.DefaultChild("Root", "a")

	registry, err := def.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	m := registry.NewMachine()
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	m.Dispatch("go", 42)
	if name != "go" || data != 42 {
		t.Errorf("Expected event go/42 in context, got %s/%v", name, data)
	}
	if source != "a" || target != "b" {
		t.Errorf("Expected endpoints a -> b, got %s -> %s", source, target)
	}
}

func TestMachine_ContextDataBag(t *testing.T) {
	tr := newActionTrace()
	m := startedMachine(t, tr)

	ctx := m.Context()
	ctx.Set("count", 7)
	if v, ok := ctx.Get("count"); !ok || v != 7 {
		t.Errorf("Expected count=7 in context bag, got %v (ok=%v)", v, ok)
	}
	if ctx.Machine() != m {
		t.Error("Expected context to reference its machine")
	}
}
