package nestfsm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// machineStatus tracks the machine lifecycle. transitioning is never
// observable from outside: Dispatch is synchronous and returns only once
// the machine is idle again. Its only external effect is that a re-entrant
// Dispatch from inside an action is rejected instead of corrupting the
// chains.
type machineStatus int

const (
	machineUninitialized machineStatus = iota
	machineIdle
	machineTransitioning
)

// Machine is one running instance over a shared registry. Its entire
// runtime state is the reference to the current leaf. A machine must be
// driven by a single goroutine at a time; external serialization is the
// caller's responsibility when events arrive from several. The registry it
// references is immutable and freely shared.
type Machine struct {
	id        string
	registry  *Registry
	current   *state
	status    machineStatus
	ctx       *machineContext
	observers *ObserverManager
	logger    *slog.Logger
}

// MachineOption configures a machine at creation time.
type MachineOption func(*Machine)

// WithLogger sets the logger used for lifecycle and dispatch debug logs.
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithContext sets the parent context embedded in the machine's Context.
func WithContext(parent context.Context) MachineOption {
	return func(m *Machine) {
		m.ctx = newMachineContext(parent, m)
	}
}

// WithObserver registers an observer at creation time.
func WithObserver(observer Observer) MachineOption {
	return func(m *Machine) {
		m.observers.AddObserver(observer)
	}
}

// NewMachine creates a machine instance over the registry. Any number of
// machines may share one registry.
func (r *Registry) NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		id:        uuid.New().String(),
		registry:  r,
		status:    machineUninitialized,
		observers: NewObserverManager(),
		logger:    slog.Default(),
	}
	m.ctx = newMachineContext(context.Background(), m)

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the unique instance id of this machine.
func (m *Machine) ID() string {
	return m.id
}

// Registry returns the shared registry this machine runs over.
func (m *Machine) Registry() *Registry {
	return m.registry
}

// Context returns the machine's execution context.
func (m *Machine) Context() Context {
	return m.ctx
}

// AddObserver registers an observer.
func (m *Machine) AddObserver(observer Observer) {
	m.observers.AddObserver(observer)
}

// RemoveObserver unregisters an observer.
func (m *Machine) RemoveObserver(observer Observer) {
	m.observers.RemoveObserver(observer)
}

// Start enters the initial leaf by descending from the root through default
// children. It is the only operation allowed before the first event is
// dispatched, and it may run only once.
func (m *Machine) Start() error {
	if m.status != machineUninitialized {
		return NewMachineError(ErrCodeAlreadyStarted, "Start", "machine is already started")
	}

	m.status = machineTransitioning
	m.descend(m.registry.root)
	m.status = machineIdle

	m.logger.Debug("machine started",
		"machine", m.id,
		"current", string(m.current.id))
	m.observers.NotifyMachineStarted(m.ctx)
	return nil
}

// CurrentID returns the id of the current leaf, or an empty id before Start.
func (m *Machine) CurrentID() StateID {
	if m.current == nil {
		return ""
	}
	return m.current.id
}

// Path returns the ancestor ids of the current leaf, leaf first, root last.
func (m *Machine) Path() []StateID {
	if m.current == nil {
		return nil
	}
	out := make([]StateID, len(m.current.path))
	for i, s := range m.current.path {
		out[i] = s.id
	}
	return out
}

// IsIn reports whether the given state is active: the current leaf itself
// or any of its ancestors.
func (m *Machine) IsIn(id StateID) bool {
	if m.current == nil {
		return false
	}
	for _, s := range m.current.path {
		if s.id == id {
			return true
		}
	}
	return false
}

// Dispatch delivers one event. The handler lookup starts at the current
// leaf and walks up the ancestor path until a state declares a handler for
// the event; the event falls through to the nearest ancestor that
// understands it. An exhausted chain is not an error: the result reports
// Handled=false and the current leaf is untouched. A matched handler runs
// the full transition (exit chain, entry chain, initial descent) before
// Dispatch returns.
func (m *Machine) Dispatch(eventName string, eventData any) *DispatchResult {
	switch m.status {
	case machineUninitialized:
		return NewDispatchResult(false, false, m.CurrentID(), m.CurrentID()).
			WithRejection("machine is not started").
			WithError(NewMachineNotStartedError("Dispatch"))
	case machineTransitioning:
		return NewDispatchResult(false, false, m.CurrentID(), m.CurrentID()).
			WithRejection("dispatch re-entered from an action").
			WithError(NewMachineError(ErrCodeReentrantDispatch, "Dispatch",
				"dispatch must not be re-entered from an entry or exit action"))
	}

	event := NewEvent(eventName, eventData)

	if strings.TrimSpace(eventName) == "" {
		reason := "event name cannot be empty"
		m.observers.NotifyEventRejected(event, reason, m.ctx)
		return NewDispatchResult(false, false, m.CurrentID(), m.CurrentID()).
			WithRejection(reason).
			WithError(NewMachineError(ErrCodeInvalidEvent, "Dispatch", reason))
	}

	target, owner := m.findHandler(eventName)
	if target == nil {
		reason := fmt.Sprintf("no handler for event '%s' from state '%s'", eventName, m.current.id)
		m.logger.Debug("event unhandled",
			"machine", m.id,
			"event", eventName,
			"current", string(m.current.id))
		m.observers.NotifyEventRejected(event, reason, m.ctx)
		return NewDispatchResult(false, false, m.current.id, m.current.id).
			WithRejection(reason)
	}

	previous := m.current.id
	m.ctx.updateTransitionInfo(previous, target.id, event)

	m.status = machineTransitioning
	exited := m.performTransition(m.current, target)
	m.status = machineIdle

	m.logger.Debug("transition complete",
		"machine", m.id,
		"event", eventName,
		"handler", string(owner.id),
		"from", string(previous),
		"to", string(m.current.id))
	m.observers.NotifyTransition(previous, m.current.id, event, m.ctx)

	// Exiting and re-entering the same leaf counts as a change, whether the
	// transition targeted the leaf itself or an ancestor whose descent lands
	// back on it.
	stateChanged := exited || previous != m.current.id
	return NewDispatchResult(true, stateChanged, previous, m.current.id)
}

// findHandler walks the current leaf's ancestor path and returns the
// transition target of the nearest state handling the event, together with
// the state that declared it.
func (m *Machine) findHandler(eventName string) (target, owner *state) {
	for _, s := range m.current.path {
		if targetID, ok := s.handlerTarget(eventName); ok {
			t, _ := m.registry.lookup(targetID)
			return t, s
		}
	}
	return nil, nil
}

// enterState runs a state's entry action and notifies observers. Action
// failures are reported but never interrupt the chain.
func (m *Machine) enterState(s *state) {
	if s.entry != nil {
		if err := safeExecuteAction(s.entry, m.ctx); err != nil {
			m.logger.Error("entry action failed",
				"machine", m.id,
				"state", string(s.id),
				"error", err)
			m.observers.NotifyError(err, m.ctx)
		}
	}
	m.observers.NotifyStateEnter(s.id, m.ctx)
}

// exitState runs a state's exit action and notifies observers.
func (m *Machine) exitState(s *state) {
	if s.exit != nil {
		if err := safeExecuteAction(s.exit, m.ctx); err != nil {
			m.logger.Error("exit action failed",
				"machine", m.id,
				"state", string(s.id),
				"error", err)
			m.observers.NotifyError(err, m.ctx)
		}
	}
	m.observers.NotifyStateExit(s.id, m.ctx)
}

// safeExecuteAction runs an action with panic recovery, so a misbehaving
// callback cannot abort a transition mid-chain.
func safeExecuteAction(action ActionFunc, ctx Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panic: %v", r)
		}
	}()

	err = action(ctx)
	return err
}

// Restore resumes a machine from a recorded state id. Resuming into the
// recorded leaf installs it directly with no entry actions; resuming into a
// composite re-enters through initial descent semantics.
func (m *Machine) Restore(id StateID) error {
	s, ok := m.registry.lookup(id)
	if !ok {
		return NewStateNotFoundError(id)
	}

	if s.kind == KindLeaf {
		m.current = s
		m.ctx.updateCurrentState(s.id)
	} else {
		m.status = machineTransitioning
		m.descend(s)
	}
	m.status = machineIdle
	return nil
}

// machineSnapshot is the persisted form of a machine: the current leaf id
// is its entire runtime state.
type machineSnapshot struct {
	Current StateID `json:"current"`
}

// MarshalJSON snapshots the machine as its current leaf id.
func (m *Machine) MarshalJSON() ([]byte, error) {
	if m.status == machineUninitialized {
		return nil, NewMachineNotStartedError("MarshalJSON")
	}
	return json.Marshal(machineSnapshot{Current: m.current.id})
}

// UnmarshalJSON restores the machine from a snapshot via Restore.
func (m *Machine) UnmarshalJSON(data []byte) error {
	var snap machineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.Current == "" {
		return NewMachineError(ErrCodeInvalidConfiguration, "UnmarshalJSON", "snapshot has no current state")
	}
	return m.Restore(snap.Current)
}
