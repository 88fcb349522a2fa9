package nestfsm

import (
	"time"
)

// Event is a trigger for transitions. Only the name participates in handler
// lookup; Data travels to actions through the machine context.
type Event struct {
	Name      string
	Data      any
	Timestamp time.Time
}

// NewEvent creates a new event stamped with the current time.
func NewEvent(name string, data any) Event {
	return Event{
		Name:      name,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// DispatchResult represents the outcome of dispatching one event.
type DispatchResult struct {
	// Handled is true when some state in the current ancestor chain declared
	// a handler for the event and the transition ran to completion.
	Handled bool
	// StateChanged is true when the current leaf changed, or when a
	// self-transition re-entered it.
	StateChanged    bool
	PreviousState   StateID
	CurrentState    StateID
	Err             error
	RejectionReason string
}

// NewDispatchResult creates a new dispatch result
func NewDispatchResult(handled, stateChanged bool, prev, current StateID) *DispatchResult {
	return &DispatchResult{
		Handled:       handled,
		StateChanged:  stateChanged,
		PreviousState: prev,
		CurrentState:  current,
	}
}

// WithError adds an error to the dispatch result
func (r *DispatchResult) WithError(err error) *DispatchResult {
	r.Err = err
	return r
}

// WithRejection adds a rejection reason to the dispatch result
func (r *DispatchResult) WithRejection(reason string) *DispatchResult {
	r.RejectionReason = reason
	r.Handled = false
	return r
}

// Success returns true if the event was handled without a lifecycle error
func (r *DispatchResult) Success() bool {
	return r.Handled && r.Err == nil
}
