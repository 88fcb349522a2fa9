package nestfsm

import (
	"context"
)

// Context is what entry and exit actions receive. It carries the hosting
// machine, the event being processed, transition endpoints and a key/value
// bag for application data. Like the machine that owns it, a Context is
// driven by a single goroutine and needs no locking.
type Context interface {
	context.Context

	Get(key string) (any, bool)
	Set(key string, value any)

	Machine() *Machine
	CurrentID() StateID
	SourceID() StateID
	TargetID() StateID

	Event() Event
	EventName() string
	EventData() any
}

// machineContext implements the Context interface
type machineContext struct {
	context.Context
	data    map[string]any
	machine *Machine

	currentState StateID
	sourceState  StateID
	targetState  StateID
	currentEvent Event
}

// newMachineContext creates the context owned by one machine instance.
func newMachineContext(parent context.Context, machine *Machine) *machineContext {
	return &machineContext{
		Context: parent,
		data:    make(map[string]any),
		machine: machine,
	}
}

// Get retrieves a value from the context
func (ctx *machineContext) Get(key string) (any, bool) {
	value, exists := ctx.data[key]
	return value, exists
}

// Set stores a value in the context
func (ctx *machineContext) Set(key string, value any) {
	ctx.data[key] = value
}

// Machine returns the hosting machine
func (ctx *machineContext) Machine() *Machine {
	return ctx.machine
}

// CurrentID returns the id of the machine's current leaf. During a
// transition it still names the source leaf; it is updated once the new
// leaf is settled.
func (ctx *machineContext) CurrentID() StateID {
	return ctx.currentState
}

// SourceID returns the source leaf of the transition in progress
func (ctx *machineContext) SourceID() StateID {
	return ctx.sourceState
}

// TargetID returns the target of the transition in progress
func (ctx *machineContext) TargetID() StateID {
	return ctx.targetState
}

// Event returns the event being processed
func (ctx *machineContext) Event() Event {
	return ctx.currentEvent
}

// EventName returns the name of the event being processed
func (ctx *machineContext) EventName() string {
	return ctx.currentEvent.Name
}

// EventData returns the data of the event being processed
func (ctx *machineContext) EventData() any {
	return ctx.currentEvent.Data
}

// updateTransitionInfo records the endpoints and event of the transition
// about to run.
func (ctx *machineContext) updateTransitionInfo(source, target StateID, event Event) {
	ctx.sourceState = source
	ctx.targetState = target
	ctx.currentEvent = event
}

// updateCurrentState updates only the current state
func (ctx *machineContext) updateCurrentState(id StateID) {
	ctx.currentState = id
}
