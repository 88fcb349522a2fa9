package nestfsm

import "fmt"

// Observer represents an entity that observes machine lifecycle
type Observer interface {
	// OnTransition is called once per handled event, after the exit chain,
	// entry chain and initial descent have all completed
	OnTransition(from, to StateID, event Event, ctx Context)

	// OnStateEnter is called for every state entered, in entry order
	OnStateEnter(state StateID, ctx Context)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	// OnStateExit is called for every state exited, in exit order
	OnStateExit(state StateID, ctx Context)

	// OnEventRejected is called when an event found no handler in the chain
	OnEventRejected(event Event, reason string, ctx Context)

	// OnError is called when an entry or exit action fails
	OnError(err error, ctx Context)

	// OnMachineStarted is called when the machine settles on its initial leaf
	OnMachineStarted(ctx Context)
}

// BaseObserver provides a default implementation with no-op methods
type BaseObserver struct{}

// OnTransition implements the required Observer method
func (o *BaseObserver) OnTransition(from, to StateID, event Event, ctx Context) {
	// Default implementation - no operation
}

// OnStateEnter implements the required Observer method
func (o *BaseObserver) OnStateEnter(state StateID, ctx Context) {
	// Default implementation - no operation
}

// OnStateExit implements the optional ExtendedObserver method
func (o *BaseObserver) OnStateExit(state StateID, ctx Context) {
	// Default implementation - no operation
}

// OnEventRejected implements the optional ExtendedObserver method
func (o *BaseObserver) OnEventRejected(event Event, reason string, ctx Context) {
	// Default implementation - no operation
}

// OnError implements the optional ExtendedObserver method
func (o *BaseObserver) OnError(err error, ctx Context) {
	// Default implementation - no operation
}

// OnMachineStarted implements the optional ExtendedObserver method
func (o *BaseObserver) OnMachineStarted(ctx Context) {
	// Default implementation - no operation
}

// ObserverManager manages a collection of observers
type ObserverManager struct {
	observers []Observer
}

// NewObserverManager creates a new observer manager
func NewObserverManager() *ObserverManager {
	return &ObserverManager{
		observers: make([]Observer, 0),
	}
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			break
		}
	}
}

// safeNotify invokes one observer callback with panic isolation. A panicking
// observer is reported through its own OnError when it implements
// ExtendedObserver, and never disturbs the machine.
func safeNotify(observer Observer, ctx Context, method string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if extObs, ok := observer.(ExtendedObserver); ok {
				func() {
					defer func() { _ = recover() }()
					extObs.OnError(fmt.Errorf("observer panic in %s: %v", method, r), ctx)
				}()
			}
		}
	}()
	fn()
}

// NotifyTransition notifies all observers of a completed transition
func (om *ObserverManager) NotifyTransition(from, to StateID, event Event, ctx Context) {
	for _, observer := range om.snapshot() {
		observer := observer
		safeNotify(observer, ctx, "OnTransition", func() {
			observer.OnTransition(from, to, event, ctx)
		})
	}
}

// NotifyStateEnter notifies all observers of state entry
func (om *ObserverManager) NotifyStateEnter(state StateID, ctx Context) {
	for _, observer := range om.snapshot() {
		observer := observer
		safeNotify(observer, ctx, "OnStateEnter", func() {
			observer.OnStateEnter(state, ctx)
		})
	}
}

// NotifyStateExit notifies all observers of state exit
func (om *ObserverManager) NotifyStateExit(state StateID, ctx Context) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			safeNotify(observer, ctx, "OnStateExit", func() {
				extObs.OnStateExit(state, ctx)
			})
		}
	}
}

// NotifyEventRejected notifies all observers of event rejection
func (om *ObserverManager) NotifyEventRejected(event Event, reason string, ctx Context) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			safeNotify(observer, ctx, "OnEventRejected", func() {
				extObs.OnEventRejected(event, reason, ctx)
			})
		}
	}
}

// NotifyError notifies all observers of action errors
func (om *ObserverManager) NotifyError(err error, ctx Context) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			safeNotify(observer, ctx, "OnError", func() {
				extObs.OnError(err, ctx)
			})
		}
	}
}

// NotifyMachineStarted notifies all observers that the machine has started
func (om *ObserverManager) NotifyMachineStarted(ctx Context) {
	for _, observer := range om.snapshot() {
		if extObs, ok := observer.(ExtendedObserver); ok {
			safeNotify(observer, ctx, "OnMachineStarted", func() {
				extObs.OnMachineStarted(ctx)
			})
		}
	}
}

// snapshot copies the observer list so notification survives observers
// removing themselves mid-callback.
func (om *ObserverManager) snapshot() []Observer {
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}
