package nestfsm

import "fmt"

// ErrorCode represents specific error conditions in the engine
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// State was not found in the registry
	ErrCodeStateNotFound
	// Registry configuration is invalid
	ErrCodeInvalidConfiguration
	// Machine is not in started state
	ErrCodeMachineNotStarted
	// Machine has already been started
	ErrCodeAlreadyStarted
	// Dispatch was re-entered from inside an entry or exit action
	ErrCodeReentrantDispatch
	// Event is invalid for current context
	ErrCodeInvalidEvent
)

// ConfigurationError reports a tree that failed validation at Finalize.
// The engine never starts on a registry that produced one.
type ConfigurationError struct {
	Component string
	Issue     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, issue string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Issue:     issue,
	}
}

// StateError represents state-related errors
type StateError struct {
	Code    ErrorCode
	StateID StateID
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error [%s]: %s", e.StateID, e.Message)
}

// NewStateNotFoundError creates a new state not found error
func NewStateNotFoundError(stateID StateID) *StateError {
	return &StateError{
		Code:    ErrCodeStateNotFound,
		StateID: stateID,
		Message: fmt.Sprintf("state '%s' not found", stateID),
	}
}

// MachineError represents machine lifecycle and dispatch misuse errors
type MachineError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("machine error during %s: %s", e.Operation, e.Message)
}

// NewMachineError creates a new machine error
func NewMachineError(code ErrorCode, operation string, message string) *MachineError {
	return &MachineError{
		Code:      code,
		Operation: operation,
		Message:   message,
	}
}

// NewMachineNotStartedError creates a new machine not started error
func NewMachineNotStartedError(operation string) *MachineError {
	return &MachineError{
		Code:      ErrCodeMachineNotStarted,
		Operation: operation,
		Message:   "machine is not started",
	}
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}

// IsStateError checks if an error is a StateError
func IsStateError(err error) bool {
	_, ok := err.(*StateError)
	return ok
}

// IsMachineError checks if an error is a MachineError
func IsMachineError(err error) bool {
	_, ok := err.(*MachineError)
	return ok
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch e := err.(type) {
	case *StateError:
		return e.Code
	case *MachineError:
		return e.Code
	case *ConfigurationError:
		return ErrCodeInvalidConfiguration
	default:
		return ErrCodeNone
	}
}
