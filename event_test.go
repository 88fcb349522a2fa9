package nestfsm

import (
	"testing"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("submit", 42)

	if event.Name != "submit" {
		t.Errorf("Expected event name 'submit', got '%s'", event.Name)
	}
	if event.Data != 42 {
		t.Errorf("Expected event data 42, got %v", event.Data)
	}
	if event.Timestamp.IsZero() {
		t.Error("Expected event to be timestamped")
	}
}

func TestDispatchResult_Success(t *testing.T) {
	result := NewDispatchResult(true, true, "a", "b")
	if !result.Success() {
		t.Error("Expected handled result without error to be a success")
	}

	result = result.WithError(NewMachineNotStartedError("Dispatch"))
	if result.Success() {
		t.Error("Expected result with error not to be a success")
	}
}

func TestDispatchResult_WithRejection(t *testing.T) {
	result := NewDispatchResult(true, false, "a", "a").WithRejection("no handler")

	if result.Handled {
		t.Error("Expected rejection to clear Handled")
	}
	if result.RejectionReason != "no handler" {
		t.Errorf("Expected rejection reason to be kept, got %q", result.RejectionReason)
	}
}
