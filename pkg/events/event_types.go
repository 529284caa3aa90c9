// pkg/events/event_types.go
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType constants for mutation outcome notifications
const (
	EventTypeMutationSucceeded = "mutation-succeeded"
	EventTypeMutationFailed    = "mutation-failed"
)

// Severity constants
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
	SeverityInfo    = "info"
)

// Operation constants, one per mutation kind
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationMove   = "move"
)

// Event is a user-facing notification about a finished mutation.
type Event struct {
	Type       string
	Severity   string
	Operation  string
	TaskID     int64
	MutationID uuid.UUID
	Message    string
	Reason     string
	At         time.Time
}

// Succeeded builds the success notification for an operation.
func Succeeded(operation string, taskID int64, mutationID uuid.UUID) Event {
	return Event{
		Type:       EventTypeMutationSucceeded,
		Severity:   SeveritySuccess,
		Operation:  operation,
		TaskID:     taskID,
		MutationID: mutationID,
		Message:    SuccessMessage(operation),
		At:         time.Now(),
	}
}

// Failed builds the failure notification for an operation; reason carries the
// underlying error text.
func Failed(operation string, taskID int64, mutationID uuid.UUID, reason string) Event {
	return Event{
		Type:       EventTypeMutationFailed,
		Severity:   SeverityError,
		Operation:  operation,
		TaskID:     taskID,
		MutationID: mutationID,
		Message:    FailureMessage(operation),
		Reason:     reason,
		At:         time.Now(),
	}
}

// SuccessMessage returns the banner text shown when an operation succeeds.
func SuccessMessage(operation string) string {
	switch operation {
	case OperationCreate:
		return "✅ Task created successfully!"
	case OperationUpdate, OperationMove:
		return "✅ Task updated successfully!"
	case OperationDelete:
		return "✅ Task deleted successfully!"
	default:
		return "✅ Done"
	}
}

// FailureMessage returns the banner text shown when an operation fails.
func FailureMessage(operation string) string {
	switch operation {
	case OperationCreate:
		return "❌ Failed to create task"
	case OperationUpdate, OperationMove:
		return "❌ Failed to update task"
	case OperationDelete:
		return "❌ Failed to delete task"
	default:
		return "❌ Operation failed"
	}
}

// ParseEventType validates an event type string
func ParseEventType(eventType string) (string, error) {
	switch eventType {
	case EventTypeMutationSucceeded, EventTypeMutationFailed:
		return eventType, nil
	default:
		return "", fmt.Errorf("unknown event type: %s", eventType)
	}
}

// ParseSeverity validates a severity string
func ParseSeverity(severity string) (string, error) {
	switch severity {
	case SeveritySuccess, SeverityError, SeverityInfo:
		return severity, nil
	default:
		return "", fmt.Errorf("unknown severity: %s", severity)
	}
}

// ValidEventTypes returns all valid event type strings
func ValidEventTypes() []string {
	return []string{
		EventTypeMutationSucceeded,
		EventTypeMutationFailed,
	}
}

// ValidSeverities returns all valid severity strings
func ValidSeverities() []string {
	return []string{
		SeveritySuccess,
		SeverityError,
		SeverityInfo,
	}
}

// IsValidEventType checks if the event type string is valid
func IsValidEventType(eventType string) bool {
	_, err := ParseEventType(eventType)
	return err == nil
}

// IsValidSeverity checks if the severity string is valid
func IsValidSeverity(severity string) bool {
	_, err := ParseSeverity(severity)
	return err == nil
}
