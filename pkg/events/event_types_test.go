// pkg/events/event_types_test.go
package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMessages(t *testing.T) {
	tests := []struct {
		operation string
		success   string
		failure   string
	}{
		{OperationCreate, "✅ Task created successfully!", "❌ Failed to create task"},
		{OperationUpdate, "✅ Task updated successfully!", "❌ Failed to update task"},
		{OperationMove, "✅ Task updated successfully!", "❌ Failed to update task"},
		{OperationDelete, "✅ Task deleted successfully!", "❌ Failed to delete task"},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			assert.Equal(t, tt.success, SuccessMessage(tt.operation))
			assert.Equal(t, tt.failure, FailureMessage(tt.operation))
		})
	}
}

func TestEventConstructors(t *testing.T) {
	id := uuid.New()

	ok := Succeeded(OperationMove, 4, id)
	assert.Equal(t, EventTypeMutationSucceeded, ok.Type)
	assert.Equal(t, SeveritySuccess, ok.Severity)
	assert.Equal(t, id, ok.MutationID)
	assert.Empty(t, ok.Reason)

	failed := Failed(OperationDelete, 4, id, "connection refused")
	assert.Equal(t, EventTypeMutationFailed, failed.Type)
	assert.Equal(t, SeverityError, failed.Severity)
	assert.Equal(t, "connection refused", failed.Reason)
}

func TestValidation(t *testing.T) {
	for _, et := range ValidEventTypes() {
		assert.True(t, IsValidEventType(et))
	}
	for _, s := range ValidSeverities() {
		assert.True(t, IsValidSeverity(s))
	}
	assert.False(t, IsValidEventType("login_success"))
	assert.False(t, IsValidSeverity("critical"))
}
