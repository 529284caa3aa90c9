// internal/service/errors.go
package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrMutationInFlight is returned when a task already has a pending mutation.
	ErrMutationInFlight = errors.New("mutation already in flight for task")
	// ErrInvalidMutation is returned for malformed mutation requests.
	ErrInvalidMutation = errors.New("invalid mutation")
)

// MutationError is the failure of a single mutation. It always names the kind
// and the task involved; Err holds the underlying cause.
type MutationError struct {
	Kind       Kind
	TaskID     int64
	MutationID uuid.UUID
	Err        error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s task %d: %v", e.Kind, e.TaskID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// AsMutationError extracts a MutationError from err.
func AsMutationError(err error) (*MutationError, bool) {
	var me *MutationError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
