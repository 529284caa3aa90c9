// internal/remote/remote.go

// Package remote defines the contract of the task persistence service the board
// talks to, and the errors its transports report.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/gurkanbulca/taskboard/internal/models"
)

// TaskService is the remote persistence service. Implementations return the full
// task record from every write.
type TaskService interface {
	List(ctx context.Context, filter models.ListFilter) ([]models.Task, error)
	Get(ctx context.Context, id int64) (models.Task, error)
	Create(ctx context.Context, draft models.Draft) (models.Task, error)
	Update(ctx context.Context, id int64, patch models.Patch) (models.Task, error)
	Delete(ctx context.Context, id int64) error
}

// ErrNotFound is returned when the target task does not exist remotely.
var ErrNotFound = errors.New("task not found")

// TransportError reports that the service could not be reached or answered with
// a non-success status.
type TransportError struct {
	Op         string
	StatusCode int
	Code       string
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Body != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	case e.Code != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is returned when the service rejects the submitted fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// IsNotFound reports whether err means the task is gone remotely.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFound wraps ErrNotFound with the task id.
func NotFound(id int64) error {
	return fmt.Errorf("task %d: %w", id, ErrNotFound)
}
