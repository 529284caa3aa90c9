// internal/service/mutation.go
package service

import (
	"github.com/google/uuid"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/pkg/events"
)

// Kind names one of the four mutations the coordinator knows how to apply.
type Kind string

// Kind constants
const (
	KindCreate Kind = events.OperationCreate
	KindUpdate Kind = events.OperationUpdate
	KindDelete Kind = events.OperationDelete
	KindMove   Kind = events.OperationMove
)

// Mutation is a single logical change requested by the user.
type Mutation struct {
	ID     uuid.UUID
	Kind   Kind
	TaskID int64
	Draft  models.Draft
	Patch  models.Patch
	Column models.Column
}

// NewCreate requests a new task.
func NewCreate(draft models.Draft) Mutation {
	return Mutation{ID: uuid.New(), Kind: KindCreate, Draft: draft}
}

// NewUpdate requests a partial update of an existing task.
func NewUpdate(id int64, patch models.Patch) Mutation {
	return Mutation{ID: uuid.New(), Kind: KindUpdate, TaskID: id, Patch: patch}
}

// NewDelete requests removal of a task.
func NewDelete(id int64) Mutation {
	return Mutation{ID: uuid.New(), Kind: KindDelete, TaskID: id}
}

// NewMove requests that a task be moved to another column.
func NewMove(id int64, to models.Column) Mutation {
	return Mutation{ID: uuid.New(), Kind: KindMove, TaskID: id, Column: to}
}

// patch returns the field changes an update or move carries.
func (m Mutation) patch() models.Patch {
	if m.Kind == KindMove {
		col := m.Column
		return models.Patch{Column: &col}
	}
	return m.Patch
}

// Result is the outcome of one mutation. Task holds the server record on
// success (the removed task for deletes).
type Result struct {
	Mutation Mutation
	Task     models.Task
	Err      error
	// Discarded is set when the remote call finished after the store was closed
	// and its outcome was not applied.
	Discarded bool
}

// OK reports whether the mutation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}
