// internal/store/snapshot.go
package store

import (
	"time"

	"github.com/gurkanbulca/taskboard/internal/models"
)

// Snapshot is an immutable capture of some partitions, taken right before an
// optimistic write so it can be undone.
type Snapshot struct {
	partitions map[models.Column][]models.Task
}

// IsZero reports whether the snapshot captured nothing.
func (s Snapshot) IsZero() bool {
	return len(s.partitions) == 0
}

// Contains reports whether col was captured.
func (s Snapshot) Contains(col models.Column) bool {
	_, ok := s.partitions[col]
	return ok
}

// Columns lists the captured columns in board order.
func (s Snapshot) Columns() []models.Column {
	cols := make([]models.Column, 0, len(s.partitions))
	for _, col := range models.Columns() {
		if s.Contains(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// Partition returns a copy of the captured content of col.
func (s Snapshot) Partition(col models.Column) ([]models.Task, bool) {
	tasks, ok := s.partitions[col]
	if !ok {
		return nil, false
	}
	return clonePartition(tasks), true
}

// Equal reports whether both snapshots captured the same columns with the same
// tasks in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.partitions) != len(other.partitions) {
		return false
	}
	for col, tasks := range s.partitions {
		theirs, ok := other.partitions[col]
		if !ok || len(theirs) != len(tasks) {
			return false
		}
		for i := range tasks {
			if !sameTask(tasks[i], theirs[i]) {
				return false
			}
		}
	}
	return true
}

func sameTask(a, b models.Task) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Column == b.Column &&
		sameTime(a.CreatedAt, b.CreatedAt) &&
		sameTime(a.UpdatedAt, b.UpdatedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
