package models

import (
	"fmt"
	"time"
)

// Column identifies the workflow stage a task belongs to.
type Column string

// Column constants
const (
	ColumnBacklog    Column = "backlog"
	ColumnInProgress Column = "in-progress"
	ColumnReview     Column = "review"
	ColumnDone       Column = "done"
)

// Columns returns every column in board order.
func Columns() []Column {
	return []Column{
		ColumnBacklog,
		ColumnInProgress,
		ColumnReview,
		ColumnDone,
	}
}

// ParseColumn converts a string into a Column
func ParseColumn(s string) (Column, error) {
	switch Column(s) {
	case ColumnBacklog, ColumnInProgress, ColumnReview, ColumnDone:
		return Column(s), nil
	default:
		return "", fmt.Errorf("unknown column: %q", s)
	}
}

// IsValid reports whether c is one of the board columns.
func (c Column) IsValid() bool {
	_, err := ParseColumn(string(c))
	return err == nil
}

// Title returns the display title of the column.
func (c Column) Title() string {
	switch c {
	case ColumnBacklog:
		return "Backlog"
	case ColumnInProgress:
		return "In Progress"
	case ColumnReview:
		return "Review"
	case ColumnDone:
		return "Done"
	default:
		return string(c)
	}
}

// Task is a single card on the board. An ID of zero means the task has not been
// persisted yet; negative IDs are local placeholders for pending creates.
type Task struct {
	ID          int64      `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Column      Column     `json:"column" yaml:"column"`
	CreatedAt   *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// IsPersisted reports whether the remote service has assigned the task an ID.
func (t Task) IsPersisted() bool {
	return t.ID > 0
}

// IsPlaceholder reports whether the task is a local stand-in for a pending create.
func (t Task) IsPlaceholder() bool {
	return t.ID < 0
}

// Draft holds the fields of a task that is about to be created.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Column      Column `json:"column"`
}

// Task returns the draft as an unpersisted task.
func (d Draft) Task() Task {
	return Task{
		Title:       d.Title,
		Description: d.Description,
		Column:      d.Column,
	}
}

// Patch describes a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Column      *Column `json:"column,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Column == nil
}

// Apply returns a copy of t with the patch applied.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Column != nil {
		t.Column = *p.Column
	}
	return t
}

// ChangesColumn reports whether applying the patch moves a task out of from.
func (p Patch) ChangesColumn(from Column) bool {
	return p.Column != nil && *p.Column != from
}

// ListFilter narrows a remote listing. A nil Column lists every task.
type ListFilter struct {
	Column *Column
}

// ForColumn returns a filter selecting a single column.
func ForColumn(c Column) ListFilter {
	return ListFilter{Column: &c}
}

// Matches reports whether t passes the filter.
func (f ListFilter) Matches(t Task) bool {
	return f.Column == nil || *f.Column == t.Column
}
