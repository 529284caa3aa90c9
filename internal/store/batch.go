package store

import (
	"fmt"

	"github.com/gurkanbulca/taskboard/internal/models"
)

// Batch is a write session opened by Store.Batch. It must not be used after the
// callback returns.
type Batch struct {
	s      *Store
	before map[models.Column][]models.Task
}

// Locate returns the column currently holding id.
func (b *Batch) Locate(id int64) (models.Column, bool) {
	col, ok := b.s.index[id]
	return col, ok
}

// Get returns the task with the given id.
func (b *Batch) Get(id int64) (models.Task, bool) {
	return b.s.lookup(id)
}

// Partition returns a copy of col as seen inside the batch.
func (b *Batch) Partition(col models.Column) []models.Task {
	return clonePartition(b.s.partitions[col])
}

// Snapshot captures the given partitions as they are at this point of the batch.
func (b *Batch) Snapshot(cols ...models.Column) Snapshot {
	return b.s.snapshot(cols)
}

// Insert appends t to the partition named by t.Column.
func (b *Batch) Insert(t models.Task) error {
	if t.ID == 0 {
		return ErrMissingID
	}
	if err := validColumn(t.Column); err != nil {
		return err
	}
	if col, ok := b.s.index[t.ID]; ok {
		return fmt.Errorf("%w: %d in %s", ErrDuplicateTask, t.ID, col)
	}
	b.appendTo(t.Column, t)
	return nil
}

// Remove deletes id from whichever partition holds it.
func (b *Batch) Remove(id int64) (models.Task, bool) {
	col, ok := b.s.index[id]
	if !ok {
		return models.Task{}, false
	}
	return b.drop(col, id), true
}

// Move relocates id from one partition to the end of another.
func (b *Batch) Move(id int64, from, to models.Column) error {
	if err := validColumn(to); err != nil {
		return err
	}
	col, ok := b.s.index[id]
	if !ok || col != from {
		return fmt.Errorf("%w: %d in %s", ErrTaskNotFound, id, from)
	}
	if from == to {
		return nil
	}
	t := b.drop(from, id)
	t.Column = to
	b.appendTo(to, t)
	return nil
}

// Put writes t into the store. A task already in t.Column is replaced in place;
// one held by another column is moved to the end of t.Column; an unknown task is
// appended.
func (b *Batch) Put(t models.Task) error {
	if t.ID == 0 {
		return ErrMissingID
	}
	if err := validColumn(t.Column); err != nil {
		return err
	}
	col, ok := b.s.index[t.ID]
	switch {
	case !ok:
		b.appendTo(t.Column, t)
	case col == t.Column:
		b.replaceInPlace(t.Column, t.ID, t)
	default:
		b.drop(col, t.ID)
		b.appendTo(t.Column, t)
	}
	return nil
}

// Swap replaces the task identified by oldID with t, keeping its position when t
// stays in the same column. It is used to substitute a placeholder with the
// record the remote service returned.
func (b *Batch) Swap(oldID int64, t models.Task) error {
	if t.ID == 0 {
		return ErrMissingID
	}
	if err := validColumn(t.Column); err != nil {
		return err
	}
	col, ok := b.s.index[oldID]
	if !ok {
		return b.Put(t)
	}
	if other, exists := b.s.index[t.ID]; exists && t.ID != oldID {
		b.drop(other, t.ID)
	}
	if col != t.Column {
		b.drop(col, oldID)
		b.appendTo(t.Column, t)
		return nil
	}
	b.replaceInPlace(col, oldID, t)
	return nil
}

// Replace installs tasks as the full content of col. Tasks without an id and
// repeated ids are skipped; a task held by another partition is taken out of it
// so no id ends up in two columns. The partition key wins over the task's own
// column field.
func (b *Batch) Replace(col models.Column, tasks []models.Task) error {
	if err := validColumn(col); err != nil {
		return err
	}
	b.mark(col)

	seen := make(map[int64]bool, len(tasks))
	next := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == 0 || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		t.Column = col
		if other, ok := b.s.index[t.ID]; ok && other != col {
			b.drop(other, t.ID)
		}
		next = append(next, t)
	}

	for _, old := range b.s.partitions[col] {
		if !seen[old.ID] && b.s.index[old.ID] == col {
			delete(b.s.index, old.ID)
		}
	}
	for _, t := range next {
		b.s.index[t.ID] = col
	}
	b.s.partitions[col] = next
	return nil
}

// Restore puts every partition captured in snap back as it was.
func (b *Batch) Restore(snap Snapshot) error {
	for _, col := range snap.Columns() {
		tasks, _ := snap.Partition(col)
		if err := b.Replace(col, tasks); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batch) mark(col models.Column) {
	if _, ok := b.before[col]; !ok {
		b.before[col] = b.s.partitions[col]
	}
}

func (b *Batch) appendTo(col models.Column, t models.Task) {
	b.mark(col)
	t.Column = col
	cur := b.s.partitions[col]
	next := make([]models.Task, len(cur), len(cur)+1)
	copy(next, cur)
	b.s.partitions[col] = append(next, t)
	b.s.index[t.ID] = col
}

func (b *Batch) drop(col models.Column, id int64) models.Task {
	b.mark(col)
	cur := b.s.partitions[col]
	next := make([]models.Task, 0, len(cur))
	var removed models.Task
	for _, t := range cur {
		if t.ID == id {
			removed = t
			continue
		}
		next = append(next, t)
	}
	b.s.partitions[col] = next
	delete(b.s.index, id)
	return removed
}

func (b *Batch) replaceInPlace(col models.Column, oldID int64, t models.Task) {
	b.mark(col)
	cur := b.s.partitions[col]
	next := make([]models.Task, len(cur))
	copy(next, cur)
	for i := range next {
		if next[i].ID == oldID {
			t.Column = col
			next[i] = t
			break
		}
	}
	b.s.partitions[col] = next
	if oldID != t.ID {
		delete(b.s.index, oldID)
	}
	b.s.index[t.ID] = col
}

// rollback reinstates the partitions this batch touched and rebuilds their
// index entries.
func (b *Batch) rollback() {
	for col := range b.before {
		for _, t := range b.s.partitions[col] {
			if b.s.index[t.ID] == col {
				delete(b.s.index, t.ID)
			}
		}
	}
	for col, tasks := range b.before {
		b.s.partitions[col] = tasks
		for _, t := range tasks {
			b.s.index[t.ID] = col
		}
	}
}
