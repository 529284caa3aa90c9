// internal/store/store.go

// Package store holds the partitioned task cache the board renders from.
//
// Tasks live in one ordered partition per column. Partition slices are never
// modified in place: every write installs a fresh slice, which keeps snapshots
// cheap and lets a failed batch put the previous slices back untouched.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gurkanbulca/taskboard/internal/models"
)

var (
	ErrClosed        = errors.New("store closed")
	ErrTaskNotFound  = errors.New("task not found")
	ErrUnknownColumn = errors.New("unknown column")
	ErrDuplicateTask = errors.New("task already present")
	ErrMissingID     = errors.New("task has no id")
)

// Change tells a subscriber that one partition now has a new revision.
type Change struct {
	Column   models.Column
	Revision uint64
}

// Listener receives partition changes. It is called after the store lock has
// been released and may read from the store.
type Listener func(Change)

type subscription struct {
	fn   Listener
	cols map[models.Column]bool
}

// Store is the in-memory partitioned cache. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	partitions map[models.Column][]models.Task
	index      map[int64]models.Column
	revisions  map[models.Column]uint64
	subs       map[int]*subscription
	nextSub    int
	closed     bool
}

// New creates an empty store with one partition per board column.
func New() *Store {
	s := &Store{
		partitions: make(map[models.Column][]models.Task),
		index:      make(map[int64]models.Column),
		revisions:  make(map[models.Column]uint64),
		subs:       make(map[int]*subscription),
	}
	for _, col := range models.Columns() {
		s.partitions[col] = nil
	}
	return s
}

// Partition returns a copy of the ordered tasks in col.
func (s *Store) Partition(col models.Column) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePartition(s.partitions[col])
}

// Locate returns the column currently holding id.
func (s *Store) Locate(id int64) (models.Column, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.index[id]
	return col, ok
}

// Get returns the cached task with the given id.
func (s *Store) Get(id int64) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(id)
}

// Len returns the number of cached tasks across all partitions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Revision returns the change counter of col. It increases on every write that
// touches the partition.
func (s *Store) Revision(col models.Column) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revisions[col]
}

// Snapshot captures the given partitions, or every partition when none are named.
func (s *Store) Snapshot(cols ...models.Column) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(cols)
}

// ReplacePartition installs tasks as the full content of col.
func (s *Store) ReplacePartition(col models.Column, tasks []models.Task) error {
	return s.Batch(func(b *Batch) error {
		return b.Replace(col, tasks)
	})
}

// ReplacePartitionAt replaces col only if its revision still equals rev. It
// reports whether the replacement happened.
func (s *Store) ReplacePartitionAt(col models.Column, tasks []models.Task, rev uint64) (bool, error) {
	applied := false
	err := s.Batch(func(b *Batch) error {
		if s.revisions[col] != rev {
			return nil
		}
		applied = true
		return b.Replace(col, tasks)
	})
	return applied && err == nil, err
}

// MoveTask relocates id from one partition to the end of another in a single step.
func (s *Store) MoveTask(id int64, from, to models.Column) error {
	return s.Batch(func(b *Batch) error {
		return b.Move(id, from, to)
	})
}

// Restore puts every partition captured in snap back exactly as it was.
func (s *Store) Restore(snap Snapshot) error {
	return s.Batch(func(b *Batch) error {
		return b.Restore(snap)
	})
}

// Subscribe registers fn for changes to cols, or to every column when cols is
// empty. The returned function removes the subscription.
func (s *Store) Subscribe(fn Listener, cols ...models.Column) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &subscription{fn: fn}
	if len(cols) > 0 {
		sub.cols = make(map[models.Column]bool, len(cols))
		for _, col := range cols {
			sub.cols[col] = true
		}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close tears the store down. Later writes fail with ErrClosed so completions
// of abandoned network calls cannot touch it.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]*subscription)
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Batch runs fn with exclusive access to the store. Readers observe either none
// or all of the writes fn makes; if fn returns an error every partition it
// touched is put back and no listener is notified.
func (s *Store) Batch(fn func(b *Batch) error) error {
	listeners, err := s.apply(fn)
	if err != nil {
		return err
	}
	for _, n := range listeners {
		n.fn(n.change)
	}
	return nil
}

// apply runs fn under the write lock. A failing or panicking fn leaves the
// partitions as they were.
func (s *Store) apply(fn func(b *Batch) error) ([]notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	b := &Batch{s: s, before: make(map[models.Column][]models.Task)}
	committed := false
	defer func() {
		if !committed {
			b.rollback()
		}
	}()
	if err := fn(b); err != nil {
		return nil, err
	}
	committed = true

	changes := make([]Change, 0, len(b.before))
	for _, col := range models.Columns() {
		if _, ok := b.before[col]; !ok {
			continue
		}
		s.revisions[col]++
		changes = append(changes, Change{Column: col, Revision: s.revisions[col]})
	}
	return s.listenersFor(changes), nil
}

type notification struct {
	fn     Listener
	change Change
}

func (s *Store) listenersFor(changes []Change) []notification {
	if len(changes) == 0 || len(s.subs) == 0 {
		return nil
	}
	var out []notification
	for _, ch := range changes {
		for _, sub := range s.subs {
			if sub.cols == nil || sub.cols[ch.Column] {
				out = append(out, notification{fn: sub.fn, change: ch})
			}
		}
	}
	return out
}

func (s *Store) lookup(id int64) (models.Task, bool) {
	col, ok := s.index[id]
	if !ok {
		return models.Task{}, false
	}
	for _, t := range s.partitions[col] {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func (s *Store) snapshot(cols []models.Column) Snapshot {
	if len(cols) == 0 {
		cols = models.Columns()
	}
	parts := make(map[models.Column][]models.Task, len(cols))
	for _, col := range cols {
		if !col.IsValid() {
			continue
		}
		parts[col] = s.partitions[col]
	}
	return Snapshot{partitions: parts}
}

func clonePartition(tasks []models.Task) []models.Task {
	if tasks == nil {
		return []models.Task{}
	}
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	return out
}

func validColumn(col models.Column) error {
	if !col.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	return nil
}
