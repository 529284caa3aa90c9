// internal/store/store_test.go
package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/taskboard/internal/models"
)

func task(id int64, title string, col models.Column) models.Task {
	return models.Task{ID: id, Title: title, Description: title + " details", Column: col}
}

func seed(t *testing.T, tasks ...models.Task) *Store {
	t.Helper()
	s := New()
	byCol := make(map[models.Column][]models.Task)
	for _, tk := range tasks {
		byCol[tk.Column] = append(byCol[tk.Column], tk)
	}
	for col, part := range byCol {
		require.NoError(t, s.ReplacePartition(col, part))
	}
	return s
}

// assertExclusive checks that every id appears in exactly one partition and
// that the index agrees with the partitions.
func assertExclusive(t *testing.T, s *Store) {
	t.Helper()
	seen := make(map[int64]models.Column)
	for _, col := range models.Columns() {
		for _, tk := range s.Partition(col) {
			if prev, dup := seen[tk.ID]; dup {
				t.Fatalf("task %d present in %s and %s", tk.ID, prev, col)
			}
			seen[tk.ID] = col
			assert.Equal(t, col, tk.Column, "task %d column field", tk.ID)
			located, ok := s.Locate(tk.ID)
			require.True(t, ok, "task %d not indexed", tk.ID)
			assert.Equal(t, col, located)
		}
	}
	assert.Equal(t, len(seen), s.Len())
}

func ids(tasks []models.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, tk := range tasks {
		out = append(out, tk.ID)
	}
	return out
}

func TestStore_MoveTask(t *testing.T) {
	tests := []struct {
		name     string
		id       int64
		from, to models.Column
		wantErr  error
		backlog  []int64
		done     []int64
	}{
		{name: "move to other column", id: 1, from: models.ColumnBacklog, to: models.ColumnDone, backlog: []int64{2}, done: []int64{3, 1}},
		{name: "same column is a no-op", id: 1, from: models.ColumnBacklog, to: models.ColumnBacklog, backlog: []int64{1, 2}, done: []int64{3}},
		{name: "wrong source column", id: 1, from: models.ColumnReview, to: models.ColumnDone, wantErr: ErrTaskNotFound, backlog: []int64{1, 2}, done: []int64{3}},
		{name: "unknown task", id: 42, from: models.ColumnBacklog, to: models.ColumnDone, wantErr: ErrTaskNotFound, backlog: []int64{1, 2}, done: []int64{3}},
		{name: "unknown target column", id: 1, from: models.ColumnBacklog, to: "archived", wantErr: ErrUnknownColumn, backlog: []int64{1, 2}, done: []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seed(t,
				task(1, "A", models.ColumnBacklog),
				task(2, "B", models.ColumnBacklog),
				task(3, "C", models.ColumnDone),
			)

			err := s.MoveTask(tt.id, tt.from, tt.to)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.backlog, ids(s.Partition(models.ColumnBacklog)))
			assert.Equal(t, tt.done, ids(s.Partition(models.ColumnDone)))
			assertExclusive(t, s)
		})
	}
}

func TestStore_MoveTaskIsAtomicForReaders(t *testing.T) {
	s := seed(t, task(1, "A", models.ColumnBacklog))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	violations := make(chan string, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := s.Snapshot()
			count := 0
			for _, col := range snap.Columns() {
				part, _ := snap.Partition(col)
				count += len(part)
			}
			if count != 1 {
				select {
				case violations <- "reader saw task in zero or two partitions":
				default:
				}
				return
			}
		}
	}()

	cols := models.Columns()
	for i := 0; i < 500; i++ {
		from := cols[i%len(cols)]
		to := cols[(i+1)%len(cols)]
		require.NoError(t, s.MoveTask(1, from, to))
	}
	close(stop)
	wg.Wait()

	select {
	case v := <-violations:
		t.Fatal(v)
	default:
	}
	assertExclusive(t, s)
}

func TestStore_ReplacePartitionKeepsExclusivity(t *testing.T) {
	s := seed(t,
		task(1, "A", models.ColumnBacklog),
		task(2, "B", models.ColumnReview),
	)

	// A refetch of "done" that now contains task 2 and a duplicate entry.
	err := s.ReplacePartition(models.ColumnDone, []models.Task{
		task(2, "B", models.ColumnDone),
		task(4, "D", models.ColumnDone),
		task(2, "B again", models.ColumnDone),
		{Title: "no id", Column: models.ColumnDone},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 4}, ids(s.Partition(models.ColumnDone)))
	assert.Empty(t, s.Partition(models.ColumnReview))
	assert.Equal(t, []int64{1}, ids(s.Partition(models.ColumnBacklog)))
	assertExclusive(t, s)

	// Replacing drops tasks that are no longer listed.
	require.NoError(t, s.ReplacePartition(models.ColumnDone, []models.Task{task(4, "D", models.ColumnDone)}))
	_, ok := s.Locate(2)
	assert.False(t, ok)
	assertExclusive(t, s)
}

func TestStore_ReplacePartitionForcesPartitionKey(t *testing.T) {
	s := New()
	require.NoError(t, s.ReplacePartition(models.ColumnReview, []models.Task{task(9, "X", models.ColumnBacklog)}))

	got, ok := s.Get(9)
	require.True(t, ok)
	assert.Equal(t, models.ColumnReview, got.Column)
}

func TestStore_SnapshotRestore(t *testing.T) {
	s := seed(t,
		task(1, "A", models.ColumnBacklog),
		task(2, "B", models.ColumnBacklog),
		task(3, "C", models.ColumnDone),
	)
	before := s.Snapshot(models.ColumnBacklog, models.ColumnDone)

	require.NoError(t, s.MoveTask(1, models.ColumnBacklog, models.ColumnDone))
	require.NoError(t, s.Batch(func(b *Batch) error {
		_, _ = b.Remove(3)
		return b.Insert(task(-1, "placeholder", models.ColumnBacklog))
	}))
	assert.False(t, before.Equal(s.Snapshot(models.ColumnBacklog, models.ColumnDone)))

	require.NoError(t, s.Restore(before))

	assert.True(t, before.Equal(s.Snapshot(models.ColumnBacklog, models.ColumnDone)))
	_, ok := s.Locate(-1)
	assert.False(t, ok, "placeholder must be gone after restore")
	assertExclusive(t, s)
}

func TestStore_RestoreRemovesTaskFromUncapturedPartition(t *testing.T) {
	s := seed(t, task(1, "A", models.ColumnBacklog))
	snap := s.Snapshot(models.ColumnBacklog)

	require.NoError(t, s.MoveTask(1, models.ColumnBacklog, models.ColumnReview))
	require.NoError(t, s.Restore(snap))

	assert.Equal(t, []int64{1}, ids(s.Partition(models.ColumnBacklog)))
	assert.Empty(t, s.Partition(models.ColumnReview))
	assertExclusive(t, s)
}

func TestStore_SnapshotIsImmutable(t *testing.T) {
	s := seed(t, task(1, "A", models.ColumnBacklog))
	snap := s.Snapshot(models.ColumnBacklog)

	require.NoError(t, s.Batch(func(b *Batch) error {
		return b.Put(task(1, "renamed", models.ColumnBacklog))
	}))

	part, ok := snap.Partition(models.ColumnBacklog)
	require.True(t, ok)
	assert.Equal(t, "A", part[0].Title)
	part[0].Title = "scribbled"
	again, _ := snap.Partition(models.ColumnBacklog)
	assert.Equal(t, "A", again[0].Title)
}

func TestStore_BatchErrorRollsBack(t *testing.T) {
	s := seed(t,
		task(1, "A", models.ColumnBacklog),
		task(2, "B", models.ColumnDone),
	)
	rev := s.Revision(models.ColumnBacklog)

	var notified []Change
	s.Subscribe(func(c Change) { notified = append(notified, c) })

	boom := errors.New("boom")
	err := s.Batch(func(b *Batch) error {
		require.NoError(t, b.Move(1, models.ColumnBacklog, models.ColumnDone))
		_, _ = b.Remove(2)
		require.NoError(t, b.Insert(task(7, "G", models.ColumnReview)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []int64{1}, ids(s.Partition(models.ColumnBacklog)))
	assert.Equal(t, []int64{2}, ids(s.Partition(models.ColumnDone)))
	assert.Empty(t, s.Partition(models.ColumnReview))
	assert.Equal(t, rev, s.Revision(models.ColumnBacklog))
	assert.Empty(t, notified)
	assertExclusive(t, s)
}

func TestStore_BatchPanicReleasesLock(t *testing.T) {
	s := seed(t,
		task(1, "A", models.ColumnBacklog),
		task(2, "B", models.ColumnDone),
	)

	assert.Panics(t, func() {
		_ = s.Batch(func(b *Batch) error {
			require.NoError(t, b.Move(1, models.ColumnBacklog, models.ColumnDone))
			panic("listener bug")
		})
	})

	assert.Equal(t, []int64{1}, ids(s.Partition(models.ColumnBacklog)))
	assert.Equal(t, []int64{2}, ids(s.Partition(models.ColumnDone)))
	assertExclusive(t, s)

	require.NoError(t, s.MoveTask(1, models.ColumnBacklog, models.ColumnReview))
	assert.Equal(t, []int64{1}, ids(s.Partition(models.ColumnReview)))
}

func TestStore_InsertAndPut(t *testing.T) {
	s := seed(t, task(1, "A", models.ColumnBacklog), task(2, "B", models.ColumnBacklog))

	err := s.Batch(func(b *Batch) error { return b.Insert(task(1, "dup", models.ColumnDone)) })
	require.ErrorIs(t, err, ErrDuplicateTask)

	err = s.Batch(func(b *Batch) error { return b.Insert(models.Task{Title: "x", Column: models.ColumnDone}) })
	require.ErrorIs(t, err, ErrMissingID)

	// Put in the same column keeps the position.
	require.NoError(t, s.Batch(func(b *Batch) error { return b.Put(task(1, "A2", models.ColumnBacklog)) }))
	assert.Equal(t, []int64{1, 2}, ids(s.Partition(models.ColumnBacklog)))

	// Put into another column moves it to the end there.
	require.NoError(t, s.Batch(func(b *Batch) error { return b.Put(task(1, "A3", models.ColumnReview)) }))
	assert.Equal(t, []int64{2}, ids(s.Partition(models.ColumnBacklog)))
	assert.Equal(t, []int64{1}, ids(s.Partition(models.ColumnReview)))
	assertExclusive(t, s)
}

func TestStore_SwapPlaceholder(t *testing.T) {
	s := seed(t, task(1, "A", models.ColumnBacklog))
	require.NoError(t, s.Batch(func(b *Batch) error {
		if err := b.Insert(task(-1, "new", models.ColumnBacklog)); err != nil {
			return err
		}
		return b.Insert(task(2, "B", models.ColumnBacklog))
	}))

	require.NoError(t, s.Batch(func(b *Batch) error { return b.Swap(-1, task(10, "new", models.ColumnBacklog)) }))

	assert.Equal(t, []int64{1, 10, 2}, ids(s.Partition(models.ColumnBacklog)))
	_, ok := s.Locate(-1)
	assert.False(t, ok)
	assertExclusive(t, s)
}

func TestStore_SwapWhenServerRecordAlreadyCached(t *testing.T) {
	s := New()
	require.NoError(t, s.Batch(func(b *Batch) error {
		if err := b.Insert(task(-1, "new", models.ColumnBacklog)); err != nil {
			return err
		}
		return b.Insert(task(10, "new", models.ColumnReview))
	}))

	require.NoError(t, s.Batch(func(b *Batch) error { return b.Swap(-1, task(10, "new", models.ColumnBacklog)) }))

	assert.Equal(t, []int64{10}, ids(s.Partition(models.ColumnBacklog)))
	assert.Empty(t, s.Partition(models.ColumnReview))
	assertExclusive(t, s)
}

func TestStore_NotifiesOnlyAffectedPartitions(t *testing.T) {
	s := seed(t, task(1, "A", models.ColumnBacklog))

	var backlog, done, review, all []Change
	s.Subscribe(func(c Change) { backlog = append(backlog, c) }, models.ColumnBacklog)
	s.Subscribe(func(c Change) { done = append(done, c) }, models.ColumnDone)
	s.Subscribe(func(c Change) { review = append(review, c) }, models.ColumnReview)
	cancel := s.Subscribe(func(c Change) { all = append(all, c) })

	require.NoError(t, s.MoveTask(1, models.ColumnBacklog, models.ColumnDone))

	require.Len(t, backlog, 1)
	require.Len(t, done, 1)
	assert.Empty(t, review)
	assert.Len(t, all, 2)
	assert.Equal(t, s.Revision(models.ColumnDone), done[0].Revision)

	cancel()
	require.NoError(t, s.MoveTask(1, models.ColumnDone, models.ColumnReview))
	assert.Len(t, all, 2)
	assert.Len(t, review, 1)
}

func TestStore_ReplacePartitionAt(t *testing.T) {
	s := seed(t, task(1, "A", models.ColumnBacklog))
	rev := s.Revision(models.ColumnBacklog)

	require.NoError(t, s.MoveTask(1, models.ColumnBacklog, models.ColumnDone))

	applied, err := s.ReplacePartitionAt(models.ColumnBacklog, []models.Task{task(1, "A", models.ColumnBacklog)}, rev)
	require.NoError(t, err)
	assert.False(t, applied, "stale fetch must not overwrite a newer partition")
	assert.Empty(t, s.Partition(models.ColumnBacklog))

	applied, err = s.ReplacePartitionAt(models.ColumnBacklog, nil, s.Revision(models.ColumnBacklog))
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestStore_ClosedRejectsWrites(t *testing.T) {
	s := seed(t, task(1, "A", models.ColumnBacklog))
	called := false
	s.Subscribe(func(Change) { called = true })

	s.Close()

	require.ErrorIs(t, s.MoveTask(1, models.ColumnBacklog, models.ColumnDone), ErrClosed)
	require.ErrorIs(t, s.ReplacePartition(models.ColumnDone, nil), ErrClosed)
	assert.True(t, s.Closed())
	assert.False(t, called)
	assert.Equal(t, []int64{1}, ids(s.Partition(models.ColumnBacklog)), "reads keep working")
}
