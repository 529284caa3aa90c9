// internal/service/reconciler.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
	"github.com/gurkanbulca/taskboard/internal/store"
)

// DefaultStaleTime is how long fetched partitions are trusted before they are
// refetched.
const DefaultStaleTime = 5 * time.Minute

// Reconciler refetches stale partitions from the remote service and installs
// the results in the store.
type Reconciler struct {
	store     *store.Store
	api       remote.TaskService
	logger    *logrus.Logger
	staleTime time.Duration

	mu    sync.Mutex
	stale map[models.Column]bool
	busy  func(models.Column) bool
	wakeC chan struct{}
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithStaleTime sets the refetch period. Non-positive values keep the default.
func WithStaleTime(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.staleTime = d
		}
	}
}

// WithReconcilerLogger sets the logger.
func WithReconcilerLogger(l *logrus.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReconciler creates a reconciler for st backed by api.
func NewReconciler(st *store.Store, api remote.TaskService, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:     st,
		api:       api,
		logger:    logrus.StandardLogger(),
		staleTime: DefaultStaleTime,
		stale:     make(map[models.Column]bool),
		wakeC:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) setBusy(fn func(models.Column) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = fn
}

// StaleTime returns the refetch period.
func (r *Reconciler) StaleTime() time.Duration {
	return r.staleTime
}

// MarkStale flags cols, or every column when none are given, for refetching
// and wakes the worker.
func (r *Reconciler) MarkStale(cols ...models.Column) {
	r.mark(cols)
	r.signal()
}

// IsStale reports whether col is waiting to be refetched.
func (r *Reconciler) IsStale(col models.Column) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale[col]
}

// Touch wakes the worker if col is stale. Readers call it when they render a
// partition so failed refetches are retried on the next read.
func (r *Reconciler) Touch(col models.Column) {
	if r.IsStale(col) {
		r.signal()
	}
}

// Run refetches stale partitions whenever it is woken and marks every partition
// stale once per stale period. It returns when ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.staleTime)
	defer ticker.Stop()
	r.logger.WithField("stale_time", r.staleTime.String()).Debug("Reconciler started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Reconciler stopped")
			return
		case <-r.wakeC:
		case <-ticker.C:
			r.mark(nil)
		}
		if r.store.Closed() {
			return
		}
		if err := r.Refresh(ctx, r.staleColumns()...); err != nil && ctx.Err() == nil {
			r.logger.WithError(err).Warn("Reconciliation incomplete")
		}
	}
}

// Refresh fetches each of cols from the remote service and replaces the cached
// partition with the result. A partition that changed while its fetch was in
// flight, or that a pending mutation has patched, is left as it is and stays
// stale. Failed fetches keep the partition stale and are returned joined.
func (r *Reconciler) Refresh(ctx context.Context, cols ...models.Column) error {
	var errs []error
	for _, col := range cols {
		if !col.IsValid() {
			continue
		}
		if r.isBusy(col) {
			r.mark([]models.Column{col})
			continue
		}

		rev := r.store.Revision(col)
		r.clear(col)

		tasks, err := r.api.List(ctx, models.ForColumn(col))
		if err != nil {
			r.mark([]models.Column{col})
			r.logger.WithFields(logrus.Fields{
				"column": col,
			}).WithError(err).Warn("Failed to refetch partition")
			errs = append(errs, fmt.Errorf("refetch %s: %w", col, err))
			continue
		}

		applied, err := r.store.ReplacePartitionAt(col, tasks, rev)
		if errors.Is(err, store.ErrClosed) {
			return err
		}
		if err != nil {
			r.mark([]models.Column{col})
			errs = append(errs, fmt.Errorf("replace %s: %w", col, err))
			continue
		}
		if !applied {
			r.mark([]models.Column{col})
			r.logger.WithField("column", col).Debug("Partition changed during refetch, result dropped")
			continue
		}
		r.logger.WithFields(logrus.Fields{
			"column": col,
			"tasks":  len(tasks),
		}).Debug("Partition refreshed")
	}
	return errors.Join(errs...)
}

// Load performs the initial fetch of every task and installs one partition per
// column in a single step.
func (r *Reconciler) Load(ctx context.Context) error {
	tasks, err := r.api.List(ctx, models.ListFilter{})
	if err != nil {
		r.mark(nil)
		return fmt.Errorf("load tasks: %w", err)
	}

	grouped := make(map[models.Column][]models.Task, len(models.Columns()))
	for _, t := range tasks {
		if !t.Column.IsValid() {
			r.logger.WithFields(logrus.Fields{
				"task_id": t.ID,
				"column":  t.Column,
			}).Warn("Skipping task with unknown column")
			continue
		}
		grouped[t.Column] = append(grouped[t.Column], t)
	}

	err = r.store.Batch(func(b *store.Batch) error {
		for _, col := range models.Columns() {
			if err := b.Replace(col, grouped[col]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("install tasks: %w", err)
	}

	r.mu.Lock()
	r.stale = make(map[models.Column]bool)
	r.mu.Unlock()

	r.logger.WithField("tasks", len(tasks)).Info("Board loaded")
	return nil
}

func (r *Reconciler) mark(cols []models.Column) {
	if len(cols) == 0 {
		cols = models.Columns()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, col := range cols {
		if col.IsValid() {
			r.stale[col] = true
		}
	}
}

func (r *Reconciler) clear(col models.Column) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stale, col)
}

func (r *Reconciler) staleColumns() []models.Column {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Column
	for _, col := range models.Columns() {
		if r.stale[col] {
			out = append(out, col)
		}
	}
	return out
}

func (r *Reconciler) isBusy(col models.Column) bool {
	r.mu.Lock()
	busy := r.busy
	r.mu.Unlock()
	return busy != nil && busy(col)
}

func (r *Reconciler) signal() {
	select {
	case r.wakeC <- struct{}{}:
	default:
	}
}
