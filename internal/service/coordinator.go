// internal/service/coordinator.go

// Package service applies user mutations to the task cache optimistically and
// keeps the cache in line with the remote service afterwards.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
	"github.com/gurkanbulca/taskboard/internal/store"
	"github.com/gurkanbulca/taskboard/pkg/events"
)

const tracerName = "github.com/gurkanbulca/taskboard/internal/service"

// Outcome values recorded on mutation spans.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
	OutcomeDiscarded  = "discarded"
)

// Coordinator runs the optimistic mutation protocol against a store.
type Coordinator struct {
	store      *store.Store
	api        remote.TaskService
	notifier   Notifier
	logger     *logrus.Logger
	tracer     trace.Tracer
	reconciler *Reconciler

	mu       sync.Mutex
	inflight map[int64]uuid.UUID
	busy     map[models.Column]int

	tempSeq atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNotifier sets where mutation outcome events go.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider sets the provider mutation spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithReconciler hands committed partitions to r for refetching. While a
// mutation is pending on a partition, r leaves that partition alone.
func WithReconciler(r *Reconciler) Option {
	return func(c *Coordinator) {
		c.reconciler = r
	}
}

// NewCoordinator creates a coordinator writing to st and calling api.
func NewCoordinator(st *store.Store, api remote.TaskService, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    st,
		api:      api,
		notifier: discardNotifier{},
		logger:   logrus.StandardLogger(),
		tracer:   otel.Tracer(tracerName),
		inflight: make(map[int64]uuid.UUID),
		busy:     make(map[models.Column]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reconciler != nil {
		c.reconciler.setBusy(c.Busy)
	}
	return c
}

// pending carries a mutation between its optimistic patch and its completion.
type pending struct {
	ctx      context.Context
	span     trace.Span
	m        Mutation
	snap     store.Snapshot
	affected []models.Column
	tempID   int64
	removed  models.Task
	guarded  bool
}

// Execute applies m optimistically, calls the remote service and then commits or
// rolls back. It blocks until the remote call has finished.
func (c *Coordinator) Execute(ctx context.Context, m Mutation) Result {
	p, res := c.begin(ctx, m)
	if p == nil {
		return res
	}
	return c.finish(p)
}

// Dispatch applies m optimistically and returns once the patch is visible. The
// remote call and its completion run in the background; the result is delivered
// on the returned channel, which is closed afterwards.
func (c *Coordinator) Dispatch(ctx context.Context, m Mutation) <-chan Result {
	ch := make(chan Result, 1)
	p, res := c.begin(ctx, m)
	if p == nil {
		ch <- res
		close(ch)
		return ch
	}
	go func() {
		defer close(ch)
		ch <- c.finish(p)
	}()
	return ch
}

// Create adds a task and returns the record the remote service stored.
func (c *Coordinator) Create(ctx context.Context, draft models.Draft) (models.Task, error) {
	res := c.Execute(ctx, NewCreate(draft))
	return res.Task, res.Err
}

// Update changes the given fields of a task.
func (c *Coordinator) Update(ctx context.Context, id int64, patch models.Patch) (models.Task, error) {
	res := c.Execute(ctx, NewUpdate(id, patch))
	return res.Task, res.Err
}

// Delete removes a task. Deleting a task the remote service no longer has
// succeeds.
func (c *Coordinator) Delete(ctx context.Context, id int64) error {
	return c.Execute(ctx, NewDelete(id)).Err
}

// MoveColumn moves a task to the end of another column.
func (c *Coordinator) MoveColumn(ctx context.Context, id int64, to models.Column) (models.Task, error) {
	res := c.Execute(ctx, NewMove(id, to))
	return res.Task, res.Err
}

// Pending reports whether a mutation on id is in flight.
func (c *Coordinator) Pending(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

// Busy reports whether any in-flight mutation has patched col.
func (c *Coordinator) Busy(col models.Column) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[col] > 0
}

func (c *Coordinator) begin(ctx context.Context, m Mutation) (*pending, Result) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	ctx, span := c.tracer.Start(ctx, "board.mutation."+string(m.Kind), trace.WithAttributes(
		attribute.String("mutation.id", m.ID.String()),
		attribute.String("mutation.kind", string(m.Kind)),
		attribute.Int64("task.id", m.TaskID),
	))
	p := &pending{ctx: ctx, span: span, m: m}

	if err := validate(m); err != nil {
		return nil, c.reject(p, err)
	}
	if m.Kind != KindCreate {
		if err := c.acquire(m); err != nil {
			return nil, c.reject(p, err)
		}
		p.guarded = true
	}

	err := c.store.Batch(func(b *store.Batch) error {
		return c.patch(b, p)
	})
	if err != nil {
		c.release(p)
		if errors.Is(err, store.ErrClosed) {
			return nil, c.discard(p, err)
		}
		return nil, c.reject(p, err)
	}

	c.hold(p.affected)
	c.entry(p).WithField("columns", columnNames(p.affected)).Debug("Optimistic patch applied")
	return p, Result{}
}

// patch snapshots the partitions m touches and applies the speculative change.
// It runs inside a single store batch.
func (c *Coordinator) patch(b *store.Batch, p *pending) error {
	m := p.m
	switch m.Kind {
	case KindCreate:
		p.tempID = -c.tempSeq.Add(1)
		p.affected = []models.Column{m.Draft.Column}
		p.snap = b.Snapshot(p.affected...)
		placeholder := m.Draft.Task()
		placeholder.ID = p.tempID
		return b.Insert(placeholder)

	case KindUpdate, KindMove:
		cur, ok := b.Get(m.TaskID)
		if !ok {
			if col := m.patch().Column; col != nil {
				p.affected = []models.Column{*col}
			}
			return nil
		}
		next := m.patch().Apply(cur)
		p.affected = []models.Column{cur.Column}
		if next.Column != cur.Column {
			p.affected = append(p.affected, next.Column)
		}
		p.snap = b.Snapshot(p.affected...)
		return b.Put(next)

	case KindDelete:
		col, ok := b.Locate(m.TaskID)
		if !ok {
			return nil
		}
		p.affected = []models.Column{col}
		p.snap = b.Snapshot(col)
		p.removed, _ = b.Remove(m.TaskID)
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidMutation, m.Kind)
}

func (c *Coordinator) finish(p *pending) Result {
	defer c.release(p)

	task, err := c.call(p)
	c.unhold(p.affected)
	if err != nil {
		return c.rollback(p, err)
	}
	return c.commit(p, task)
}

func (c *Coordinator) call(p *pending) (models.Task, error) {
	m := p.m
	switch m.Kind {
	case KindCreate:
		return c.api.Create(p.ctx, m.Draft)
	case KindUpdate, KindMove:
		return c.api.Update(p.ctx, m.TaskID, m.patch())
	case KindDelete:
		if err := c.api.Delete(p.ctx, m.TaskID); err != nil && !remote.IsNotFound(err) {
			return models.Task{}, err
		}
		return p.removed, nil
	}
	return models.Task{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidMutation, m.Kind)
}

func (c *Coordinator) commit(p *pending, task models.Task) Result {
	m := p.m
	err := c.store.Batch(func(b *store.Batch) error {
		switch m.Kind {
		case KindCreate:
			return b.Swap(p.tempID, task)
		case KindUpdate, KindMove:
			return b.Put(task)
		case KindDelete:
			b.Remove(m.TaskID)
		}
		return nil
	})
	if errors.Is(err, store.ErrClosed) {
		return c.discard(p, nil)
	}
	if err != nil {
		// The server accepted the change but the cache could not take the record;
		// put the cache back and let reconciliation fetch the truth.
		c.restore(p)
		c.markStale(p.affected...)
		return c.fail(p, err)
	}

	stale := p.affected
	if m.Kind != KindDelete && task.Column.IsValid() {
		stale = appendColumn(stale, task.Column)
	}
	c.markStale(stale...)

	taskID := m.TaskID
	if m.Kind == KindCreate {
		taskID = task.ID
	}
	c.notifier.Notify(events.Succeeded(string(m.Kind), taskID, m.ID))
	p.span.SetAttributes(
		attribute.String("mutation.outcome", OutcomeCommitted),
		attribute.Int64("task.id", taskID),
	)
	p.span.SetStatus(otelcodes.Ok, "")
	p.span.End()
	c.entry(p).WithField("task_id", taskID).Info("Mutation committed")
	return Result{Mutation: m, Task: task}
}

func (c *Coordinator) rollback(p *pending, cause error) Result {
	if closed := c.restore(p); closed {
		return c.discard(p, cause)
	}
	c.wake(p.affected)
	p.span.SetAttributes(attribute.String("mutation.outcome", OutcomeRolledBack))
	return c.fail(p, cause)
}

// restore puts the snapshot back and reports whether the store was closed.
func (c *Coordinator) restore(p *pending) bool {
	if p.snap.IsZero() {
		return c.store.Closed()
	}
	err := c.store.Restore(p.snap)
	if errors.Is(err, store.ErrClosed) {
		return true
	}
	if err != nil {
		c.entry(p).WithError(err).Error("Failed to restore snapshot")
	}
	return false
}

func (c *Coordinator) reject(p *pending, err error) Result {
	p.span.SetAttributes(attribute.String("mutation.outcome", OutcomeRejected))
	return c.fail(p, err)
}

func (c *Coordinator) fail(p *pending, cause error) Result {
	m := p.m
	// A failed create names the placeholder that left the view.
	taskID := m.TaskID
	if m.Kind == KindCreate && p.tempID != 0 {
		taskID = p.tempID
	}
	err := &MutationError{Kind: m.Kind, TaskID: taskID, MutationID: m.ID, Err: cause}
	c.notifier.Notify(events.Failed(string(m.Kind), taskID, m.ID, cause.Error()))
	p.span.RecordError(err)
	p.span.SetStatus(otelcodes.Error, err.Error())
	p.span.End()
	c.entry(p).WithError(cause).Warn("Mutation failed")
	return Result{Mutation: m, Err: err}
}

// discard ends a mutation whose completion arrived after the store was closed.
func (c *Coordinator) discard(p *pending, cause error) Result {
	p.span.SetAttributes(attribute.String("mutation.outcome", OutcomeDiscarded))
	p.span.End()
	c.entry(p).Debug("Store closed, completion ignored")
	res := Result{Mutation: p.m, Discarded: true}
	if cause != nil {
		res.Err = &MutationError{Kind: p.m.Kind, TaskID: p.m.TaskID, MutationID: p.m.ID, Err: cause}
	}
	return res
}

func (c *Coordinator) acquire(m Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if other, ok := c.inflight[m.TaskID]; ok {
		return fmt.Errorf("%w: %d (mutation %s)", ErrMutationInFlight, m.TaskID, other)
	}
	c.inflight[m.TaskID] = m.ID
	return nil
}

func (c *Coordinator) release(p *pending) {
	if !p.guarded {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[p.m.TaskID] == p.m.ID {
		delete(c.inflight, p.m.TaskID)
	}
	p.guarded = false
}

func (c *Coordinator) hold(cols []models.Column) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, col := range cols {
		c.busy[col]++
	}
}

func (c *Coordinator) unhold(cols []models.Column) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, col := range cols {
		if c.busy[col]--; c.busy[col] <= 0 {
			delete(c.busy, col)
		}
	}
}

func (c *Coordinator) markStale(cols ...models.Column) {
	if c.reconciler != nil && len(cols) > 0 {
		c.reconciler.MarkStale(cols...)
	}
}

func (c *Coordinator) wake(cols []models.Column) {
	if c.reconciler == nil {
		return
	}
	for _, col := range cols {
		c.reconciler.Touch(col)
	}
}

func (c *Coordinator) entry(p *pending) *logrus.Entry {
	return c.logger.WithFields(logrus.Fields{
		"mutation_id": p.m.ID.String(),
		"kind":        p.m.Kind,
		"task_id":     p.m.TaskID,
	})
}

func validate(m Mutation) error {
	switch m.Kind {
	case KindCreate:
		if strings.TrimSpace(m.Draft.Title) == "" {
			return fmt.Errorf("%w: title is required", ErrInvalidMutation)
		}
		if !m.Draft.Column.IsValid() {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidMutation, m.Draft.Column)
		}
	case KindUpdate:
		if m.TaskID <= 0 {
			return fmt.Errorf("%w: task id is required", ErrInvalidMutation)
		}
		if m.Patch.IsEmpty() {
			return fmt.Errorf("%w: nothing to update", ErrInvalidMutation)
		}
		if m.Patch.Column != nil && !m.Patch.Column.IsValid() {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidMutation, *m.Patch.Column)
		}
	case KindMove:
		if m.TaskID <= 0 {
			return fmt.Errorf("%w: task id is required", ErrInvalidMutation)
		}
		if !m.Column.IsValid() {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidMutation, m.Column)
		}
	case KindDelete:
		if m.TaskID <= 0 {
			return fmt.Errorf("%w: task id is required", ErrInvalidMutation)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMutation, m.Kind)
	}
	return nil
}

func appendColumn(cols []models.Column, col models.Column) []models.Column {
	for _, c := range cols {
		if c == col {
			return cols
		}
	}
	out := make([]models.Column, len(cols), len(cols)+1)
	copy(out, cols)
	return append(out, col)
}

func columnNames(cols []models.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = string(c)
	}
	return out
}
