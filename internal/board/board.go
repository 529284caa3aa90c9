// internal/board/board.go

// Package board assembles the task cache, mutation coordinator, reconciler and
// drag sessions into the object a board front end talks to.
package board

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/gurkanbulca/taskboard/internal/drag"
	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
	"github.com/gurkanbulca/taskboard/internal/service"
	"github.com/gurkanbulca/taskboard/internal/store"
	"github.com/gurkanbulca/taskboard/internal/view"
)

// Board is a cached, optimistically updated view of a remote task list.
type Board struct {
	store *store.Store
	rec   *service.Reconciler
	coord *service.Coordinator

	logger        *logrus.Logger
	pageSize      int
	dragThreshold float64

	mu      sync.Mutex
	stop    context.CancelFunc
	stopped chan struct{}
}

type settings struct {
	logger        *logrus.Logger
	notifiers     []service.Notifier
	tp            trace.TracerProvider
	pageSize      int
	staleTime     time.Duration
	dragThreshold float64
}

// Option configures a Board.
type Option func(*settings)

// WithLogger sets the logger shared by every component.
func WithLogger(l *logrus.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithNotifier adds a receiver for mutation outcome events. The outcomes are
// always logged as well.
func WithNotifier(n service.Notifier) Option {
	return func(s *settings) { s.notifiers = append(s.notifiers, n) }
}

// WithTracerProvider sets the provider used for mutation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) { s.tp = tp }
}

// WithPageSize sets how many cards one page of a column holds.
func WithPageSize(n int) Option {
	return func(s *settings) { s.pageSize = n }
}

// WithStaleTime sets how long fetched columns are trusted.
func WithStaleTime(d time.Duration) Option {
	return func(s *settings) { s.staleTime = d }
}

// WithDragThreshold sets the pointer travel that turns a press into a drag.
func WithDragThreshold(px float64) Option {
	return func(s *settings) { s.dragThreshold = px }
}

// New creates a board backed by api. Call Load before reading columns.
func New(api remote.TaskService, opts ...Option) *Board {
	cfg := settings{
		logger:        logrus.StandardLogger(),
		pageSize:      view.DefaultPageSize,
		staleTime:     service.DefaultStaleTime,
		dragThreshold: drag.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logrus.StandardLogger()
	}

	st := store.New()
	rec := service.NewReconciler(st, api,
		service.WithStaleTime(cfg.staleTime),
		service.WithReconcilerLogger(cfg.logger),
	)

	notifier := append(service.Fanout{service.NewLogNotifier(cfg.logger)}, cfg.notifiers...)
	coordOpts := []service.Option{
		service.WithNotifier(notifier),
		service.WithLogger(cfg.logger),
		service.WithReconciler(rec),
	}
	if cfg.tp != nil {
		coordOpts = append(coordOpts, service.WithTracerProvider(cfg.tp))
	}

	return &Board{
		store:         st,
		rec:           rec,
		coord:         service.NewCoordinator(st, api, coordOpts...),
		logger:        cfg.logger,
		pageSize:      cfg.pageSize,
		dragThreshold: cfg.dragThreshold,
	}
}

// Load fetches every task and fills the columns.
func (b *Board) Load(ctx context.Context) error {
	return b.rec.Load(ctx)
}

// Start runs background reconciliation until Close is called or ctx is done.
// Calling Start on a running board does nothing.
func (b *Board) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil || b.store.Closed() {
		return
	}
	ctx, b.stop = context.WithCancel(ctx)
	b.stopped = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		b.rec.Run(ctx)
	}(b.stopped)
}

// Run reconciles in the calling goroutine until ctx is done.
func (b *Board) Run(ctx context.Context) {
	b.rec.Run(ctx)
}

// Close stops reconciliation and closes the cache. Remote calls still in
// flight complete but their results are discarded.
func (b *Board) Close() {
	b.mu.Lock()
	stop, stopped := b.stop, b.stopped
	b.stop, b.stopped = nil, nil
	b.mu.Unlock()

	if stop != nil {
		stop()
		<-stopped
	}
	b.store.Close()
	b.logger.Debug("Board closed")
}

// Column returns the first pages of col filtered by term. Reading a stale
// column schedules a refetch.
func (b *Board) Column(col models.Column, term string, pages int) view.Page {
	b.rec.Touch(col)
	return view.Filter(b.store.Partition(col), term, b.pageSize, pages)
}

// Columns returns Column for every board column.
func (b *Board) Columns(term string, pages int) map[models.Column]view.Page {
	out := make(map[models.Column]view.Page, len(models.Columns()))
	for _, col := range models.Columns() {
		out[col] = b.Column(col, term, pages)
	}
	return out
}

// Task returns the cached task with id.
func (b *Board) Task(id int64) (models.Task, bool) {
	return b.store.Get(id)
}

// Subscribe registers fn for changes to cols, or to every column when none
// are given. The returned function unsubscribes.
func (b *Board) Subscribe(fn store.Listener, cols ...models.Column) func() {
	return b.store.Subscribe(fn, cols...)
}

// IsStale reports whether col is waiting to be refetched.
func (b *Board) IsStale(col models.Column) bool {
	return b.rec.IsStale(col)
}

// Refresh refetches cols, or every column when none are given.
func (b *Board) Refresh(ctx context.Context, cols ...models.Column) error {
	if len(cols) == 0 {
		cols = models.Columns()
	}
	return b.rec.Refresh(ctx, cols...)
}

func (b *Board) Create(ctx context.Context, draft models.Draft) (models.Task, error) {
	return b.coord.Create(ctx, draft)
}

func (b *Board) Update(ctx context.Context, id int64, patch models.Patch) (models.Task, error) {
	return b.coord.Update(ctx, id, patch)
}

func (b *Board) Delete(ctx context.Context, id int64) error {
	return b.coord.Delete(ctx, id)
}

func (b *Board) MoveColumn(ctx context.Context, id int64, to models.Column) (models.Task, error) {
	return b.coord.MoveColumn(ctx, id, to)
}

// Dispatch starts m without waiting for the remote call.
func (b *Board) Dispatch(ctx context.Context, m service.Mutation) <-chan service.Result {
	return b.coord.Dispatch(ctx, m)
}

// Pending reports whether a mutation of task id is in flight.
func (b *Board) Pending(id int64) bool {
	return b.coord.Pending(id)
}

// NewDragSession creates a drag gesture bound to this board. opts are applied
// after the board's threshold and logger.
func (b *Board) NewDragSession(opts ...drag.Option) *drag.Session {
	base := []drag.Option{
		drag.WithThreshold(b.dragThreshold),
		drag.WithLogger(b.logger),
	}
	return drag.NewSession(b.store, b.coord, append(base, opts...)...)
}
