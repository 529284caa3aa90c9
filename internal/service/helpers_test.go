// internal/service/helpers_test.go
package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
	"github.com/gurkanbulca/taskboard/internal/remote/memory"
	"github.com/gurkanbulca/taskboard/internal/store"
)

// fakeRemote wraps the in-memory service with injectable failures and gates
// that hold a call until the test releases it.
type fakeRemote struct {
	*memory.Service

	mu      sync.Mutex
	fail    map[string]error
	gates   map[string]chan struct{}
	calls   map[string]int
	entered chan string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		Service: memory.New(),
		fail:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
		calls:   make(map[string]int),
		entered: make(chan string, 64),
	}
}

func (f *fakeRemote) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

// hold makes calls to op block until the returned function is called.
func (f *fakeRemote) hold(op string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[op] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, op)
			f.mu.Unlock()
			close(gate)
		})
	}
}

// drain forgets calls recorded so far for waitEntered.
func (f *fakeRemote) drain() {
	for {
		select {
		case <-f.entered:
		default:
			return
		}
	}
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	err := f.fail[op]
	f.mu.Unlock()

	select {
	case f.entered <- op:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeRemote) List(ctx context.Context, filter models.ListFilter) ([]models.Task, error) {
	if err := f.enter(ctx, "list"); err != nil {
		return nil, err
	}
	return f.Service.List(ctx, filter)
}

func (f *fakeRemote) Create(ctx context.Context, draft models.Draft) (models.Task, error) {
	if err := f.enter(ctx, "create"); err != nil {
		return models.Task{}, err
	}
	return f.Service.Create(ctx, draft)
}

func (f *fakeRemote) Update(ctx context.Context, id int64, patch models.Patch) (models.Task, error) {
	if err := f.enter(ctx, "update"); err != nil {
		return models.Task{}, err
	}
	return f.Service.Update(ctx, id, patch)
}

func (f *fakeRemote) Delete(ctx context.Context, id int64) error {
	if err := f.enter(ctx, "delete"); err != nil {
		return err
	}
	return f.Service.Delete(ctx, id)
}

var _ remote.TaskService = (*fakeRemote)(nil)

type fixture struct {
	store  *store.Store
	api    *fakeRemote
	rec    *Reconciler
	coord  *Coordinator
	events *Recorder
	hook   *test.Hook
	spans  *tracetest.SpanRecorder
}

// newFixture seeds the remote with drafts (ids 1..n in order) and loads them
// into a fresh store.
func newFixture(t *testing.T, drafts ...models.Draft) *fixture {
	t.Helper()
	ctx := context.Background()

	api := newFakeRemote()
	for _, d := range drafts {
		_, err := api.Service.Create(ctx, d)
		require.NoError(t, err)
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	st := store.New()
	rec := NewReconciler(st, api, WithReconcilerLogger(logger))
	events := &Recorder{}
	coord := NewCoordinator(st, api,
		WithNotifier(events),
		WithLogger(logger),
		WithTracerProvider(tp),
		WithReconciler(rec),
	)
	require.NoError(t, rec.Load(ctx))
	api.drain()

	return &fixture{
		store:  st,
		api:    api,
		rec:    rec,
		coord:  coord,
		events: events,
		hook:   hook,
		spans:  spans,
	}
}

func draft(title string, col models.Column) models.Draft {
	return models.Draft{Title: title, Column: col}
}

func ids(tasks []models.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

// columnsHolding returns every partition that currently contains id.
func columnsHolding(st *store.Store, id int64) []models.Column {
	var out []models.Column
	for _, col := range models.Columns() {
		for _, t := range st.Partition(col) {
			if t.ID == id {
				out = append(out, col)
			}
		}
	}
	return out
}

func waitEntered(t *testing.T, f *fakeRemote, op string) {
	t.Helper()
	for {
		select {
		case got := <-f.entered:
			if got == op {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("remote %s was never called", op)
		}
	}
}
