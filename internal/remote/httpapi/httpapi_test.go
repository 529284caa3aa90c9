// internal/remote/httpapi/httpapi_test.go
package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
	"github.com/gurkanbulca/taskboard/internal/remote/memory"
)

func newTestServer(t *testing.T) (*Client, *memory.Service) {
	t.Helper()
	svc := memory.New()
	logger, _ := test.NewNullLogger()
	srv := httptest.NewServer(NewServer(svc, logger))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/tasks/", "", 5*time.Second), svc
}

func TestClient_RoundTrip(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	created, err := client.Create(ctx, models.Draft{Title: "Design homepage", Description: "hero", Column: models.ColumnBacklog})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, models.ColumnBacklog, created.Column)
	require.NotNil(t, created.CreatedAt)

	_, err = client.Create(ctx, models.Draft{Title: "Fix bug", Column: models.ColumnReview})
	require.NoError(t, err)

	review, err := client.List(ctx, models.ForColumn(models.ColumnReview))
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, "Fix bug", review[0].Title)

	done := models.ColumnDone
	updated, err := client.Update(ctx, created.ID, models.Patch{Column: &done})
	require.NoError(t, err)
	assert.Equal(t, models.ColumnDone, updated.Column)
	assert.Equal(t, "hero", updated.Description)

	got, err := client.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ColumnDone, got.Column)

	require.NoError(t, client.Delete(ctx, created.ID))
	all, err := client.List(ctx, models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	empty, err := client.List(ctx, models.ForColumn(models.ColumnInProgress))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestClient_ErrorMapping(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		check func(error) bool
	}{
		{
			name:  "get missing task",
			call:  func() error { _, err := client.Get(ctx, 7); return err },
			check: remote.IsNotFound,
		},
		{
			name:  "delete missing task",
			call:  func() error { return client.Delete(ctx, 7) },
			check: remote.IsNotFound,
		},
		{
			name:  "create without title",
			call:  func() error { _, err := client.Create(ctx, models.Draft{Column: models.ColumnBacklog}); return err },
			check: remote.IsValidation,
		},
		{
			name: "update with unknown column",
			call: func() error {
				col := models.Column("archive")
				_, err := client.Update(ctx, 1, models.Patch{Column: &col})
				return err
			},
			check: remote.IsValidation,
		},
		{
			name:  "list with unknown column",
			call:  func() error { _, err := client.List(ctx, models.ForColumn("archive")); return err },
			check: remote.IsValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestClient_TransportErrors(t *testing.T) {
	t.Run("server error keeps the body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "database is down", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := New(srv.URL, "", time.Second).List(context.Background(), models.ListFilter{})
		require.Error(t, err)
		var te *remote.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
		assert.Equal(t, "database is down", te.Body)
		assert.Equal(t, "list tasks: database is down", err.Error())
	})

	t.Run("unreachable service", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(url, "", time.Second).Create(context.Background(), models.Draft{Title: "x", Column: models.ColumnBacklog})
		require.Error(t, err)
		assert.True(t, remote.IsTransport(err))
	})

	t.Run("malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := New(srv.URL, "", time.Second).Get(context.Background(), 1)
		assert.True(t, remote.IsTransport(err))
	})
}

func TestClient_SendsHeaders(t *testing.T) {
	var (
		mu      sync.Mutex
		headers http.Header
		method  string
		query   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = r.Header.Clone()
		method = r.Method
		query = r.URL.RawQuery
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "secret", time.Second).List(context.Background(), models.ForColumn(models.ColumnInProgress))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "column=in-progress", query)
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	assert.NotEmpty(t, headers.Get(HeaderRequestID))
}

func TestServer_RejectsBadRequests(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := NewServer(memory.New(), logger)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "non numeric id", method: http.MethodGet, path: "/tasks/abc", want: http.StatusBadRequest},
		{name: "zero id", method: http.MethodDelete, path: "/tasks/0", want: http.StatusBadRequest},
		{name: "health", method: http.MethodGet, path: "/healthz", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
