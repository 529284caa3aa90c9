// internal/board/connect_test.go
package board

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/taskboard/internal/config"
	"github.com/gurkanbulca/taskboard/internal/drag"
	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote/cache"
	"github.com/gurkanbulca/taskboard/internal/remote/grpcapi"
	"github.com/gurkanbulca/taskboard/internal/remote/httpapi"
	"github.com/gurkanbulca/taskboard/internal/remote/memory"
	"github.com/gurkanbulca/taskboard/internal/service"
	"github.com/gurkanbulca/taskboard/internal/view"
)

func testConfig() *config.Config {
	return &config.Config{
		Remote: config.RemoteConfig{
			Transport: config.TransportHTTP,
			BaseURL:   "http://localhost:4000/tasks",
			GRPCAddr:  "localhost:50051",
			Timeout:   time.Second,
		},
		Cache: config.CacheConfig{TTL: time.Minute},
	}
}

func TestConnect_HTTP(t *testing.T) {
	logger, _ := test.NewNullLogger()
	backend := memory.New()
	_, err := backend.Create(context.Background(), models.Draft{Title: "Design homepage", Column: models.ColumnBacklog})
	require.NoError(t, err)

	srv := httptest.NewServer(httpapi.NewServer(backend, logger))
	defer srv.Close()

	cfg := testConfig()
	cfg.Remote.BaseURL = srv.URL + "/tasks"
	svc, closeFn, err := Connect(cfg, logger)
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeFn()) }()
	assert.IsType(t, &httpapi.Client{}, svc)

	b := New(svc, WithLogger(logger))
	defer b.Close()
	require.NoError(t, b.Load(context.Background()))
	assert.Len(t, b.Column(models.ColumnBacklog, "", 1).Tasks, 1)
}

func TestConnect_GRPC(t *testing.T) {
	cfg := testConfig()
	cfg.Remote.Transport = config.TransportGRPC

	svc, closeFn, err := Connect(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &grpcapi.Client{}, svc)
	assert.NoError(t, closeFn())
}

func TestConnect_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	logger, _ := test.NewNullLogger()
	srv := httptest.NewServer(httpapi.NewServer(memory.New(), logger))
	defer srv.Close()

	cfg := testConfig()
	cfg.Remote.BaseURL = srv.URL + "/tasks"
	cfg.Cache.RedisURL = "redis://" + mr.Addr() + "/0"

	svc, closeFn, err := Connect(cfg, logger)
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeFn()) }()
	require.IsType(t, &cache.Cache{}, svc)

	_, err = svc.List(context.Background(), models.ForColumn(models.ColumnDone))
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)
}

func TestConnect_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "unknown transport", mutate: func(c *config.Config) { c.Remote.Transport = "carrier-pigeon" }, wantErr: "unknown remote transport"},
		{name: "bad redis url", mutate: func(c *config.Config) { c.Cache.RedisURL = "mysql://nope" }, wantErr: "parse redis url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			_, _, err := Connect(cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigDefaultsMatchComponents(t *testing.T) {
	assert.Equal(t, view.DefaultPageSize, config.DefaultPageSize)
	assert.Equal(t, service.DefaultStaleTime, config.DefaultStaleTime)
	assert.Equal(t, drag.DefaultThreshold, config.DefaultDragThreshold)
}
