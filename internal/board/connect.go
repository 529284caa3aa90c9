// internal/board/connect.go
package board

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/gurkanbulca/taskboard/internal/config"
	"github.com/gurkanbulca/taskboard/internal/middleware"
	"github.com/gurkanbulca/taskboard/internal/remote"
	"github.com/gurkanbulca/taskboard/internal/remote/cache"
	"github.com/gurkanbulca/taskboard/internal/remote/grpcapi"
	"github.com/gurkanbulca/taskboard/internal/remote/httpapi"
)

// Connect builds the remote task service described by cfg: the configured
// transport, wrapped in the Redis list cache when REDIS_URL is set. The
// returned function releases the connections.
func Connect(cfg *config.Config, logger *logrus.Logger) (remote.TaskService, func() error, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var (
		svc     remote.TaskService
		closers []func() error
	)
	switch cfg.Remote.Transport {
	case config.TransportHTTP:
		svc = httpapi.New(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout)
		logger.WithField("base_url", cfg.Remote.BaseURL).Debug("Using REST remote")
	case config.TransportGRPC:
		client, err := grpcapi.Dial(cfg.Remote.GRPCAddr,
			grpc.WithChainUnaryInterceptor(
				middleware.RequestID(),
				middleware.ClientLogging(logger),
			),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("dial grpc remote: %w", err)
		}
		svc = client
		closers = append(closers, client.Close)
		logger.WithField("addr", cfg.Remote.GRPCAddr).Debug("Using gRPC remote")
	default:
		return nil, nil, fmt.Errorf("unknown remote transport %q", cfg.Remote.Transport)
	}

	if cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		closers = append(closers, rdb.Close)
		svc = cache.New(svc, rdb, cfg.Cache.TTL, logger)
		logger.WithField("ttl", cfg.Cache.TTL.String()).Debug("Caching task lists in Redis")
	}

	return svc, func() error { return closeAll(closers) }, nil
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
