// cmd/taskboardd/main.go

// Command taskboardd serves an in-memory task list over the REST dialect the
// board client speaks and over gRPC. State lives only as long as the process.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/gurkanbulca/taskboard/internal/config"
	"github.com/gurkanbulca/taskboard/internal/middleware"
	"github.com/gurkanbulca/taskboard/internal/remote/grpcapi"
	"github.com/gurkanbulca/taskboard/internal/remote/httpapi"
	"github.com/gurkanbulca/taskboard/internal/remote/memory"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	svc, err := newBackend(cfg.Server.SeedFile)
	if err != nil {
		logger.Fatalf("Failed to seed tasks: %v", err)
	}

	grpcServer := newGRPCServer(cfg, svc, logger)
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
	if err != nil {
		logger.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		logger.Infof("🚀 gRPC server listening on port %s", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(listener); err != nil {
			logger.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	e := httpapi.NewServer(svc, logger)
	go func() {
		logger.Infof("🚀 REST server listening on port %s", cfg.Server.HTTPPort)
		if err := e.Start(":" + cfg.Server.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to serve REST: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("📴 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("REST shutdown incomplete")
	}
	grpcServer.GracefulStop()
	logger.Info("✅ Server shutdown complete")
}

func newBackend(seedFile string) (*memory.Service, error) {
	svc := memory.New()
	if seedFile == "" {
		return svc, nil
	}
	f, err := os.Open(seedFile)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	if err := svc.LoadSeed(f); err != nil {
		return nil, err
	}
	return svc, nil
}

func newGRPCServer(cfg *config.Config, svc *memory.Service, logger *log.Logger) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.NewMetadataExtractorInterceptor().Unary(),
			middleware.NewValidationInterceptor(nil).Unary(),
			middleware.ServerLogging(logger),
		),
	)
	grpcapi.Register(grpcServer, svc)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	if cfg.Server.EnableReflection || cfg.IsDevelopment() {
		reflection.Register(grpcServer)
		logger.Info("gRPC reflection enabled")
	}
	return grpcServer
}
