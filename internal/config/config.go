// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Board defaults, matching view.DefaultPageSize, service.DefaultStaleTime and
// drag.DefaultThreshold.
const (
	DefaultPageSize      = 10
	DefaultStaleTime     = 5 * time.Minute
	DefaultDragThreshold = 8.0
)

// Remote transports.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

type Config struct {
	Server ServerConfig
	Remote RemoteConfig
	Cache  CacheConfig
	Board  BoardConfig
	Log    LogConfig
}

type ServerConfig struct {
	GRPCPort         string
	HTTPPort         string
	Environment      string
	EnableReflection bool
	SeedFile         string
}

type RemoteConfig struct {
	Transport string
	BaseURL   string
	GRPCAddr  string
	Timeout   time.Duration
	Token     string
}

type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

type BoardConfig struct {
	PageSize      int
	StaleTime     time.Duration
	DragThreshold float64
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			GRPCPort:         getEnv("GRPC_PORT", "50051"),
			HTTPPort:         getEnv("HTTP_PORT", "4000"),
			Environment:      getEnv("ENVIRONMENT", "development"),
			EnableReflection: getEnvAsBool("ENABLE_REFLECTION", false),
			SeedFile:         getEnv("SEED_FILE", ""),
		},
		Remote: RemoteConfig{
			Transport: strings.ToLower(getEnv("REMOTE_TRANSPORT", TransportHTTP)),
			BaseURL:   getEnv("REMOTE_BASE_URL", "http://localhost:4000/tasks"),
			GRPCAddr:  getEnv("REMOTE_GRPC_ADDR", "localhost:50051"),
			Timeout:   getEnvAsDuration("REMOTE_TIMEOUT", 10*time.Second),
			Token:     getEnv("REMOTE_TOKEN", ""),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      getEnvAsDuration("CACHE_TTL", 30*time.Second),
		},
		Board: BoardConfig{
			PageSize:      getEnvAsInt("BOARD_PAGE_SIZE", DefaultPageSize),
			StaleTime:     getEnvAsDuration("BOARD_STALE_TIME", DefaultStaleTime),
			DragThreshold: getEnvAsFloat("DRAG_THRESHOLD", DefaultDragThreshold),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}, nil
}

// ValidateConfig checks values that would otherwise fail later at startup.
func (c *Config) ValidateConfig() error {
	switch c.Remote.Transport {
	case TransportHTTP:
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("REMOTE_BASE_URL must be an absolute URL, got %q", c.Remote.BaseURL)
		}
	case TransportGRPC:
		if c.Remote.GRPCAddr == "" {
			return fmt.Errorf("REMOTE_GRPC_ADDR is required for the grpc transport")
		}
	default:
		return fmt.Errorf("REMOTE_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportGRPC, c.Remote.Transport)
	}

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("CACHE_TTL cannot be negative")
	}
	if c.Board.PageSize <= 0 {
		return fmt.Errorf("BOARD_PAGE_SIZE must be positive")
	}
	if c.Board.StaleTime <= 0 {
		return fmt.Errorf("BOARD_STALE_TIME must be positive")
	}
	if c.Board.DragThreshold < 0 {
		return fmt.Errorf("DRAG_THRESHOLD cannot be negative")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// NewLogger builds a logger from the log settings. Invalid levels fall back to
// info.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Accept "15m", "24h" style durations.
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
