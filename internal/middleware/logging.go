// internal/middleware/logging.go
package middleware

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ClientLogging logs every outgoing call with its duration and status code.
func ClientLogging(logger *logrus.Logger) grpc.UnaryClientInterceptor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		entry := logger.WithFields(logrus.Fields{
			"method":      method,
			"code":        status.Code(err).String(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  OutgoingRequestID(ctx),
		})
		if err != nil {
			entry.WithError(err).Warn("gRPC call failed")
		} else {
			entry.Debug("gRPC call completed")
		}
		return err
	}
}

// ServerLogging logs incoming requests. It expects the metadata extractor to
// run first so client details are in the context.
func ServerLogging(logger *logrus.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		client := GetClientInfoFromContext(ctx)
		entry := logger.WithFields(logrus.Fields{
			"method":      info.FullMethod,
			"code":        status.Code(err).String(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          client.IPAddress,
			"request_id":  client.RequestID,
		})
		if err != nil {
			entry.WithError(err).Error("Request failed")
		} else {
			entry.Info("Request completed")
		}
		return resp, err
	}
}
