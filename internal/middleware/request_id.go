// internal/middleware/request_id.go
package middleware

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// MetadataRequestID is the metadata key carrying the per-call request id.
const MetadataRequestID = "x-request-id"

// RequestID returns a client interceptor that tags every outgoing call with a
// fresh request id unless the caller already set one.
func RequestID() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(withRequestID(ctx), method, req, reply, cc, opts...)
	}
}

func withRequestID(ctx context.Context) context.Context {
	if md, ok := metadata.FromOutgoingContext(ctx); ok && len(md.Get(MetadataRequestID)) > 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, MetadataRequestID, uuid.NewString())
}

// OutgoingRequestID returns the request id attached to an outgoing context.
func OutgoingRequestID(ctx context.Context) string {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(MetadataRequestID); len(v) > 0 {
		return v[0]
	}
	return ""
}
