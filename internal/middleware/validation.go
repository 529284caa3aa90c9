// internal/middleware/validation.go
package middleware

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote/grpcapi"
)

// ValidationConfig holds validation configuration
type ValidationConfig struct {
	MaxTitleLength       int
	MaxDescriptionLength int
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxTitleLength:       200,
		MaxDescriptionLength: 5000,
	}
}

// ValidationInterceptor rejects malformed task requests before they reach the
// service.
type ValidationInterceptor struct {
	config *ValidationConfig
}

// NewValidationInterceptor creates a validation interceptor. A nil config uses
// the defaults.
func NewValidationInterceptor(config *ValidationConfig) *ValidationInterceptor {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &ValidationInterceptor{config: config}
}

// Unary returns a unary server interceptor for request validation
func (v *ValidationInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := v.validateRequest(req, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (v *ValidationInterceptor) validateRequest(req any, method string) error {
	s, ok := req.(*structpb.Struct)
	if !ok {
		return nil
	}
	switch method {
	case "/" + grpcapi.ServiceName + "/" + grpcapi.MethodCreateTask:
		return v.validateCreateTaskRequest(s.GetFields())
	case "/" + grpcapi.ServiceName + "/" + grpcapi.MethodUpdateTask:
		return v.validateUpdateTaskRequest(s.GetFields())
	}
	return nil
}

func (v *ValidationInterceptor) validateCreateTaskRequest(fields map[string]*structpb.Value) error {
	var errors []string

	if strings.TrimSpace(fields["title"].GetStringValue()) == "" {
		errors = append(errors, "title is required")
	}
	errors = append(errors, v.validateTaskFields(fields)...)

	if len(errors) > 0 {
		return status.Error(codes.InvalidArgument, strings.Join(errors, "; "))
	}
	return nil
}

func (v *ValidationInterceptor) validateUpdateTaskRequest(fields map[string]*structpb.Value) error {
	var errors []string

	if fields["id"].GetNumberValue() <= 0 {
		errors = append(errors, "valid task id is required")
	}
	patch := fields["patch"].GetStructValue().GetFields()
	if len(patch) == 0 {
		errors = append(errors, "at least one field must be updated")
	}
	if title, ok := patch["title"]; ok && strings.TrimSpace(title.GetStringValue()) == "" {
		errors = append(errors, "title cannot be empty")
	}
	errors = append(errors, v.validateTaskFields(patch)...)

	if len(errors) > 0 {
		return status.Error(codes.InvalidArgument, strings.Join(errors, "; "))
	}
	return nil
}

func (v *ValidationInterceptor) validateTaskFields(fields map[string]*structpb.Value) []string {
	var errors []string
	if title, ok := fields["title"]; ok && len(title.GetStringValue()) > v.config.MaxTitleLength {
		errors = append(errors, fmt.Sprintf("title too long (max %d characters)", v.config.MaxTitleLength))
	}
	if desc, ok := fields["description"]; ok && len(desc.GetStringValue()) > v.config.MaxDescriptionLength {
		errors = append(errors, fmt.Sprintf("description too long (max %d characters)", v.config.MaxDescriptionLength))
	}
	if col, ok := fields["column"]; ok && !models.Column(col.GetStringValue()).IsValid() {
		errors = append(errors, fmt.Sprintf("unknown column %q", col.GetStringValue()))
	}
	return errors
}
