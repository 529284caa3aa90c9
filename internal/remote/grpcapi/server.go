// internal/remote/grpcapi/server.go
package grpcapi

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/gurkanbulca/taskboard/internal/remote"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kanban.v1.TaskService"

// Method names.
const (
	MethodListTasks  = "ListTasks"
	MethodGetTask    = "GetTask"
	MethodCreateTask = "CreateTask"
	MethodUpdateTask = "UpdateTask"
	MethodDeleteTask = "DeleteTask"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*remote.TaskService)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodListTasks, func() *structpb.Struct { return new(structpb.Struct) }, listTasks),
		unary(MethodGetTask, func() *wrapperspb.Int64Value { return new(wrapperspb.Int64Value) }, getTask),
		unary(MethodCreateTask, func() *structpb.Struct { return new(structpb.Struct) }, createTask),
		unary(MethodUpdateTask, func() *structpb.Struct { return new(structpb.Struct) }, updateTask),
		unary(MethodDeleteTask, func() *wrapperspb.Int64Value { return new(wrapperspb.Int64Value) }, deleteTask),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kanban/v1/task_service.proto",
}

// Register exposes svc on s as kanban.v1.TaskService.
func Register(s grpc.ServiceRegistrar, svc remote.TaskService) {
	s.RegisterService(&serviceDesc, svc)
}

// unary builds a method descriptor that decodes the request, runs it through
// the server's interceptor chain and calls fn.
func unary[Req proto.Message](name string, newReq func() Req, fn func(context.Context, remote.TaskService, Req) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			svc := srv.(remote.TaskService)
			if interceptor == nil {
				return fn(ctx, svc, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(ctx, svc, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func listTasks(ctx context.Context, svc remote.TaskService, req *structpb.Struct) (proto.Message, error) {
	filter := filterFromPB(req)
	if filter.Column != nil && !filter.Column.IsValid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown column %q", *filter.Column)
	}
	tasks, err := svc.List(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	return tasksToPB(tasks), nil
}

func getTask(ctx context.Context, svc remote.TaskService, req *wrapperspb.Int64Value) (proto.Message, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	task, err := svc.Get(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return taskToPB(task), nil
}

func createTask(ctx context.Context, svc remote.TaskService, req *structpb.Struct) (proto.Message, error) {
	task, err := svc.Create(ctx, draftFromPB(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return taskToPB(task), nil
}

func updateTask(ctx context.Context, svc remote.TaskService, req *structpb.Struct) (proto.Message, error) {
	id, patch := updateFromPB(req)
	if id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	task, err := svc.Update(ctx, id, patch)
	if err != nil {
		return nil, toStatus(err)
	}
	return taskToPB(task), nil
}

func deleteTask(ctx context.Context, svc remote.TaskService, req *wrapperspb.Int64Value) (proto.Message, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	if err := svc.Delete(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	var ve *remote.ValidationError
	switch {
	case remote.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Message)
	case remote.IsTransport(err):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Errorf(codes.Internal, "task service: %v", err)
	}
}
