// internal/remote/grpcapi/client.go

// Package grpcapi carries the task service over gRPC. Messages are protobuf
// well-known types, so both ends work without generated stubs.
package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
)

// Client is a remote.TaskService over a gRPC connection.
type Client struct {
	conn   grpc.ClientConnInterface
	closer func() error
}

// NewClient wraps an existing connection. Closing the client leaves conn open.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn, closer: func() error { return nil }}
}

// Dial connects to address without transport security.
func Dial(address string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("new grpc client for %s: %w", address, err)
	}
	return &Client{conn: conn, closer: conn.Close}, nil
}

// Close releases the connection if the client owns it.
func (c *Client) Close() error { return c.closer() }

func (c *Client) List(ctx context.Context, filter models.ListFilter) ([]models.Task, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(MethodListTasks), filterToPB(filter), resp); err != nil {
		return nil, mapGRPCErr("list tasks", 0, err)
	}
	tasks, err := tasksFromPB(resp)
	if err != nil {
		return nil, &remote.TransportError{Op: "list tasks", Err: err}
	}
	return tasks, nil
}

func (c *Client) Get(ctx context.Context, id int64) (models.Task, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(MethodGetTask), wrapperspb.Int64(id), resp); err != nil {
		return models.Task{}, mapGRPCErr("get task", id, err)
	}
	return decodeTask("get task", resp)
}

func (c *Client) Create(ctx context.Context, draft models.Draft) (models.Task, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(MethodCreateTask), draftToPB(draft), resp); err != nil {
		return models.Task{}, mapGRPCErr("create task", 0, err)
	}
	return decodeTask("create task", resp)
}

func (c *Client) Update(ctx context.Context, id int64, patch models.Patch) (models.Task, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(MethodUpdateTask), updateToPB(id, patch), resp); err != nil {
		return models.Task{}, mapGRPCErr("update task", id, err)
	}
	return decodeTask("update task", resp)
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	err := c.conn.Invoke(ctx, fullMethod(MethodDeleteTask), wrapperspb.Int64(id), new(emptypb.Empty))
	return mapGRPCErr("delete task", id, err)
}

var _ remote.TaskService = (*Client)(nil)

// ---- helpers

func decodeTask(op string, resp *structpb.Struct) (models.Task, error) {
	task, err := taskFromPB(resp)
	if err != nil {
		return models.Task{}, &remote.TransportError{Op: op, Err: err}
	}
	return task, nil
}

func mapGRPCErr(op string, id int64, err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		if id != 0 {
			return remote.NotFound(id)
		}
	case codes.InvalidArgument:
		return &remote.ValidationError{Message: st.Message()}
	}
	return &remote.TransportError{Op: op, Code: st.Code().String(), Err: err}
}
