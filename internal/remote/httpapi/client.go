// internal/remote/httpapi/client.go

// Package httpapi speaks the board's REST dialect: a collection resource at the
// base URL filtered with ?column=, and items at <base>/<id>.
package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
)

// HeaderRequestID carries a per-call identifier for correlating logs.
const HeaderRequestID = "X-Request-ID"

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// Client is a remote.TaskService over HTTP.
type Client struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

// New creates a client for the collection at baseURL, e.g.
// http://localhost:4000/tasks. A zero timeout means no client-side limit.
func New(baseURL, bearer string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Bearer:  bearer,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) List(ctx context.Context, filter models.ListFilter) ([]models.Task, error) {
	target := c.BaseURL
	if filter.Column != nil {
		target += "?" + url.Values{"column": {string(*filter.Column)}}.Encode()
	}
	var tasks []models.Task
	if err := c.do(ctx, "list tasks", 0, http.MethodGet, target, nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (c *Client) Get(ctx context.Context, id int64) (models.Task, error) {
	var task models.Task
	err := c.do(ctx, "get task", id, http.MethodGet, c.item(id), nil, &task)
	return task, err
}

func (c *Client) Create(ctx context.Context, draft models.Draft) (models.Task, error) {
	var task models.Task
	err := c.do(ctx, "create task", 0, http.MethodPost, c.BaseURL, draft, &task)
	return task, err
}

func (c *Client) Update(ctx context.Context, id int64, patch models.Patch) (models.Task, error) {
	var task models.Task
	err := c.do(ctx, "update task", id, http.MethodPatch, c.item(id), patch, &task)
	return task, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete task", id, http.MethodDelete, c.item(id), nil, nil)
}

func (c *Client) item(id int64) string {
	return c.BaseURL + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op string, id int64, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &remote.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, id, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &remote.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return &remote.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(op string, id int64, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(data))

	switch resp.StatusCode {
	case http.StatusNotFound:
		if id != 0 {
			return remote.NotFound(id)
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &remote.ValidationError{Message: msg}
	}
	return &remote.TransportError{Op: op, StatusCode: resp.StatusCode, Body: msg}
}

var _ remote.TaskService = (*Client)(nil)
