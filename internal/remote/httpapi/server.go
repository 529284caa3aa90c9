// internal/remote/httpapi/server.go
package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
)

const maxBodySize = 64 << 10

// NewServer exposes svc over the REST dialect the Client speaks, rooted at
// /tasks.
func NewServer(svc remote.TaskService, logger *log.Logger) *echo.Echo {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		TargetHeader: HeaderRequestID,
	}))
	e.Use(requestLogger(logger))
	Register(e, svc)
	return e
}

// Register wires the task routes on e.
func Register(e *echo.Echo, svc remote.TaskService) {
	e.GET("/tasks", listTasks(svc))
	e.POST("/tasks", createTask(svc))
	e.GET("/tasks/:id", getTask(svc))
	e.PATCH("/tasks/:id", updateTask(svc))
	e.DELETE("/tasks/:id", deleteTask(svc))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func listTasks(svc remote.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var filter models.ListFilter
		if raw := c.QueryParam("column"); raw != "" {
			col, err := models.ParseColumn(raw)
			if err != nil {
				return c.String(http.StatusBadRequest, err.Error())
			}
			filter = models.ForColumn(col)
		}
		tasks, err := svc.List(c.Request().Context(), filter)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func getTask(svc remote.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		task, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func createTask(svc remote.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var draft models.Draft
		if err := decodeBody(c, &draft); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := svc.Create(c.Request().Context(), draft)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(svc remote.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		var patch models.Patch
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := svc.Update(c.Request().Context(), id, patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(svc remote.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		if err := svc.Delete(c.Request().Context(), id); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusOK)
	}
}

func taskID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid task id")
	}
	return id, nil
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	return sonic.ConfigStd.NewDecoder(lr).Decode(out)
}

func writeError(c echo.Context, err error) error {
	var ve *remote.ValidationError
	switch {
	case remote.IsNotFound(err):
		return c.String(http.StatusNotFound, err.Error())
	case errors.As(err, &ve):
		return c.String(http.StatusUnprocessableEntity, ve.Message)
	case remote.IsTransport(err):
		return c.String(http.StatusBadGateway, err.Error())
	default:
		return c.String(http.StatusInternalServerError, err.Error())
	}
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			entry := logger.WithFields(log.Fields{
				"method":      req.Method,
				"path":        c.Path(),
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  c.Response().Header().Get(HeaderRequestID),
			})
			if c.Response().Status >= http.StatusInternalServerError {
				entry.Warn("HTTP request failed")
			} else {
				entry.Debug("HTTP request")
			}
			return nil
		}
	}
}
