// internal/drag/session.go

// Package drag turns pointer gestures on a task card into column moves.
package drag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/service"
)

// DefaultThreshold is how far, in pixels, the pointer has to travel before a
// press becomes a drag.
const DefaultThreshold = 8.0

var (
	ErrSessionActive = errors.New("drag session already active")
	ErrUnknownTask   = errors.New("task not on the board")
)

// State is the phase of a drag session.
type State int

const (
	Idle State = iota
	Armed
	Dragging
	Dropped
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Tasks looks up the card being dragged. *store.Store satisfies it.
type Tasks interface {
	Get(id int64) (models.Task, bool)
}

// Dispatcher starts a mutation without waiting for it. *service.Coordinator
// satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, m service.Mutation) <-chan service.Result
}

// Outcome describes how a released gesture ended.
type Outcome struct {
	State  State
	TaskID int64
	From   models.Column
	To     models.Column
	// Result is non-nil only when a move was dispatched.
	Result <-chan service.Result
}

// Dispatched reports whether the release issued a move.
func (o Outcome) Dispatched() bool {
	return o.Result != nil
}

// Session tracks one pointer gesture at a time.
type Session struct {
	tasks      Tasks
	dispatcher Dispatcher
	hit        HitTester
	threshold  float64
	logger     *logrus.Logger
	observe    func(from, to State)

	mu        sync.Mutex
	state     State
	taskID    int64
	source    models.Column
	origin    Point
	target    models.Column
	hasTarget bool
}

// Option configures a Session.
type Option func(*Session)

// WithThreshold sets the activation distance. Negative values are ignored.
func WithThreshold(px float64) Option {
	return func(s *Session) {
		if px >= 0 {
			s.threshold = px
		}
	}
}

// WithHitTester replaces ContainsPoint as the drop target resolver.
func WithHitTester(h HitTester) Option {
	return func(s *Session) {
		if h != nil {
			s.hit = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers fn to be told about every state transition,
// including the transient Dropped and Cancelled states. fn runs with the
// session locked and must not call back into it.
func WithObserver(fn func(from, to State)) Option {
	return func(s *Session) {
		s.observe = fn
	}
}

// NewSession creates an idle session.
func NewSession(tasks Tasks, d Dispatcher, opts ...Option) *Session {
	s := &Session{
		tasks:      tasks,
		dispatcher: d,
		hit:        HitTestFunc(ContainsPoint),
		threshold:  DefaultThreshold,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TaskID returns the task being pressed or dragged, or zero when idle.
func (s *Session) TaskID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskID
}

// Target returns the column currently under the pointer while dragging.
func (s *Session) Target() (models.Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.hasTarget
}

// Press arms the session on a task. Nothing moves until the pointer has
// travelled the activation distance.
func (s *Session) Press(taskID int64, at Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return fmt.Errorf("%w: task %d is %s", ErrSessionActive, s.taskID, s.state)
	}
	task, ok := s.tasks.Get(taskID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTask, taskID)
	}
	s.taskID = taskID
	s.source = task.Column
	s.origin = at
	s.transition(Armed)
	return nil
}

// Move follows the pointer. An armed session starts dragging once the pointer
// is far enough from where it was pressed; a dragging session recomputes its
// drop target.
func (s *Session) Move(at Point, geoms []Geometry) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Armed:
		if s.origin.Distance(at) < s.threshold {
			return s.state
		}
		s.transition(Dragging)
		s.locate(at, geoms)
	case Dragging:
		s.locate(at, geoms)
	}
	return s.state
}

// Release ends the gesture. A release over a column other than the task's
// current one dispatches exactly one move and returns without waiting for it.
// Every path leaves the session idle.
func (s *Session) Release(ctx context.Context, at Point, geoms []Geometry) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Outcome{TaskID: s.taskID, From: s.source}
	switch s.state {
	case Idle:
		out.State = Idle
		return out
	case Armed:
		// A press that never became a drag is a click.
		s.reset()
		out.State = Idle
		return out
	}

	s.locate(at, geoms)
	if !s.hasTarget {
		return s.cancel(out)
	}
	out.To = s.target

	current, ok := s.tasks.Get(s.taskID)
	if !ok {
		s.logger.WithField("task_id", s.taskID).Debug("Dragged task left the board, drop ignored")
		return s.cancel(out)
	}

	s.transition(Dropped)
	out.State = Dropped
	if current.Column != s.target {
		out.Result = s.dispatcher.Dispatch(ctx, service.NewMove(s.taskID, s.target))
		s.logger.WithFields(logrus.Fields{
			"task_id": s.taskID,
			"from":    current.Column,
			"to":      s.target,
		}).Debug("Move dispatched")
	}
	s.reset()
	return out
}

// Cancel abandons an armed or dragging gesture, for example on escape. It
// reports whether there was anything to cancel.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Armed && s.state != Dragging {
		return false
	}
	s.cancel(Outcome{})
	return true
}

func (s *Session) cancel(out Outcome) Outcome {
	s.transition(Cancelled)
	s.reset()
	out.State = Cancelled
	out.To = ""
	return out
}

func (s *Session) locate(at Point, geoms []Geometry) {
	s.target, s.hasTarget = s.hit.Target(at, geoms)
}

func (s *Session) reset() {
	s.taskID = 0
	s.source = ""
	s.origin = Point{}
	s.target = ""
	s.hasTarget = false
	s.transition(Idle)
}

func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	if s.observe != nil && from != to {
		s.observe(from, to)
	}
}
