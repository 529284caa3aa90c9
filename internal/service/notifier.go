// internal/service/notifier.go
package service

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gurkanbulca/taskboard/pkg/events"
)

// Notifier receives mutation outcome events. Presenting them is up to the caller.
type Notifier interface {
	Notify(e events.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(e events.Event)

func (f NotifierFunc) Notify(e events.Event) { f(e) }

// LogNotifier writes mutation events to a logger.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a notifier that logs every event
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(e events.Event) {
	entry := l.logger.WithFields(logrus.Fields{
		"event":       e.Type,
		"operation":   e.Operation,
		"task_id":     e.TaskID,
		"mutation_id": e.MutationID.String(),
	})
	if e.Type == events.EventTypeMutationFailed {
		entry.WithField("reason", e.Reason).Warn(e.Message)
		return
	}
	entry.Info(e.Message)
}

// Fanout delivers each event to several notifiers in order.
type Fanout []Notifier

func (f Fanout) Notify(e events.Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(e)
		}
	}
}

// Recorder keeps every event it receives. It is handy in tests and for
// callers that poll for banners.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Notify(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

type discardNotifier struct{}

func (discardNotifier) Notify(events.Event) {}
