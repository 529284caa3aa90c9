// internal/remote/memory/memory.go

// Package memory is an in-process TaskService. It backs tests, the CLI's offline
// mode and the development stand-in server; nothing outlives the process.
package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
)

// Service keeps tasks in creation order.
type Service struct {
	mu     sync.Mutex
	tasks  []models.Task
	nextID int64
	now    func() time.Time
}

// New creates an empty service.
func New() *Service {
	return &Service{
		nextID: 1,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return models.Task{}, remote.NotFound(id)
	}
	return s.tasks[i], nil
}

func (s *Service) Create(ctx context.Context, draft models.Draft) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, err
	}
	if err := validateDraft(draft); err != nil {
		return models.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	t := draft.Task()
	t.ID = s.nextID
	t.CreatedAt = &now
	t.UpdatedAt = &now
	s.nextID++
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch models.Patch) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return models.Task{}, &remote.ValidationError{Message: "title is required"}
	}
	if patch.Column != nil && !patch.Column.IsValid() {
		return models.Task{}, &remote.ValidationError{Message: fmt.Sprintf("unknown column %q", *patch.Column)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return models.Task{}, remote.NotFound(id)
	}
	now := s.now().UTC()
	t := patch.Apply(s.tasks[i])
	t.UpdatedAt = &now
	s.tasks[i] = t
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return remote.NotFound(id)
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	return nil
}

type seedFile struct {
	Tasks []struct {
		ID          int64  `yaml:"id"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Column      string `yaml:"column"`
	} `yaml:"tasks"`
}

// LoadSeed adds the tasks listed in a YAML document of the form
//
//	tasks:
//	  - title: Design homepage
//	    description: Include hero section
//	    column: backlog
//
// Entries without an id get the next free one.
func (s *Service) LoadSeed(r io.Reader) error {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return fmt.Errorf("decode seed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for i, entry := range seed.Tasks {
		col := models.ColumnBacklog
		if entry.Column != "" {
			parsed, err := models.ParseColumn(entry.Column)
			if err != nil {
				return fmt.Errorf("seed task %d: %w", i, err)
			}
			col = parsed
		}
		if strings.TrimSpace(entry.Title) == "" {
			return fmt.Errorf("seed task %d: title is required", i)
		}
		id := entry.ID
		if id <= 0 {
			id = s.nextID
		}
		if s.find(id) >= 0 {
			return fmt.Errorf("seed task %d: duplicate id %d", i, id)
		}
		if id >= s.nextID {
			s.nextID = id + 1
		}
		s.tasks = append(s.tasks, models.Task{
			ID:          id,
			Title:       entry.Title,
			Description: entry.Description,
			Column:      col,
			CreatedAt:   &now,
			UpdatedAt:   &now,
		})
	}
	return nil
}

func (s *Service) find(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func validateDraft(d models.Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return &remote.ValidationError{Message: "title is required"}
	}
	if !d.Column.IsValid() {
		return &remote.ValidationError{Message: fmt.Sprintf("unknown column %q", d.Column)}
	}
	return nil
}

var _ remote.TaskService = (*Service)(nil)
