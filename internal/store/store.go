// Package store is the client-side task repository. It caches tasks and
// projects fetched from the API, applies optimistic completion toggles and
// keeps the single current error shown to the user.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrTitleRequired       = errors.New("Task title is required")
	ErrUnsupportedSnapshot = errors.New("unsupported snapshot version")
)

const DefaultErrorTTL = 5 * time.Second

// API is the remote side of the store.
type API interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, in models.TaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	CompleteTask(ctx context.Context, id string, completed bool) (models.Task, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

type Store struct {
	api      API
	log      *logrus.Logger
	now      func() time.Time
	errorTTL time.Duration

	mu       sync.Mutex
	tasks    []models.Task
	projects []models.Project
	filters  Filters
	view     ViewSettings
	selected []string
	loading  int
	toggles  map[string]*toggleState

	err      string
	errGen   uint64
	errTimer *time.Timer
}

type Option func(*Store)

func WithLogger(log *logrus.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithErrorTTL sets how long an error stays visible. Zero keeps errors
// until they are cleared or replaced.
func WithErrorTTL(ttl time.Duration) Option {
	return func(s *Store) { s.errorTTL = ttl }
}

func New(api API, opts ...Option) *Store {
	s := &Store{
		api:      api,
		log:      logrus.StandardLogger(),
		now:      time.Now,
		errorTTL: DefaultErrorTTL,
		view:     DefaultViewSettings(),
		toggles:  make(map[string]*toggleState),
		tasks:    []models.Task{},
		projects: []models.Project{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches tasks and projects concurrently. Either may finish first and
// a failure of one does not cancel the other.
func (s *Store) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.FetchTasks(ctx) })
	g.Go(func() error { return s.FetchProjects(ctx) })
	return g.Wait()
}

// FetchTasks replaces the local collection with the server's. Tasks with a
// completion toggle in flight keep their optimistic state.
func (s *Store) FetchTasks(ctx context.Context) error {
	s.begin()
	tasks, err := s.api.ListTasks(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.failLocked(err, "Failed to fetch tasks")
		return err
	}
	for i := range tasks {
		s.keepPendingLocked(&tasks[i])
	}
	s.tasks = tasks
	s.log.WithField("count", len(tasks)).Debug("tasks fetched")
	return nil
}

func (s *Store) FetchProjects(ctx context.Context) error {
	s.begin()
	projects, err := s.api.ListProjects(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.failLocked(err, "Failed to fetch projects")
		return err
	}
	s.projects = projects
	return nil
}

// AddTask validates and creates a task; the result is prepended locally.
func (s *Store) AddTask(ctx context.Context, in models.TaskInput) (models.Task, error) {
	s.begin()
	in.Title = strings.TrimSpace(in.Title)
	if p := strings.TrimSpace(in.ProjectID); p == "" || p == "none" {
		in.ProjectID = ""
	}
	if in.Title == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.loading--
		s.failLocked(ErrTitleRequired, "")
		return models.Task{}, ErrTitleRequired
	}

	task, err := s.api.CreateTask(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.failLocked(err, "Failed to add task")
		return models.Task{}, err
	}
	s.tasks = append([]models.Task{task}, s.tasks...)
	s.log.WithField("task_id", task.ID).Debug("task added")
	return task.Clone(), nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	s.begin()
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.loading--
		s.failLocked(ErrTitleRequired, "")
		return models.Task{}, ErrTitleRequired
	}
	if patch.ProjectID != nil && *patch.ProjectID == "none" {
		empty := ""
		patch.ProjectID = &empty
	}

	task, err := s.api.UpdateTask(ctx, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.failLocked(err, "Failed to update task")
		return models.Task{}, err
	}
	s.keepPendingLocked(&task)
	if i := s.indexLocked(id); i >= 0 {
		s.tasks[i] = task
	}
	return task.Clone(), nil
}

// DeleteTask removes the task locally and from the selection once the
// server confirms.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.begin()
	err := s.api.DeleteTask(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.failLocked(err, "Failed to delete task")
		return err
	}
	if i := s.indexLocked(id); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	}
	s.selected = without(s.selected, id)
	delete(s.toggles, id)
	return nil
}

func (s *Store) AddProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	s.begin()
	project, err := s.api.CreateProject(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.failLocked(err, "Failed to add project")
		return models.Project{}, err
	}
	s.projects = append([]models.Project{project}, s.projects...)
	return project, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	s.begin()
	project, err := s.api.UpdateProject(ctx, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.failLocked(err, "Failed to update project")
		return models.Project{}, err
	}
	for i := range s.projects {
		if s.projects[i].ID == id {
			s.projects[i] = project
		}
	}
	return project, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.begin()
	err := s.api.DeleteProject(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.failLocked(err, "Failed to delete project")
		return err
	}
	out := s.projects[:0]
	for _, p := range s.projects {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.projects = out
	return nil
}

// Tasks returns a copy of the whole collection in store order.
func (s *Store) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

func (s *Store) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Project(nil), s.projects...)
}

func (s *Store) Project(id string) (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Error returns the current error message, "" when there is none.
func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearErrorLocked()
}

// begin marks an operation in flight and clears the previous error.
func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.clearErrorLocked()
	s.mu.Unlock()
}

func (s *Store) clearErrorLocked() {
	s.err = ""
	s.errGen++
	if s.errTimer != nil {
		s.errTimer.Stop()
		s.errTimer = nil
	}
}

// failLocked records err as the current error. fallback is used when err
// carries no message.
func (s *Store) failLocked(err error, fallback string) {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	s.log.WithError(err).Warn("store operation failed")
	s.setErrorLocked(msg)
}

func (s *Store) setErrorLocked(msg string) {
	s.clearErrorLocked()
	s.err = msg
	if s.errorTTL <= 0 {
		return
	}
	gen := s.errGen
	s.errTimer = time.AfterFunc(s.errorTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.errGen == gen {
			s.err = ""
			s.errTimer = nil
		}
	})
}

func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
