package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/sirupsen/logrus"
)

var errServer = errors.New("Internal server error")

// completeCall is a CompleteTask request parked until the test replies.
type completeCall struct {
	id        string
	completed bool
	reply     chan completeResult
}

type completeResult struct {
	task models.Task
	err  error
}

type fakeAPI struct {
	mu       sync.Mutex
	tasks    []models.Task
	projects []models.Project
	err      error
	calls    int
	now      time.Time

	// When set, CompleteTask blocks and hands the call to the test.
	parked chan completeCall
}

func newFakeAPI(tasks ...models.Task) *fakeAPI {
	return &fakeAPI{tasks: tasks, now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeAPI) fail() error {
	f.calls++
	return f.err
}

func (f *fakeAPI) ListTasks(context.Context) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return cloneTasks(f.tasks), nil
}

func (f *fakeAPI) CreateTask(_ context.Context, in models.TaskInput) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return models.Task{}, err
	}
	t := models.Task{
		ID:        "new-" + in.Title,
		Title:     in.Title,
		Priority:  models.PriorityMedium,
		Status:    models.TaskStatusToDo,
		ProjectID: in.ProjectID,
		Tags:      []string{},
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return models.Task{}, err
	}
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		if patch.Title != nil {
			f.tasks[i].Title = *patch.Title
		}
		if patch.Priority != nil {
			f.tasks[i].Priority = *patch.Priority
		}
		if patch.ProjectID != nil {
			f.tasks[i].ProjectID = *patch.ProjectID
		}
		return f.tasks[i].Clone(), nil
	}
	return models.Task{}, errors.New("Task not found")
}

func (f *fakeAPI) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail()
}

func (f *fakeAPI) CompleteTask(ctx context.Context, id string, completed bool) (models.Task, error) {
	f.mu.Lock()
	parked := f.parked
	f.mu.Unlock()
	if parked != nil {
		call := completeCall{id: id, completed: completed, reply: make(chan completeResult, 1)}
		parked <- call
		select {
		case res := <-call.reply:
			return res.task, res.err
		case <-ctx.Done():
			return models.Task{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return models.Task{}, err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].SetCompleted(completed, f.now)
			return f.tasks[i].Clone(), nil
		}
	}
	return models.Task{}, errors.New("Task not found")
}

func (f *fakeAPI) ListProjects(context.Context) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return nil, err
	}
	return append([]models.Project(nil), f.projects...), nil
}

func (f *fakeAPI) CreateProject(_ context.Context, in models.ProjectInput) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return models.Project{}, err
	}
	p := models.Project{ID: "p-" + in.Name, Name: in.Name, Color: models.DefaultProjectColor}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeAPI) UpdateProject(_ context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return models.Project{}, err
	}
	for i := range f.projects {
		if f.projects[i].ID == id {
			if patch.Name != nil {
				f.projects[i].Name = *patch.Name
			}
			if patch.Color != nil {
				f.projects[i].Color = *patch.Color
			}
			return f.projects[i], nil
		}
	}
	return models.Project{}, errors.New("Project not found or not owner")
}

func (f *fakeAPI) DeleteProject(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail()
}

func (f *fakeAPI) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestStore(api API) *Store {
	return New(api,
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }),
		WithErrorTTL(0),
	)
}

func task(id string, completed bool) models.Task {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	t := models.Task{
		ID:        id,
		Title:     "Task " + id,
		Priority:  models.PriorityMedium,
		Status:    models.TaskStatusToDo,
		Tags:      []string{},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if completed {
		t.SetCompleted(true, created.Add(time.Hour))
	}
	return t
}
