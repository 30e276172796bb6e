package apiclient

import (
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
)

// Wire documents accept both the persistence ("_id", "project") and the
// normalized ("id", "projectId") spellings.

type subtaskDocument struct {
	MongoID   string    `json:"_id"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

type taskDocument struct {
	MongoID     string            `json:"_id"`
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Completed   bool              `json:"completed"`
	Priority    models.Priority   `json:"priority"`
	Status      models.TaskStatus `json:"status"`
	DueDate     *time.Time        `json:"dueDate"`
	CompletedAt *time.Time        `json:"completedAt"`
	Project     string            `json:"project"`
	ProjectID   string            `json:"projectId"`
	Tags        []string          `json:"tags"`
	Subtasks    []subtaskDocument `json:"subtasks"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type projectDocument struct {
	MongoID     string    `json:"_id"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type userDocument struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalize converts a wire document into a client task. Missing lists
// become empty slices and missing enums get their defaults.
func (d taskDocument) normalize() models.Task {
	t := models.Task{
		ID:          firstNonEmpty(d.MongoID, d.ID),
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		Priority:    d.Priority,
		Status:      models.NormalizeStatus(string(d.Status)),
		DueDate:     d.DueDate,
		CompletedAt: d.CompletedAt,
		ProjectID:   firstNonEmpty(d.Project, d.ProjectID),
		Tags:        d.Tags,
		Subtasks:    make([]models.SubTask, 0, len(d.Subtasks)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if !t.Priority.Valid() {
		t.Priority = models.PriorityMedium
	}
	if t.Status == "" {
		t.Status = models.TaskStatusToDo
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if !t.Completed {
		t.CompletedAt = nil
	}
	for _, s := range d.Subtasks {
		t.Subtasks = append(t.Subtasks, models.SubTask{
			ID:        firstNonEmpty(s.MongoID, s.ID),
			Title:     s.Title,
			Completed: s.Completed,
			CreatedAt: s.CreatedAt,
		})
	}
	return t
}

func normalizeTasks(docs []taskDocument) []models.Task {
	tasks := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.normalize())
	}
	return tasks
}

func (d projectDocument) normalize() models.Project {
	p := models.Project{
		ID:          firstNonEmpty(d.MongoID, d.ID),
		Name:        d.Name,
		Description: d.Description,
		Color:       d.Color,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if p.Color == "" {
		p.Color = models.DefaultProjectColor
	}
	return p
}

func (d userDocument) normalize() models.User {
	return models.User{ID: firstNonEmpty(d.MongoID, d.ID), Name: d.Name, Email: d.Email}
}
