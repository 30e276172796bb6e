package handlers

import (
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
)

// Persistence documents as they go over the wire. They use "_id" and
// "project"; clients normalize them to "id" and "projectId".

type subtaskDocument struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

type taskDocument struct {
	ID          string            `json:"_id"`
	User        string            `json:"user"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Completed   bool              `json:"completed"`
	Priority    models.Priority   `json:"priority"`
	Status      models.TaskStatus `json:"status"`
	DueDate     *time.Time        `json:"dueDate,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Project     string            `json:"project,omitempty"`
	Tags        []string          `json:"tags"`
	Subtasks    []subtaskDocument `json:"subtasks"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type projectDocument struct {
	ID          string    `json:"_id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTaskDocument(t *models.Task) taskDocument {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	subtasks := make([]subtaskDocument, 0, len(t.Subtasks))
	for _, s := range t.Subtasks {
		subtasks = append(subtasks, subtaskDocument{
			ID: s.ID, Title: s.Title, Completed: s.Completed, CreatedAt: s.CreatedAt,
		})
	}
	return taskDocument{
		ID:          t.ID,
		User:        t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		Project:     t.ProjectID,
		Tags:        tags,
		Subtasks:    subtasks,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskDocuments(tasks []models.Task) []taskDocument {
	docs := make([]taskDocument, 0, len(tasks))
	for i := range tasks {
		docs = append(docs, toTaskDocument(&tasks[i]))
	}
	return docs
}

func toProjectDocument(p *models.Project) projectDocument {
	return projectDocument{
		ID:          p.ID,
		Owner:       p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Color:       p.Color,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
