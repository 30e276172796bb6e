package models

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the buckets in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Rank orders priorities for sorting: high > medium > low > unknown.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// NormalizeStatus converts various user inputs to standard status values.
// Returns "" for unknown input.
func NormalizeStatus(s string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "todo", "to_do", "to-do":
		return TaskStatusToDo
	case "in-progress", "in_progress", "inprogress", "in progress":
		return TaskStatusInProgress
	case "done":
		return TaskStatusDone
	case "cancelled", "canceled":
		return TaskStatusCancelled
	default:
		return ""
	}
}

type SubTask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is the client-facing task record. Persistence documents use "_id"
// and "project" instead of "id" and "projectId".
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
	Tags        []string   `json:"tags"`
	Subtasks    []SubTask  `json:"subtasks"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SetCompleted flips the completion flag and keeps CompletedAt consistent
// with it: CompletedAt is non-nil only while Completed is true.
func (t *Task) SetCompleted(completed bool, at time.Time) {
	t.Completed = completed
	if !completed {
		t.CompletedAt = nil
		if t.Status == TaskStatusDone {
			t.Status = TaskStatusToDo
		}
		return
	}
	if t.CompletedAt == nil {
		ts := at
		t.CompletedAt = &ts
	}
	t.Status = TaskStatusDone
}

// IsOverdue reports whether an open task's due date is before now.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// Clone returns a deep copy so callers can't alias store internals.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.Subtasks != nil {
		c.Subtasks = append([]SubTask(nil), t.Subtasks...)
	}
	return c
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Subtasks    []SubTask  `json:"subtasks,omitempty"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	ProjectID   *string     `json:"projectId,omitempty"`
	Tags        *[]string   `json:"tags,omitempty"`
	Subtasks    *[]SubTask  `json:"subtasks,omitempty"`
}
