package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/google/uuid"
)

func newTask(user string, due *time.Time) *models.Task {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Task{
		ID:          uuid.NewString(),
		UserID:      user,
		Title:       "Task 1",
		Description: "Task description",
		Priority:    models.PriorityMedium,
		Status:      models.TaskStatusToDo,
		DueDate:     due,
		Tags:        []string{"home"},
		Subtasks:    []models.SubTask{{ID: "s1", Title: "step", CreatedAt: now}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestTaskRepository_Create_Get_Update_Delete(t *testing.T) {
	dbx := setupTestDB(t)
	repo := NewTaskRepository(dbx)
	ctx := context.Background()

	user := uuid.NewString()
	due := time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)
	task := newTask(user, &due)
	task.ProjectID = uuid.NewString()

	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create task: %v", err)
	}

	got, err := repo.GetByID(ctx, user, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != task.Title || got.ProjectID != task.ProjectID || got.Priority != task.Priority {
		t.Errorf("GetByID returned incorrect data: got %+v, want %+v", got, task)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due date: got %v, want %v", got.DueDate, due)
	}
	if got.CompletedAt != nil {
		t.Errorf("expected nil CompletedAt, got %v", got.CompletedAt)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "home" || len(got.Subtasks) != 1 || got.Subtasks[0].Title != "step" {
		t.Errorf("lists not round-tripped: tags=%v subtasks=%v", got.Tags, got.Subtasks)
	}

	completedAt := time.Now().UTC().Truncate(time.Second)
	got.SetCompleted(true, completedAt)
	got.UpdatedAt = completedAt
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, err := repo.GetByID(ctx, user, task.ID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if !updated.Completed || updated.Status != models.TaskStatusDone || updated.CompletedAt == nil {
		t.Errorf("Update did not persist completion: %+v", updated)
	}

	if err := repo.Delete(ctx, user, task.ID); err != nil {
		t.Fatalf("Delete task: %v", err)
	}
	if _, err := repo.GetByID(ctx, user, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestTaskRepository_ScopedToUser(t *testing.T) {
	dbx := setupTestDB(t)
	repo := NewTaskRepository(dbx)
	ctx := context.Background()

	owner := uuid.NewString()
	task := newTask(owner, nil)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stranger := uuid.NewString()
	if _, err := repo.GetByID(ctx, stranger, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID by stranger: expected ErrNotFound, got %v", err)
	}
	task.UserID = stranger
	if err := repo.Update(ctx, task); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update by stranger: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, stranger, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete by stranger: expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_ListByUser_OrdersByDueDate(t *testing.T) {
	dbx := setupTestDB(t)
	repo := NewTaskRepository(dbx)
	ctx := context.Background()

	user := uuid.NewString()
	late := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	undated := newTask(user, nil)
	undated.Title = "undated"
	lateTask := newTask(user, &late)
	lateTask.Title = "late"
	earlyTask := newTask(user, &early)
	earlyTask.Title = "early"

	for _, task := range []*models.Task{undated, lateTask, earlyTask, newTask(uuid.NewString(), nil)} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tasks, err := repo.ListByUser(ctx, user)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	want := []string{"early", "late", "undated"}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(tasks))
	}
	for i, title := range want {
		if tasks[i].Title != title {
			t.Errorf("position %d: got %q, want %q", i, tasks[i].Title, title)
		}
	}
}
