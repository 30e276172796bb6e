package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/chepyr/go-task-planner/internal/models"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, project_id, title, description, completed, priority, status,
 due_date, completed_at, tags, subtasks, created_at, updated_at`

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	tags, subtasks, err := encodeTaskLists(task)
	if err != nil {
		return err
	}
	query := `INSERT INTO tasks (` + taskColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.ExecContext(ctx, query,
		task.ID, task.UserID, nullString(task.ProjectID), task.Title, nullString(task.Description),
		task.Completed, string(task.Priority), string(task.Status),
		nullTime(task.DueDate), nullTime(task.CompletedAt), tags, subtasks,
		task.CreatedAt.UTC(), task.UpdatedAt.UTC())
	return err
}

// GetByID returns the task only if it belongs to userID.
func (r *TaskRepository) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	return task, nil
}

// ListByUser returns the user's tasks ordered by due date, undated last.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + `
	 FROM tasks WHERE user_id = $1
	 ORDER BY CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date, created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	tags, subtasks, err := encodeTaskLists(task)
	if err != nil {
		return err
	}
	query := `UPDATE tasks SET project_id = $1, title = $2, description = $3, completed = $4,
	 priority = $5, status = $6, due_date = $7, completed_at = $8, tags = $9, subtasks = $10,
	 updated_at = $11
	 WHERE id = $12 AND user_id = $13`
	res, err := r.db.ExecContext(ctx, query,
		nullString(task.ProjectID), task.Title, nullString(task.Description), task.Completed,
		string(task.Priority), string(task.Status), nullTime(task.DueDate), nullTime(task.CompletedAt),
		tags, subtasks, task.UpdatedAt.UTC(), task.ID, task.UserID)
	if err != nil {
		return err
	}
	return checkAffected(res, "task", task.ID)
}

func (r *TaskRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return checkAffected(res, "task", id)
}

func encodeTaskLists(task *models.Task) (string, string, error) {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	subtasks := task.Subtasks
	if subtasks == nil {
		subtasks = []models.SubTask{}
	}
	tagsJSON, err := encodeJSON(tags)
	if err != nil {
		return "", "", fmt.Errorf("encode tags: %w", err)
	}
	subtasksJSON, err := encodeJSON(subtasks)
	if err != nil {
		return "", "", fmt.Errorf("encode subtasks: %w", err)
	}
	return tagsJSON, subtasksJSON, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		projectID, desc        sql.NullString
		priority, status       string
		dueDate, completedAt   sql.NullTime
		tagsJSON, subtasksJSON string
	)
	if err := row.Scan(
		&task.ID, &task.UserID, &projectID, &task.Title, &desc, &task.Completed,
		&priority, &status, &dueDate, &completedAt, &tagsJSON, &subtasksJSON,
		&task.CreatedAt, &task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.ProjectID = projectID.String
	task.Description = desc.String
	task.Priority = models.Priority(priority)
	task.Status = models.TaskStatus(status)
	task.DueDate = timePtr(dueDate)
	task.CompletedAt = timePtr(completedAt)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	if err := json.Unmarshal([]byte(tagsJSON), &task.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(subtasksJSON), &task.Subtasks); err != nil {
		return nil, fmt.Errorf("decode subtasks: %w", err)
	}
	return task, nil
}
