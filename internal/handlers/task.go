package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chepyr/go-task-planner/internal/db"
	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
	maxBodyBytes      = 1 << 20 // 1MB
)

type subtaskInput struct {
	ID        string `json:"id"`
	MongoID   string `json:"_id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// GET /api/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.TaskRepo.ListByUser(ctx, userID)
	if err != nil {
		h.logger().WithError(err).WithField("user_id", userID).Error("list tasks")
		sendError(w, "Failed to list tasks", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, toTaskDocuments(tasks))
}

// POST /api/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var input struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Priority    string         `json:"priority"`
		Status      string         `json:"status"`
		DueDate     *time.Time     `json:"dueDate"`
		Project     string         `json:"project"`
		ProjectID   string         `json:"projectId"`
		Tags        []string       `json:"tags"`
		Subtasks    []subtaskInput `json:"subtasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	title, msg := validateTitle(input.Title)
	if msg != "" {
		sendError(w, msg, http.StatusBadRequest)
		return
	}
	desc, msg := validateDescription(input.Description)
	if msg != "" {
		sendError(w, msg, http.StatusBadRequest)
		return
	}
	priority, msg := parsePriority(input.Priority)
	if msg != "" {
		sendError(w, msg, http.StatusBadRequest)
		return
	}
	status := models.NormalizeStatus(input.Status)
	if status == "" {
		sendError(w, "Invalid status value", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	projectID := projectRef(input.Project, input.ProjectID)
	if !h.checkProject(ctx, w, userID, projectID) {
		return
	}

	now := h.now()
	task := &models.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: desc,
		Priority:    priority,
		Status:      status,
		DueDate:     utcPtr(input.DueDate),
		ProjectID:   projectID,
		Tags:        input.Tags,
		Subtasks:    buildSubtasks(input.Subtasks, nil, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == models.TaskStatusDone {
		task.SetCompleted(true, now)
	}
	if err := h.TaskRepo.Create(ctx, task); err != nil {
		h.logger().WithError(err).WithField("user_id", userID).Error("create task")
		sendError(w, "Failed to create task", http.StatusInternalServerError)
		return
	}

	h.broadcast(userID, eventTaskCreated, task)
	w.Header().Set("Location", "/api/tasks/"+task.ID)
	sendJSON(w, http.StatusCreated, toTaskDocument(task))
}

// GET /api/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, ok := h.loadTask(ctx, w, userID, mux.Vars(r)["id"])
	if !ok {
		return
	}
	sendJSON(w, http.StatusOK, toTaskDocument(task))
}

// PUT/PATCH /api/tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var input struct {
		Title       *string         `json:"title"`
		Description *string         `json:"description"`
		Priority    *string         `json:"priority"`
		Status      *string         `json:"status"`
		Completed   *bool           `json:"completed"`
		DueDate     *time.Time      `json:"dueDate"`
		Project     *string         `json:"project"`
		ProjectID   *string         `json:"projectId"`
		Tags        *[]string       `json:"tags"`
		Subtasks    *[]subtaskInput `json:"subtasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, ok := h.loadTask(ctx, w, userID, mux.Vars(r)["id"])
	if !ok {
		return
	}
	now := h.now()

	if input.Title != nil {
		title, msg := validateTitle(*input.Title)
		if msg != "" {
			sendError(w, msg, http.StatusBadRequest)
			return
		}
		task.Title = title
	}
	if input.Description != nil {
		desc, msg := validateDescription(*input.Description)
		if msg != "" {
			sendError(w, msg, http.StatusBadRequest)
			return
		}
		task.Description = desc
	}
	if input.Priority != nil {
		priority, msg := parsePriority(*input.Priority)
		if msg != "" {
			sendError(w, msg, http.StatusBadRequest)
			return
		}
		task.Priority = priority
	}
	if input.DueDate != nil {
		task.DueDate = utcPtr(input.DueDate)
	}
	if input.Project != nil || input.ProjectID != nil {
		var project, projectID string
		if input.Project != nil {
			project = *input.Project
		}
		if input.ProjectID != nil {
			projectID = *input.ProjectID
		}
		ref := projectRef(project, projectID)
		if !h.checkProject(ctx, w, userID, ref) {
			return
		}
		task.ProjectID = ref
	}
	if input.Tags != nil {
		task.Tags = *input.Tags
	}
	if input.Subtasks != nil {
		task.Subtasks = buildSubtasks(*input.Subtasks, task.Subtasks, now)
	}
	if input.Status != nil {
		status := models.NormalizeStatus(*input.Status)
		if status == "" {
			sendError(w, "Invalid status value", http.StatusBadRequest)
			return
		}
		task.Status = status
		if input.Completed == nil {
			// keep the completion flag in step with an explicit status change
			switch {
			case status == models.TaskStatusDone && !task.Completed:
				task.SetCompleted(true, now)
			case status != models.TaskStatusDone && task.Completed:
				task.SetCompleted(false, now)
			}
		}
	}
	if input.Completed != nil {
		task.SetCompleted(*input.Completed, now)
	}
	task.UpdatedAt = now

	if err := h.TaskRepo.Update(ctx, task); err != nil {
		h.writeRepoError(w, err, "Task not found", "Failed to update task")
		return
	}
	h.broadcast(userID, eventTaskUpdated, task)
	sendJSON(w, http.StatusOK, toTaskDocument(task))
}

// POST /api/tasks/{id}/complete
//
// The optional body {"completed": bool} selects the target state; an empty
// body marks the task completed.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	input := struct {
		Completed *bool `json:"completed"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	completed := input.Completed == nil || *input.Completed

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, ok := h.loadTask(ctx, w, userID, mux.Vars(r)["id"])
	if !ok {
		return
	}
	now := h.now()
	task.SetCompleted(completed, now)
	task.UpdatedAt = now

	if err := h.TaskRepo.Update(ctx, task); err != nil {
		h.writeRepoError(w, err, "Task not found", "Failed to complete task")
		return
	}
	h.broadcast(userID, eventTaskCompleted, task)
	sendJSON(w, http.StatusOK, toTaskDocument(task))
}

// DELETE /api/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := mux.Vars(r)["id"]
	if err := h.TaskRepo.Delete(ctx, userID, id); err != nil {
		h.writeRepoError(w, err, "Task not found", "Failed to delete task")
		return
	}
	h.broadcast(userID, eventTaskDeleted, &models.Task{ID: id, UserID: userID})
	sendJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

func (h *Handler) loadTask(ctx context.Context, w http.ResponseWriter, userID, id string) (*models.Task, bool) {
	task, err := h.TaskRepo.GetByID(ctx, userID, id)
	if err != nil {
		h.writeRepoError(w, err, "Task not found", "Failed to load task")
		return nil, false
	}
	return task, true
}

// checkProject verifies that a referenced project exists and is owned by
// the user. An empty reference is always accepted.
func (h *Handler) checkProject(ctx context.Context, w http.ResponseWriter, userID, projectID string) bool {
	if projectID == "" || h.ProjectRepo == nil {
		return true
	}
	if _, err := h.ProjectRepo.GetByID(ctx, userID, projectID); err != nil {
		h.writeRepoError(w, err, "Project not found", "Failed to load project")
		return false
	}
	return true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, notFoundMsg, failMsg string) {
	if errors.Is(err, db.ErrNotFound) {
		sendError(w, notFoundMsg, http.StatusNotFound)
		return
	}
	h.logger().WithError(err).Error(failMsg)
	sendError(w, failMsg, http.StatusInternalServerError)
}

func validateTitle(s string) (string, string) {
	title := strings.TrimSpace(s)
	if title == "" {
		return "", "Task title is required"
	}
	if len(title) > maxTitleLen {
		return "", "title too long (max 200 chars)"
	}
	return title, ""
}

func validateDescription(s string) (string, string) {
	desc := strings.TrimSpace(s)
	if len(desc) > maxDescriptionLen {
		return "", "description too long (max 1000 chars)"
	}
	return desc, ""
}

func parsePriority(s string) (models.Priority, string) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return models.PriorityMedium, ""
	}
	p := models.Priority(s)
	if !p.Valid() {
		return "", "Invalid priority value"
	}
	return p, ""
}

// projectRef accepts either field name; "none" means no project.
func projectRef(project, projectID string) string {
	ref := strings.TrimSpace(project)
	if ref == "" {
		ref = strings.TrimSpace(projectID)
	}
	if ref == "none" {
		return ""
	}
	return ref
}

// buildSubtasks assigns ids to new subtasks and keeps the creation time of
// ones that already exist.
func buildSubtasks(in []subtaskInput, existing []models.SubTask, now time.Time) []models.SubTask {
	created := make(map[string]time.Time, len(existing))
	for _, s := range existing {
		created[s.ID] = s.CreatedAt
	}
	out := make([]models.SubTask, 0, len(in))
	for _, s := range in {
		id := s.ID
		if id == "" {
			id = s.MongoID
		}
		if id == "" {
			id = uuid.NewString()
		}
		at, ok := created[id]
		if !ok {
			at = now
		}
		out = append(out, models.SubTask{
			ID: id, Title: strings.TrimSpace(s.Title), Completed: s.Completed, CreatedAt: at,
		})
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
