package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// GET /api/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	projects, err := h.ProjectRepo.ListByOwner(ctx, userID)
	if err != nil {
		h.logger().WithError(err).WithField("user_id", userID).Error("list projects")
		sendError(w, "Failed to list projects", http.StatusInternalServerError)
		return
	}
	docs := make([]projectDocument, 0, len(projects))
	for _, p := range projects {
		docs = append(docs, toProjectDocument(p))
	}
	sendJSON(w, http.StatusOK, docs)
}

// POST /api/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var input models.ProjectInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > 100 {
		sendError(w, "Name is required and must be <= 100 characters", http.StatusBadRequest)
		return
	}
	if len(input.Description) > 500 {
		sendError(w, "Description must be <= 500 characters", http.StatusBadRequest)
		return
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = models.DefaultProjectColor
	} else if !colorRegex.MatchString(color) {
		sendError(w, "Color must be a #RRGGBB value", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now := h.now()
	project := &models.Project{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Color:       color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.ProjectRepo.Create(ctx, project); err != nil {
		h.logger().WithError(err).WithField("user_id", userID).Error("create project")
		sendError(w, "Failed to create project", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", "/api/projects/"+project.ID)
	sendJSON(w, http.StatusCreated, toProjectDocument(project))
}

// GET /api/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	project, err := h.ProjectRepo.GetByID(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeRepoError(w, err, "Project not found", "Failed to load project")
		return
	}
	sendJSON(w, http.StatusOK, toProjectDocument(project))
}

// PUT /api/projects/{id}
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var input models.ProjectPatch
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	project, err := h.ProjectRepo.GetByID(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeRepoError(w, err, "Project not found or not owner", "Failed to load project")
		return
	}

	updated := *project
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > 100 {
			sendError(w, "Name is required and must be <= 100 characters", http.StatusBadRequest)
			return
		}
		updated.Name = name
	}
	if input.Description != nil {
		if len(*input.Description) > 500 {
			sendError(w, "Description must be <= 500 characters", http.StatusBadRequest)
			return
		}
		updated.Description = strings.TrimSpace(*input.Description)
	}
	if input.Color != nil {
		if !colorRegex.MatchString(*input.Color) {
			sendError(w, "Color must be a #RRGGBB value", http.StatusBadRequest)
			return
		}
		updated.Color = *input.Color
	}
	updated.UpdatedAt = h.now()

	if err := h.ProjectRepo.Update(ctx, &updated); err != nil {
		h.writeRepoError(w, err, "Project not found or not owner", "Failed to update project")
		return
	}
	sendJSON(w, http.StatusOK, toProjectDocument(&updated))
}

// DELETE /api/projects/{id}
//
// Tasks keep their project reference; clients treat unknown projects as
// "no project".
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.ProjectRepo.Delete(ctx, userID, mux.Vars(r)["id"]); err != nil {
		h.writeRepoError(w, err, "Project not found or not owner", "Failed to delete project")
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}
