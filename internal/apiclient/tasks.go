package apiclient

import (
	"context"
	"net/http"

	"github.com/chepyr/go-task-planner/internal/models"
)

func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var docs []taskDocument
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &docs); err != nil {
		return nil, err
	}
	return normalizeTasks(docs), nil
}

func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	var doc taskDocument
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &doc); err != nil {
		return models.Task{}, err
	}
	return doc.normalize(), nil
}

func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (models.Task, error) {
	var doc taskDocument
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &doc); err != nil {
		return models.Task{}, err
	}
	return doc.normalize(), nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	var doc taskDocument
	if err := c.do(ctx, http.MethodPut, taskPath(id), patch, &doc); err != nil {
		return models.Task{}, err
	}
	return doc.normalize(), nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// CompleteTask asks the server to set the completion state of a task.
func (c *Client) CompleteTask(ctx context.Context, id string, completed bool) (models.Task, error) {
	var doc taskDocument
	body := map[string]bool{"completed": completed}
	if err := c.do(ctx, http.MethodPost, taskPath(id)+"/complete", body, &doc); err != nil {
		return models.Task{}, err
	}
	return doc.normalize(), nil
}

func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var docs []projectDocument
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &docs); err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(docs))
	for _, d := range docs {
		projects = append(projects, d.normalize())
	}
	return projects, nil
}

func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	var doc projectDocument
	if err := c.do(ctx, http.MethodPost, "/projects", in, &doc); err != nil {
		return models.Project{}, err
	}
	return doc.normalize(), nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	var doc projectDocument
	if err := c.do(ctx, http.MethodPut, projectPath(id), patch, &doc); err != nil {
		return models.Project{}, err
	}
	return doc.normalize(), nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, projectPath(id), nil, nil)
}
