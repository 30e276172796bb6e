package db

import (
	"context"
	"database/sql"

	"github.com/chepyr/go-task-planner/internal/models"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, owner_id, name, description, color, created_at, updated_at`

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	query := `INSERT INTO projects (` + projectColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(
		ctx, query, p.ID, p.OwnerID, p.Name, nullString(p.Description), p.Color,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return err
}

// GetByID returns the project only if it belongs to ownerID.
func (r *ProjectRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND owner_id = $2`
	p, err := scanProject(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	return p, nil
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + `
	 FROM projects WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	query := `UPDATE projects SET name = $1, description = $2, color = $3, updated_at = $4
	 WHERE id = $5 AND owner_id = $6`
	res, err := r.db.ExecContext(ctx, query,
		p.Name, nullString(p.Description), p.Color, p.UpdatedAt.UTC(), p.ID, p.OwnerID)
	if err != nil {
		return err
	}
	return checkAffected(res, "project", p.ID)
}

func (r *ProjectRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	return checkAffected(res, "project", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var desc sql.NullString
	if err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &desc, &p.Color, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Description = desc.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
