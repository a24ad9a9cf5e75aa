package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/database"
	"github.com/taskmaster/wbs/internal/ports"
)

const projectColumns = `id, owner_id, name, description, color, is_deleted, created_at, updated_at`

// ProjectRepositoryImpl implements the ProjectRepository interface
type ProjectRepositoryImpl struct {
	dialect database.Dialect
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(dialect database.Dialect) ports.ProjectRepository {
	return &ProjectRepositoryImpl{dialect: dialect}
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, q sqlx.ExtContext, project *entities.Project) error {
	query := q.Rebind(`
		INSERT INTO projects (owner_id, name, description, color, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, FALSE, ?, ?)
		RETURNING id`)

	err := q.QueryRowxContext(ctx, query,
		project.OwnerID, project.Name, project.Description, project.Color,
		project.CreatedAt, project.UpdatedAt,
	).Scan(&project.ID)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

func (r *ProjectRepositoryImpl) GetOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64) (*entities.Project, error) {
	return r.getOwned(ctx, q, ownerID, id, "")
}

func (r *ProjectRepositoryImpl) LockOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64) (*entities.Project, error) {
	return r.getOwned(ctx, q, ownerID, id, r.dialect.ForUpdate(""))
}

func (r *ProjectRepositoryImpl) getOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64, lock string) (*entities.Project, error) {
	query := q.Rebind(`
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id = ? AND owner_id = ? AND is_deleted = FALSE` + lock)

	var project entities.Project
	if err := sqlx.GetContext(ctx, q, &project, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return &project, nil
}

func (r *ProjectRepositoryImpl) ListByOwner(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID) ([]*entities.Project, error) {
	query := q.Rebind(`
		SELECT ` + projectColumns + `
		FROM projects
		WHERE owner_id = ? AND is_deleted = FALSE
		ORDER BY updated_at DESC, id DESC`)

	projects := []*entities.Project{}
	if err := sqlx.SelectContext(ctx, q, &projects, query, ownerID); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepositoryImpl) SoftDelete(ctx context.Context, q sqlx.ExtContext, id int64, now time.Time) error {
	query := q.Rebind(`UPDATE projects SET is_deleted = TRUE, updated_at = ? WHERE id = ? AND is_deleted = FALSE`)

	result, err := q.ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if rows == 0 {
		return entities.ErrNotFoundOrForbidden
	}

	return nil
}
