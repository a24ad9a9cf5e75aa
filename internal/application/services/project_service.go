package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/logger"
	"github.com/taskmaster/wbs/internal/ports"
)

// DefaultProjectColor is used when a project is created without a color
const DefaultProjectColor = "#1976d2"

// ProjectService handles project operations
type ProjectService struct {
	store       ports.Store
	projectRepo ports.ProjectRepository
	logger      *logger.Logger
	now         func() time.Time
}

// NewProjectService creates a new project service
func NewProjectService(store ports.Store, projectRepo ports.ProjectRepository, logger *logger.Logger) *ProjectService {
	return &ProjectService{
		store:       store,
		projectRepo: projectRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the service clock
func (s *ProjectService) WithClock(now func() time.Time) *ProjectService {
	s.now = now
	return s
}

// CreateProject creates a project owned by ownerID
func (s *ProjectService) CreateProject(ctx context.Context, ownerID uuid.UUID, req ports.CreateProjectRequest) (*entities.Project, error) {
	now := s.now().UTC()
	project := &entities.Project{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Color:       DefaultProjectColor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Color != nil {
		project.Color = *req.Color
	}

	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return s.projectRepo.Create(ctx, tx, project)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.LogUserAction(ownerID.String(), "project_created", map[string]interface{}{
		"project_id": project.ID,
		"name":       project.Name,
	})

	return project, nil
}

// GetProject returns one of the owner's projects
func (s *ProjectService) GetProject(ctx context.Context, ownerID uuid.UUID, id int64) (*entities.Project, error) {
	project, err := s.projectRepo.GetOwned(ctx, s.store.Reader(), ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// ListProjects returns the owner's projects, most recently updated first
func (s *ProjectService) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]*entities.Project, error) {
	projects, err := s.projectRepo.ListByOwner(ctx, s.store.Reader(), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// DeleteProject soft-deletes a project; its tasks become unreachable with it
func (s *ProjectService) DeleteProject(ctx context.Context, ownerID uuid.UUID, id int64) error {
	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.projectRepo.LockOwned(ctx, tx, ownerID, id); err != nil {
			return err
		}
		return s.projectRepo.SoftDelete(ctx, tx, id, s.now().UTC())
	})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.LogUserAction(ownerID.String(), "project_deleted", map[string]interface{}{
		"project_id": id,
	})

	return nil
}
