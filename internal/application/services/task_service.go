package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/domain/wbs"
	"github.com/taskmaster/wbs/internal/infrastructure/logger"
	"github.com/taskmaster/wbs/internal/infrastructure/metrics"
	"github.com/taskmaster/wbs/internal/ports"
)

// TaskService owns the WBS task hierarchy. Every mutation runs in one transaction;
// lock order is project row, then task row.
type TaskService struct {
	store       ports.Store
	taskRepo    ports.TaskRepository
	projectRepo ports.ProjectRepository
	logger      *logger.Logger
	now         func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(store ports.Store, taskRepo ports.TaskRepository, projectRepo ports.ProjectRepository, logger *logger.Logger) *TaskService {
	return &TaskService{
		store:       store,
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the service clock
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// CreateTask creates a task at the next free sibling ordinal under its parent.
// A lost race for the ordinal is retried once with a fresh one.
func (s *TaskService) CreateTask(ctx context.Context, ownerID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	task, err := s.createTask(ctx, ownerID, req)
	if errors.Is(err, entities.ErrOrdinalConflict) {
		metrics.OrdinalRetries.Inc()
		s.logger.Warnw("Sibling ordinal taken, retrying task creation",
			"project_id", req.ProjectID,
			"parent_id", req.ParentID,
		)
		task, err = s.createTask(ctx, ownerID, req)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	metrics.TasksCreated.WithLabelValues(strconv.Itoa(task.Level)).Inc()
	s.logger.LogUserAction(ownerID.String(), "task_created", map[string]interface{}{
		"task_id":    task.ID,
		"project_id": task.ProjectID,
		"code":       task.Code,
		"level":      task.Level,
	})

	return task, nil
}

func (s *TaskService) createTask(ctx context.Context, ownerID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	var created *entities.Task

	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.projectRepo.LockOwned(ctx, tx, ownerID, req.ProjectID); err != nil {
			return err
		}

		var parent *entities.Task
		if req.ParentID != nil {
			// Held until commit so the parent cannot be deleted under the new child.
			if err := s.taskRepo.Lock(ctx, tx, *req.ParentID); err != nil {
				return err
			}
			p, err := s.taskRepo.GetInProject(ctx, tx, req.ProjectID, *req.ParentID)
			if err != nil {
				return err
			}
			if !p.CanHaveChildren() {
				return entities.ErrDepthExceeded
			}
			parent = p
		}

		maxOrder, err := s.taskRepo.MaxSortOrder(ctx, tx, req.ProjectID, req.ParentID)
		if err != nil {
			return err
		}
		ordinal := maxOrder + 1

		var parentCode *string
		if parent != nil {
			parentCode = &parent.Code
		}

		now := s.now().UTC()
		task := &entities.Task{
			ProjectID:      req.ProjectID,
			ParentID:       req.ParentID,
			Code:           wbs.GenerateCode(parentCode, ordinal),
			Name:           req.Name,
			Description:    req.Description,
			Level:          entities.ChildLevel(parent),
			LevelType:      req.LevelType,
			SortOrder:      ordinal,
			StartDate:      utcPtr(req.StartDate),
			EndDate:        utcPtr(req.EndDate),
			EstimatedHours: req.EstimatedHours,
			Status:         entities.TaskStatusNotStarted,
			Priority:       entities.PriorityMedium,
			SyncVersion:    1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if req.Priority != nil {
			task.Priority = *req.Priority
		}

		if err := s.taskRepo.Create(ctx, tx, task); err != nil {
			return err
		}

		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateTask applies the fields present in patch. An empty patch returns the
// current row without bumping its version.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID uuid.UUID, taskID int64, patch entities.TaskPatch) (*entities.Task, error) {
	var updated *entities.Task
	changed := false

	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		task, err := s.taskRepo.LockOwned(ctx, tx, ownerID, taskID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if !patch.Apply(task, now) {
			updated = task
			return nil
		}
		task.UpdatedAt = now

		if err := s.taskRepo.Update(ctx, tx, task); err != nil {
			return err
		}

		updated = task
		changed = true
		return nil
	})
	metrics.TaskMutations.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if changed {
		s.logger.LogUserAction(ownerID.String(), "task_updated", map[string]interface{}{
			"task_id":      updated.ID,
			"status":       updated.Status,
			"progress":     updated.ProgressPercentage,
			"sync_version": updated.SyncVersion,
		})
	}

	return updated, nil
}

// DeleteTask soft-deletes a leaf task. Its time entries stay as history.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID uuid.UUID, taskID int64) error {
	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.taskRepo.LockOwned(ctx, tx, ownerID, taskID); err != nil {
			return err
		}

		children, err := s.taskRepo.CountLiveChildren(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if children > 0 {
			return entities.ErrHasChildren
		}

		return s.taskRepo.SoftDelete(ctx, tx, taskID, s.now().UTC())
	})
	metrics.TaskMutations.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.LogUserAction(ownerID.String(), "task_deleted", map[string]interface{}{
		"task_id": taskID,
	})

	return nil
}

// ListProjectTasks returns the project's live tasks ordered by level, then ordinal
func (s *TaskService) ListProjectTasks(ctx context.Context, ownerID uuid.UUID, projectID int64) ([]entities.Task, error) {
	reader := s.store.Reader()
	if _, err := s.projectRepo.GetOwned(ctx, reader, ownerID, projectID); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks, err := s.taskRepo.ListByProject(ctx, reader, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// GetTaskTree returns the project's live tasks nested under their parents
func (s *TaskService) GetTaskTree(ctx context.Context, ownerID uuid.UUID, projectID int64) ([]*entities.TaskNode, error) {
	tasks, err := s.ListProjectTasks(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}

	roots := wbs.BuildTree(tasks)
	if orphans := wbs.CountOrphans(roots); orphans > 0 {
		s.logger.Warnw("Task tree has orphaned nodes promoted to roots",
			"project_id", projectID,
			"orphans", orphans,
		)
	}

	return roots, nil
}

// GetStats aggregates the project's live tasks
func (s *TaskService) GetStats(ctx context.Context, ownerID uuid.UUID, projectID int64) (*ports.TaskStats, error) {
	reader := s.store.Reader()
	if _, err := s.projectRepo.GetOwned(ctx, reader, ownerID, projectID); err != nil {
		return nil, fmt.Errorf("failed to get task stats: %w", err)
	}

	stats, err := s.taskRepo.Stats(ctx, reader, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task stats: %w", err)
	}

	return stats, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
