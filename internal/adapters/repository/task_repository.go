package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/database"
	"github.com/taskmaster/wbs/internal/ports"
)

const taskColumns = `t.id, t.project_id, t.parent_id, t.code, t.name, t.description, t.level,
	t.level_type, t.sort_order, t.start_date, t.end_date, t.estimated_hours, t.actual_hours,
	t.status, t.progress_percentage, t.priority, t.completed_at, t.is_deleted, t.sync_version,
	t.created_at, t.updated_at`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	dialect database.Dialect
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(dialect database.Dialect) ports.TaskRepository {
	return &TaskRepositoryImpl{dialect: dialect}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, q sqlx.ExtContext, task *entities.Task) error {
	query := q.Rebind(`
		INSERT INTO wbs_tasks (project_id, parent_id, code, name, description, level, level_type,
			sort_order, start_date, end_date, estimated_hours, actual_hours, status,
			progress_percentage, priority, is_deleted, sync_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?, ?)
		RETURNING id`)

	err := q.QueryRowxContext(ctx, query,
		task.ProjectID, task.ParentID, task.Code, task.Name, task.Description, task.Level,
		task.LevelType, task.SortOrder, task.StartDate, task.EndDate, task.EstimatedHours,
		task.ActualHours, task.Status, task.ProgressPercentage, task.Priority,
		task.SyncVersion, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return entities.ErrOrdinalConflict
		}
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetInProject(ctx context.Context, q sqlx.ExtContext, projectID, id int64) (*entities.Task, error) {
	query := q.Rebind(`
		SELECT ` + taskColumns + `
		FROM wbs_tasks t
		WHERE t.id = ? AND t.project_id = ? AND t.is_deleted = FALSE`)

	var task entities.Task
	if err := sqlx.GetContext(ctx, q, &task, query, id, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) GetOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64) (*entities.Task, error) {
	return r.getOwned(ctx, q, ownerID, id, "")
}

func (r *TaskRepositoryImpl) LockOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64) (*entities.Task, error) {
	return r.getOwned(ctx, q, ownerID, id, r.dialect.ForUpdate("t"))
}

func (r *TaskRepositoryImpl) getOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64, lock string) (*entities.Task, error) {
	query := q.Rebind(`
		SELECT ` + taskColumns + `
		FROM wbs_tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = ? AND p.owner_id = ? AND t.is_deleted = FALSE AND p.is_deleted = FALSE` + lock)

	var task entities.Task
	if err := sqlx.GetContext(ctx, q, &task, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Lock(ctx context.Context, q sqlx.ExtContext, id int64) error {
	query := q.Rebind(`SELECT id FROM wbs_tasks WHERE id = ?` + r.dialect.ForUpdate(""))

	var locked int64
	if err := q.QueryRowxContext(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrNotFound
		}
		return fmt.Errorf("lock task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, q sqlx.ExtContext, task *entities.Task) error {
	query := q.Rebind(`
		UPDATE wbs_tasks
		SET name = ?, description = ?, level_type = ?, start_date = ?, end_date = ?,
			estimated_hours = ?, status = ?, progress_percentage = ?, priority = ?,
			completed_at = ?, updated_at = ?, sync_version = sync_version + 1
		WHERE id = ? AND is_deleted = FALSE
		RETURNING sync_version`)

	err := q.QueryRowxContext(ctx, query,
		task.Name, task.Description, task.LevelType, task.StartDate, task.EndDate,
		task.EstimatedHours, task.Status, task.ProgressPercentage, task.Priority,
		task.CompletedAt, task.UpdatedAt, task.ID,
	).Scan(&task.SyncVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrNotFoundOrForbidden
		}
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) SoftDelete(ctx context.Context, q sqlx.ExtContext, id int64, now time.Time) error {
	query := q.Rebind(`
		UPDATE wbs_tasks
		SET is_deleted = TRUE, updated_at = ?, sync_version = sync_version + 1
		WHERE id = ? AND is_deleted = FALSE`)

	result, err := q.ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if rows == 0 {
		return entities.ErrNotFoundOrForbidden
	}

	return nil
}

func (r *TaskRepositoryImpl) MaxSortOrder(ctx context.Context, q sqlx.ExtContext, projectID int64, parentID *int64) (int, error) {
	// Deleted siblings count: an ordinal is never handed out twice.
	query := q.Rebind(`
		SELECT COALESCE(MAX(sort_order), 0)
		FROM wbs_tasks
		WHERE project_id = ? AND COALESCE(parent_id, 0) = ?`)

	var parent int64
	if parentID != nil {
		parent = *parentID
	}

	var maxOrder int
	if err := q.QueryRowxContext(ctx, query, projectID, parent).Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("max sort order: %w", err)
	}

	return maxOrder, nil
}

func (r *TaskRepositoryImpl) CountLiveChildren(ctx context.Context, q sqlx.ExtContext, id int64) (int, error) {
	query := q.Rebind(`SELECT COUNT(*) FROM wbs_tasks WHERE parent_id = ? AND is_deleted = FALSE`)

	var count int
	if err := q.QueryRowxContext(ctx, query, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("count child tasks: %w", err)
	}

	return count, nil
}

func (r *TaskRepositoryImpl) ListByProject(ctx context.Context, q sqlx.ExtContext, projectID int64) ([]entities.Task, error) {
	query := q.Rebind(`
		SELECT ` + taskColumns + `
		FROM wbs_tasks t
		WHERE t.project_id = ? AND t.is_deleted = FALSE
		ORDER BY t.level ASC, t.sort_order ASC`)

	tasks := []entities.Task{}
	if err := sqlx.SelectContext(ctx, q, &tasks, query, projectID); err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}

	return tasks, nil
}

type statusAggregate struct {
	Status         entities.TaskStatus `db:"status"`
	Count          int                 `db:"task_count"`
	ProgressSum    float64             `db:"progress_sum"`
	EstimatedHours float64             `db:"estimated_hours"`
	ActualHours    float64             `db:"actual_hours"`
}

func (r *TaskRepositoryImpl) Stats(ctx context.Context, q sqlx.ExtContext, projectID int64) (*ports.TaskStats, error) {
	query := q.Rebind(`
		SELECT status,
			COUNT(*) AS task_count,
			COALESCE(SUM(progress_percentage), 0) AS progress_sum,
			COALESCE(SUM(estimated_hours), 0) AS estimated_hours,
			COALESCE(SUM(actual_hours), 0) AS actual_hours
		FROM wbs_tasks
		WHERE project_id = ? AND is_deleted = FALSE
		GROUP BY status`)

	var rows []statusAggregate
	if err := sqlx.SelectContext(ctx, q, &rows, query, projectID); err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}

	stats := &ports.TaskStats{ByStatus: map[entities.TaskStatus]int{}}
	var progress float64
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalTasks += row.Count
		progress += row.ProgressSum
		stats.TotalEstimatedHours += row.EstimatedHours
		stats.TotalActualHours += row.ActualHours
	}
	stats.CompletedTasks = stats.ByStatus[entities.TaskStatusCompleted]
	stats.InProgressTasks = stats.ByStatus[entities.TaskStatusInProgress]
	stats.NotStartedTasks = stats.ByStatus[entities.TaskStatusNotStarted]
	if stats.TotalTasks > 0 {
		stats.AvgProgress = int(math.Round(progress / float64(stats.TotalTasks)))
	}

	return stats, nil
}

func (r *TaskRepositoryImpl) AddActualHours(ctx context.Context, q sqlx.ExtContext, id int64, hours float64, now time.Time) error {
	query := q.Rebind(`
		UPDATE wbs_tasks
		SET actual_hours = actual_hours + ?, updated_at = ?, sync_version = sync_version + 1
		WHERE id = ?`)

	if _, err := q.ExecContext(ctx, query, hours, now, id); err != nil {
		return fmt.Errorf("add actual hours: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) RecomputeActualHours(ctx context.Context, q sqlx.ExtContext, id int64, now time.Time) (float64, error) {
	sumQuery := q.Rebind(`
		SELECT COALESCE(SUM(duration_seconds), 0)
		FROM time_entries
		WHERE task_id = ? AND is_deleted = FALSE AND duration_seconds IS NOT NULL`)

	var seconds int64
	if err := q.QueryRowxContext(ctx, sumQuery, id).Scan(&seconds); err != nil {
		return 0, fmt.Errorf("sum entry durations: %w", err)
	}

	hours := float64(seconds) / 3600
	updateQuery := q.Rebind(`
		UPDATE wbs_tasks
		SET actual_hours = ?, updated_at = ?, sync_version = sync_version + 1
		WHERE id = ?`)

	if _, err := q.ExecContext(ctx, updateQuery, hours, now, id); err != nil {
		return 0, fmt.Errorf("recompute actual hours: %w", err)
	}

	return hours, nil
}
