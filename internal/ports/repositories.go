package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/wbs/internal/domain/entities"
)

// Store is the database handle services run against. Mutations go through
// WithTransaction; Reader serves plain reads.
type Store interface {
	WithTransaction(ctx context.Context, fn func(*sqlx.Tx) error) error
	Reader() sqlx.ExtContext
}

// Repositories take the queryer explicitly so a service decides which calls share a
// transaction. Pass a *sqlx.Tx for mutations and the *sqlx.DB for plain reads.

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, project *entities.Project) error
	// GetOwned returns a live project owned by ownerID, or ErrNotFoundOrForbidden.
	GetOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64) (*entities.Project, error)
	// LockOwned is GetOwned holding a row lock until the transaction ends.
	LockOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64) (*entities.Project, error)
	ListByOwner(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID) ([]*entities.Project, error)
	SoftDelete(ctx context.Context, q sqlx.ExtContext, id int64, now time.Time) error
}

// TaskRepository defines the interface for WBS task data operations
type TaskRepository interface {
	// Create inserts task and fills its ID. A sibling ordinal or code collision
	// returns ErrOrdinalConflict.
	Create(ctx context.Context, q sqlx.ExtContext, task *entities.Task) error
	// GetInProject returns a live task of projectID, or ErrNotFound.
	GetInProject(ctx context.Context, q sqlx.ExtContext, projectID, id int64) (*entities.Task, error)
	// GetOwned returns a live task in a live project owned by ownerID, or ErrNotFoundOrForbidden.
	GetOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64) (*entities.Task, error)
	// LockOwned is GetOwned holding a row lock on the task until the transaction ends.
	LockOwned(ctx context.Context, q sqlx.ExtContext, ownerID uuid.UUID, id int64) (*entities.Task, error)
	// Lock takes the task row lock regardless of deletion state.
	Lock(ctx context.Context, q sqlx.ExtContext, id int64) error
	Update(ctx context.Context, q sqlx.ExtContext, task *entities.Task) error
	SoftDelete(ctx context.Context, q sqlx.ExtContext, id int64, now time.Time) error
	// MaxSortOrder returns the highest ordinal among the siblings under parentID,
	// deleted siblings included, or 0.
	MaxSortOrder(ctx context.Context, q sqlx.ExtContext, projectID int64, parentID *int64) (int, error)
	CountLiveChildren(ctx context.Context, q sqlx.ExtContext, id int64) (int, error)
	// ListByProject returns live tasks ordered by (level, sort_order).
	ListByProject(ctx context.Context, q sqlx.ExtContext, projectID int64) ([]entities.Task, error)
	Stats(ctx context.Context, q sqlx.ExtContext, projectID int64) (*TaskStats, error)
	AddActualHours(ctx context.Context, q sqlx.ExtContext, id int64, hours float64, now time.Time) error
	// RecomputeActualHours rewrites actual_hours from the task's live entries and
	// returns the new value.
	RecomputeActualHours(ctx context.Context, q sqlx.ExtContext, id int64, now time.Time) (float64, error)
}

// TimeEntryRepository defines the interface for time entry data operations
type TimeEntryRepository interface {
	// Create inserts entry and fills its ID. A second open timer for the same user
	// returns ErrTimerAlreadyActive.
	Create(ctx context.Context, q sqlx.ExtContext, entry *entities.TimeEntry) error
	// GetOwned returns a live entry of userID, or ErrNotFoundOrForbidden.
	GetOwned(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, id int64) (*entities.TimeEntry, error)
	Update(ctx context.Context, q sqlx.ExtContext, entry *entities.TimeEntry) error
	SoftDelete(ctx context.Context, q sqlx.ExtContext, id int64, now time.Time) error
	// GetActive returns the user's open timer, or nil when none runs.
	GetActive(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID) (*entities.TimeEntry, error)
	List(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, filter TimeEntryFilter) ([]*entities.TimeEntry, error)
	Stats(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, filter TimeEntryFilter) (*TimeStats, error)
	DailyStats(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, filter TimeEntryFilter) ([]DailyTimeStats, error)
}

// TimeEntryFilter narrows time entry reads. Dates are inclusive "YYYY-MM-DD" log dates.
type TimeEntryFilter struct {
	TaskID    *int64  `validate:"omitempty,gt=0"`
	ProjectID *int64  `validate:"omitempty,gt=0"`
	StartDate *string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `validate:"omitempty,datetime=2006-01-02"`
	Limit     int     `validate:"omitempty,min=1,max=500"`
	Offset    int     `validate:"omitempty,min=0"`
}

// TaskStats aggregates a project's live tasks
type TaskStats struct {
	TotalTasks          int                         `json:"total_tasks"`
	ByStatus            map[entities.TaskStatus]int `json:"by_status"`
	CompletedTasks      int                         `json:"completed_tasks"`
	InProgressTasks     int                         `json:"in_progress_tasks"`
	NotStartedTasks     int                         `json:"not_started_tasks"`
	AvgProgress         int                         `json:"avg_progress"`
	TotalEstimatedHours float64                     `json:"total_estimated_hours"`
	TotalActualHours    float64                     `json:"total_actual_hours"`
}

// TimeStats aggregates a user's finished entries
type TimeStats struct {
	TotalEntries    int     `json:"total_entries"`
	TotalSeconds    int64   `json:"total_seconds"`
	TotalHours      float64 `json:"total_hours"`
	AvgSessionHours float64 `json:"avg_session_hours"`
	DaysWithEntries int     `json:"days_with_entries"`
}

// DailyTimeStats is one log date's worth of finished entries
type DailyTimeStats struct {
	Date         string  `json:"date" db:"date"`
	TotalSeconds int64   `json:"total_seconds" db:"total_seconds"`
	TotalHours   float64 `json:"total_hours" db:"-"`
	EntryCount   int     `json:"entry_count" db:"entry_count"`
}
