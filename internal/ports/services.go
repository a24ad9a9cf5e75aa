package ports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/wbs/internal/domain/entities"
)

// ProjectService interface for project operations
type ProjectService interface {
	CreateProject(ctx context.Context, ownerID uuid.UUID, req CreateProjectRequest) (*entities.Project, error)
	GetProject(ctx context.Context, ownerID uuid.UUID, id int64) (*entities.Project, error)
	ListProjects(ctx context.Context, ownerID uuid.UUID) ([]*entities.Project, error)
	DeleteProject(ctx context.Context, ownerID uuid.UUID, id int64) error
}

// TaskService interface for the WBS task hierarchy
type TaskService interface {
	CreateTask(ctx context.Context, ownerID uuid.UUID, req CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, ownerID uuid.UUID, taskID int64, patch entities.TaskPatch) (*entities.Task, error)
	DeleteTask(ctx context.Context, ownerID uuid.UUID, taskID int64) error
	ListProjectTasks(ctx context.Context, ownerID uuid.UUID, projectID int64) ([]entities.Task, error)
	GetTaskTree(ctx context.Context, ownerID uuid.UUID, projectID int64) ([]*entities.TaskNode, error)
	GetStats(ctx context.Context, ownerID uuid.UUID, projectID int64) (*TaskStats, error)
}

// TimeService interface for the time ledger
type TimeService interface {
	CreateEntry(ctx context.Context, userID uuid.UUID, req CreateTimeEntryRequest) (*entities.TimeEntry, error)
	UpdateEntry(ctx context.Context, userID uuid.UUID, entryID int64, patch entities.TimeEntryPatch) (*entities.TimeEntry, error)
	DeleteEntry(ctx context.Context, userID uuid.UUID, entryID int64) error
	StartTimer(ctx context.Context, userID uuid.UUID, taskID int64, description *string) (*entities.TimeEntry, error)
	StopTimer(ctx context.Context, userID uuid.UUID, entryID int64) (*entities.TimeEntry, error)
	GetActiveTimer(ctx context.Context, userID uuid.UUID) (*entities.TimeEntry, error)
	ListEntries(ctx context.Context, userID uuid.UUID, filter TimeEntryFilter) ([]*entities.TimeEntry, error)
	GetStats(ctx context.Context, userID uuid.UUID, filter TimeEntryFilter) (*TimeStats, error)
	GetDailyStats(ctx context.Context, userID uuid.UUID, filter TimeEntryFilter) ([]DailyTimeStats, error)
}

// Request types. Shape rules live in the validate tags; the services assume
// requests already passed them.

// Project related types
type CreateProjectRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
}

// Normalize trims free-text fields in place
func (r *CreateProjectRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = trimPtr(r.Description)
}

// Task related types
type CreateTaskRequest struct {
	ProjectID      int64               `json:"project_id" validate:"required,gt=0"`
	ParentID       *int64              `json:"parent_id" validate:"omitempty,gt=0"`
	Name           string              `json:"name" validate:"required,min=1,max=255"`
	Description    *string             `json:"description" validate:"omitempty,max=1000"`
	LevelType      *entities.LevelType `json:"level_type" validate:"omitempty,oneof=yearly half_yearly quarterly monthly weekly daily"`
	StartDate      *time.Time          `json:"start_date"`
	EndDate        *time.Time          `json:"end_date"`
	EstimatedHours *float64            `json:"estimated_hours" validate:"omitempty,min=0,max=9999"`
	Priority       *entities.Priority  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// Normalize trims free-text fields in place
func (r *CreateTaskRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = trimPtr(r.Description)
}

type UpdateTaskRequest struct {
	Name               *string              `json:"name" validate:"omitempty,min=1,max=255"`
	Description        *string              `json:"description" validate:"omitempty,max=1000"`
	LevelType          *entities.LevelType  `json:"level_type" validate:"omitempty,oneof=yearly half_yearly quarterly monthly weekly daily"`
	StartDate          *time.Time           `json:"start_date"`
	EndDate            *time.Time           `json:"end_date"`
	EstimatedHours     *float64             `json:"estimated_hours" validate:"omitempty,min=0,max=9999"`
	Status             *entities.TaskStatus `json:"status" validate:"omitempty,oneof=not_started in_progress completed paused cancelled"`
	ProgressPercentage *int                 `json:"progress_percentage" validate:"omitempty,min=0,max=100"`
	Priority           *entities.Priority   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// Normalize trims free-text fields in place
func (r *UpdateTaskRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	r.Description = trimPtr(r.Description)
}

// ToPatch converts the request to a domain patch
func (r UpdateTaskRequest) ToPatch() entities.TaskPatch {
	return entities.TaskPatch{
		Name:               r.Name,
		Description:        r.Description,
		LevelType:          r.LevelType,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		EstimatedHours:     r.EstimatedHours,
		Status:             r.Status,
		ProgressPercentage: r.ProgressPercentage,
		Priority:           r.Priority,
	}
}

// Time entry related types
type CreateTimeEntryRequest struct {
	TaskID      int64      `json:"task_id" validate:"required,gt=0"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	StartTime   time.Time  `json:"start_time" validate:"required"`
	EndTime     *time.Time `json:"end_time"`
	IsManual    *bool      `json:"is_manual"`
}

// Normalize trims free-text fields in place
func (r *CreateTimeEntryRequest) Normalize() {
	r.Description = trimPtr(r.Description)
}

type UpdateTimeEntryRequest struct {
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

// Normalize trims free-text fields in place
func (r *UpdateTimeEntryRequest) Normalize() {
	r.Description = trimPtr(r.Description)
}

// ToPatch converts the request to a domain patch
func (r UpdateTimeEntryRequest) ToPatch() entities.TimeEntryPatch {
	return entities.TimeEntryPatch{
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}

type StartTimerRequest struct {
	TaskID      int64   `json:"task_id" validate:"required,gt=0"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// Normalize trims free-text fields in place
func (r *StartTimerRequest) Normalize() {
	r.Description = trimPtr(r.Description)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
