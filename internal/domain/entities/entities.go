package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFoundOrForbidden = errors.New("not found or forbidden")
	ErrNotFound            = errors.New("not found")
	ErrDepthExceeded       = errors.New("task depth limit exceeded")
	ErrHasChildren         = errors.New("task has child tasks")
	ErrInvalidRange        = errors.New("end time must be after start time")
	ErrTimerAlreadyActive  = errors.New("a timer is already active")
	ErrOrdinalConflict     = errors.New("sibling ordinal conflict")
)

// MaxTaskLevel is the deepest level a WBS task may live at.
const MaxTaskLevel = 3

// Enums and types
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusPaused     TaskStatus = "paused"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// LevelType is descriptive planning granularity; nothing enforces it against Level.
type LevelType string

const (
	LevelTypeYearly     LevelType = "yearly"
	LevelTypeHalfYearly LevelType = "half_yearly"
	LevelTypeQuarterly  LevelType = "quarterly"
	LevelTypeMonthly    LevelType = "monthly"
	LevelTypeWeekly     LevelType = "weekly"
	LevelTypeDaily      LevelType = "daily"
)

// Project represents a project owned by a single user
type Project struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     uuid.UUID `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	Color       string    `json:"color" db:"color"`
	IsDeleted   bool      `json:"-" db:"is_deleted"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Task represents a WBS task
type Task struct {
	ID                 int64      `json:"id" db:"id"`
	ProjectID          int64      `json:"project_id" db:"project_id"`
	ParentID           *int64     `json:"parent_id" db:"parent_id"`
	Code               string     `json:"code" db:"code"`
	Name               string     `json:"name" db:"name"`
	Description        *string    `json:"description" db:"description"`
	Level              int        `json:"level" db:"level"`
	LevelType          *LevelType `json:"level_type" db:"level_type"`
	SortOrder          int        `json:"sort_order" db:"sort_order"`
	StartDate          *time.Time `json:"start_date" db:"start_date"`
	EndDate            *time.Time `json:"end_date" db:"end_date"`
	EstimatedHours     *float64   `json:"estimated_hours" db:"estimated_hours"`
	ActualHours        float64    `json:"actual_hours" db:"actual_hours"`
	Status             TaskStatus `json:"status" db:"status"`
	ProgressPercentage int        `json:"progress_percentage" db:"progress_percentage"`
	Priority           Priority   `json:"priority" db:"priority"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
	IsDeleted          bool       `json:"-" db:"is_deleted"`
	SyncVersion        int        `json:"sync_version" db:"sync_version"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// TaskNode is a task with its children attached, as produced by the tree builder
type TaskNode struct {
	Task
	Children []*TaskNode `json:"children"`
	// Orphan marks a node whose parent was not part of the input and was promoted to a root.
	Orphan bool `json:"orphan,omitempty"`
}

// TaskRef is how a time entry sees its task. Archived refs point at soft-deleted tasks
// whose history is still reported.
type TaskRef struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Archived  bool   `json:"archived"`
}

// TimeEntry represents a time tracking entry
type TimeEntry struct {
	ID              int64      `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	TaskID          int64      `json:"task_id" db:"task_id"`
	Description     *string    `json:"description" db:"description"`
	StartTime       time.Time  `json:"start_time" db:"start_time"`
	EndTime         *time.Time `json:"end_time" db:"end_time"`
	DurationSeconds *int64     `json:"duration_seconds" db:"duration_seconds"`
	IsManual        bool       `json:"is_manual" db:"is_manual"`
	LogDate         string     `json:"log_date" db:"log_date"`
	IsDeleted       bool       `json:"-" db:"is_deleted"`
	SyncVersion     int        `json:"sync_version" db:"sync_version"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	Task            *TaskRef   `json:"task,omitempty" db:"-"`
}

// TaskPatch carries a partial task update; nil fields are left untouched.
type TaskPatch struct {
	Name               *string
	Description        *string
	LevelType          *LevelType
	StartDate          *time.Time
	EndDate            *time.Time
	EstimatedHours     *float64
	Status             *TaskStatus
	ProgressPercentage *int
	Priority           *Priority
}

// TimeEntryPatch carries a partial time entry update; nil fields are left untouched.
type TimeEntryPatch struct {
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
}

// Business logic methods for Task
func (t *Task) IsRoot() bool {
	return t.ParentID == nil
}

// CanHaveChildren reports whether a child task may be created under t.
func (t *Task) CanHaveChildren() bool {
	return t.Level < MaxTaskLevel
}

// ChildLevel returns the level a new child of parent gets; nil parent means a root.
func ChildLevel(parent *Task) int {
	if parent == nil {
		return 1
	}
	return parent.Level + 1
}

// Apply copies the present patch fields onto t and reports whether anything was set.
// Completing a task without an explicit progress forces progress to 100 and stamps
// CompletedAt with now.
func (p TaskPatch) Apply(t *Task, now time.Time) bool {
	changed := false
	if p.Name != nil {
		t.Name = *p.Name
		changed = true
	}
	if p.Description != nil {
		t.Description = p.Description
		changed = true
	}
	if p.LevelType != nil {
		t.LevelType = p.LevelType
		changed = true
	}
	if p.StartDate != nil {
		t.StartDate = p.StartDate
		changed = true
	}
	if p.EndDate != nil {
		t.EndDate = p.EndDate
		changed = true
	}
	if p.EstimatedHours != nil {
		t.EstimatedHours = p.EstimatedHours
		changed = true
	}
	if p.Status != nil {
		t.Status = *p.Status
		changed = true
		if *p.Status == TaskStatusCompleted {
			completedAt := now
			t.CompletedAt = &completedAt
			if p.ProgressPercentage == nil {
				t.ProgressPercentage = 100
			}
		}
	}
	if p.ProgressPercentage != nil {
		t.ProgressPercentage = *p.ProgressPercentage
		changed = true
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
		changed = true
	}
	return changed
}

// IsEmpty reports whether the patch carries no fields.
func (p TaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.LevelType == nil &&
		p.StartDate == nil && p.EndDate == nil && p.EstimatedHours == nil &&
		p.Status == nil && p.ProgressPercentage == nil && p.Priority == nil
}

// Business logic methods for TimeEntry
func (te *TimeEntry) IsActive() bool {
	return te.EndTime == nil
}

// Hours returns the recorded duration in hours, zero while the timer runs.
func (te *TimeEntry) Hours() float64 {
	if te.DurationSeconds == nil {
		return 0
	}
	return float64(*te.DurationSeconds) / 3600
}

// Recompute derives LogDate and DurationSeconds from the current start/end pair.
func (te *TimeEntry) Recompute() error {
	te.LogDate = LogDateOf(te.StartTime)
	if te.EndTime == nil {
		te.DurationSeconds = nil
		return nil
	}
	d, err := DurationSeconds(te.StartTime, *te.EndTime)
	if err != nil {
		return err
	}
	te.DurationSeconds = &d
	return nil
}

// Apply copies the present patch fields onto te and re-derives its computed fields.
func (p TimeEntryPatch) Apply(te *TimeEntry) (bool, error) {
	changed := false
	if p.Description != nil {
		te.Description = p.Description
		changed = true
	}
	if p.StartTime != nil {
		te.StartTime = p.StartTime.UTC()
		changed = true
	}
	if p.EndTime != nil {
		end := p.EndTime.UTC()
		te.EndTime = &end
		changed = true
	}
	if err := te.Recompute(); err != nil {
		return changed, err
	}
	return changed, nil
}

// DurationSeconds returns whole seconds between start and end, failing unless end > start.
func DurationSeconds(start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, ErrInvalidRange
	}
	return int64(end.Sub(start) / time.Second), nil
}

// LogDateOf is the UTC calendar day a time entry is filed under.
func LogDateOf(start time.Time) string {
	return start.UTC().Format("2006-01-02")
}

// Utility methods
func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusCompleted, TaskStatusPaused, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

func (lt LevelType) IsValid() bool {
	switch lt {
	case LevelTypeYearly, LevelTypeHalfYearly, LevelTypeQuarterly, LevelTypeMonthly, LevelTypeWeekly, LevelTypeDaily:
		return true
	default:
		return false
	}
}
