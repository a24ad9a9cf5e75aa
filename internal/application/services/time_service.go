package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/logger"
	"github.com/taskmaster/wbs/internal/infrastructure/metrics"
	"github.com/taskmaster/wbs/internal/ports"
)

// TimeService owns the time ledger and keeps each task's actual_hours in step with
// its entries. Entry mutations lock the owning task row first, so hours updates for
// one task are serialised.
type TimeService struct {
	store     ports.Store
	entryRepo ports.TimeEntryRepository
	taskRepo  ports.TaskRepository
	logger    *logger.Logger
	now       func() time.Time
}

// NewTimeService creates a new time service
func NewTimeService(store ports.Store, entryRepo ports.TimeEntryRepository, taskRepo ports.TaskRepository, logger *logger.Logger) *TimeService {
	return &TimeService{
		store:     store,
		entryRepo: entryRepo,
		taskRepo:  taskRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the service clock
func (s *TimeService) WithClock(now func() time.Time) *TimeService {
	s.now = now
	return s
}

type newEntry struct {
	taskID      int64
	description *string
	start       time.Time
	end         *time.Time
	manual      bool
}

// CreateEntry records a time entry. Entries are manual unless the request says otherwise.
func (s *TimeService) CreateEntry(ctx context.Context, userID uuid.UUID, req ports.CreateTimeEntryRequest) (*entities.TimeEntry, error) {
	in := newEntry{
		taskID:      req.TaskID,
		description: req.Description,
		start:       req.StartTime,
		end:         req.EndTime,
		manual:      true,
	}
	if req.IsManual != nil {
		in.manual = *req.IsManual
	}

	var created *entities.TimeEntry
	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		entry, err := s.insertEntry(ctx, tx, userID, in)
		created = entry
		return err
	})
	s.observe("create", err)
	if err != nil {
		return nil, fmt.Errorf("failed to create time entry: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "time_entry_created", map[string]interface{}{
		"entry_id":         created.ID,
		"task_id":          created.TaskID,
		"duration_seconds": created.DurationSeconds,
		"is_manual":        created.IsManual,
	})

	return created, nil
}

// insertEntry writes a new entry inside tx and credits finished durations to the task.
func (s *TimeService) insertEntry(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, in newEntry) (*entities.TimeEntry, error) {
	task, err := s.taskRepo.LockOwned(ctx, tx, userID, in.taskID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &entities.TimeEntry{
		UserID:      userID,
		TaskID:      task.ID,
		Description: in.description,
		StartTime:   in.start.UTC(),
		EndTime:     utcPtr(in.end),
		IsManual:    in.manual,
		SyncVersion: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := entry.Recompute(); err != nil {
		return nil, err
	}

	if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	if entry.DurationSeconds != nil {
		if err := s.taskRepo.AddActualHours(ctx, tx, task.ID, entry.Hours(), now); err != nil {
			return nil, err
		}
	}

	entry.Task = &entities.TaskRef{
		ID:        task.ID,
		ProjectID: task.ProjectID,
		Name:      task.Name,
		Code:      task.Code,
	}
	return entry, nil
}

// UpdateEntry applies the fields present in patch and rewrites the task's hours
// from scratch once the entry has a duration.
func (s *TimeService) UpdateEntry(ctx context.Context, userID uuid.UUID, entryID int64, patch entities.TimeEntryPatch) (*entities.TimeEntry, error) {
	entry, err := s.updateEntry(ctx, userID, entryID, patch)
	s.observe("update", err)
	if err != nil {
		return nil, fmt.Errorf("failed to update time entry: %w", err)
	}
	return entry, nil
}

func (s *TimeService) updateEntry(ctx context.Context, userID uuid.UUID, entryID int64, patch entities.TimeEntryPatch) (*entities.TimeEntry, error) {
	var updated *entities.TimeEntry
	changed := false

	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		entry, err := s.lockEntry(ctx, tx, userID, entryID)
		if err != nil {
			return err
		}

		ok, err := patch.Apply(entry)
		if err != nil {
			return err
		}
		if !ok {
			updated = entry
			return nil
		}

		now := s.now().UTC()
		entry.UpdatedAt = now
		if err := s.entryRepo.Update(ctx, tx, entry); err != nil {
			return err
		}

		if entry.DurationSeconds != nil {
			if err := s.recomputeHours(ctx, tx, entry.TaskID, now); err != nil {
				return err
			}
		}

		updated = entry
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.LogUserAction(userID.String(), "time_entry_updated", map[string]interface{}{
			"entry_id":         updated.ID,
			"task_id":          updated.TaskID,
			"duration_seconds": updated.DurationSeconds,
			"sync_version":     updated.SyncVersion,
		})
	}

	return updated, nil
}

// DeleteEntry soft-deletes an entry and rewrites the task's hours from scratch
func (s *TimeService) DeleteEntry(ctx context.Context, userID uuid.UUID, entryID int64) error {
	var taskID int64

	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		entry, err := s.lockEntry(ctx, tx, userID, entryID)
		if err != nil {
			return err
		}
		taskID = entry.TaskID

		now := s.now().UTC()
		if err := s.entryRepo.SoftDelete(ctx, tx, entry.ID, now); err != nil {
			return err
		}

		return s.recomputeHours(ctx, tx, entry.TaskID, now)
	})
	s.observe("delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "time_entry_deleted", map[string]interface{}{
		"entry_id": entryID,
		"task_id":  taskID,
	})

	return nil
}

// StartTimer opens a timer on taskID starting now. A user runs at most one timer.
func (s *TimeService) StartTimer(ctx context.Context, userID uuid.UUID, taskID int64, description *string) (*entities.TimeEntry, error) {
	var created *entities.TimeEntry

	err := s.store.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		active, err := s.entryRepo.GetActive(ctx, tx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			return entities.ErrTimerAlreadyActive
		}

		// The active-timer index still rejects a concurrent start that passed the check.
		entry, err := s.insertEntry(ctx, tx, userID, newEntry{
			taskID:      taskID,
			description: description,
			start:       s.now(),
			manual:      false,
		})
		created = entry
		return err
	})
	s.observe("start", err)
	if err != nil {
		if errors.Is(err, entities.ErrTimerAlreadyActive) {
			metrics.TimerConflicts.Inc()
		}
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "timer_started", map[string]interface{}{
		"entry_id": created.ID,
		"task_id":  created.TaskID,
	})

	return created, nil
}

// StopTimer sets the entry's end time to now
func (s *TimeService) StopTimer(ctx context.Context, userID uuid.UUID, entryID int64) (*entities.TimeEntry, error) {
	end := s.now()
	entry, err := s.updateEntry(ctx, userID, entryID, entities.TimeEntryPatch{EndTime: &end})
	s.observe("stop", err)
	if err != nil {
		return nil, fmt.Errorf("failed to stop timer: %w", err)
	}
	return entry, nil
}

// GetActiveTimer returns the user's running timer, or nil when none runs
func (s *TimeService) GetActiveTimer(ctx context.Context, userID uuid.UUID) (*entities.TimeEntry, error) {
	entry, err := s.entryRepo.GetActive(ctx, s.store.Reader(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active timer: %w", err)
	}
	return entry, nil
}

// ListEntries returns the user's entries, newest first. Entries of deleted tasks
// are included with an archived task reference.
func (s *TimeService) ListEntries(ctx context.Context, userID uuid.UUID, filter ports.TimeEntryFilter) ([]*entities.TimeEntry, error) {
	entries, err := s.entryRepo.List(ctx, s.store.Reader(), userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	return entries, nil
}

// GetStats aggregates the user's finished entries
func (s *TimeService) GetStats(ctx context.Context, userID uuid.UUID, filter ports.TimeEntryFilter) (*ports.TimeStats, error) {
	stats, err := s.entryRepo.Stats(ctx, s.store.Reader(), userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get time stats: %w", err)
	}
	return stats, nil
}

// GetDailyStats aggregates the user's finished entries per log date, newest first
func (s *TimeService) GetDailyStats(ctx context.Context, userID uuid.UUID, filter ports.TimeEntryFilter) ([]ports.DailyTimeStats, error) {
	days, err := s.entryRepo.DailyStats(ctx, s.store.Reader(), userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily time stats: %w", err)
	}
	return days, nil
}

// lockEntry loads an owned entry with its task row locked. The entry is read
// again after locking so the caller sees the version other writers left behind.
func (s *TimeService) lockEntry(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, entryID int64) (*entities.TimeEntry, error) {
	entry, err := s.entryRepo.GetOwned(ctx, tx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.Lock(ctx, tx, entry.TaskID); err != nil {
		return nil, err
	}
	return s.entryRepo.GetOwned(ctx, tx, userID, entryID)
}

func (s *TimeService) recomputeHours(ctx context.Context, tx *sqlx.Tx, taskID int64, now time.Time) error {
	start := time.Now()
	_, err := s.taskRepo.RecomputeActualHours(ctx, tx, taskID, now)
	elapsed := time.Since(start)

	metrics.HoursRecompute.Observe(elapsed.Seconds())
	s.logger.LogDatabaseQuery("recompute actual_hours", float64(elapsed.Microseconds())/1000, err)

	return err
}

func (s *TimeService) observe(op string, err error) {
	metrics.TimeEntries.WithLabelValues(op, metrics.Result(err)).Inc()
}
