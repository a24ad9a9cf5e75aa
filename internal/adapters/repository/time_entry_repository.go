package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/database"
	"github.com/taskmaster/wbs/internal/ports"
)

// Entries are always read together with a reference to their task. An entry whose
// task or project was soft-deleted still reads back, flagged as archived.
const entrySelect = `
	SELECT te.id, te.user_id, te.task_id, te.description, te.start_time, te.end_time,
		te.duration_seconds, te.is_manual, te.log_date, te.is_deleted, te.sync_version,
		te.created_at, te.updated_at,
		t.project_id AS task_project_id, t.name AS task_name, t.code AS task_code,
		CASE WHEN t.is_deleted OR p.is_deleted THEN TRUE ELSE FALSE END AS task_archived
	FROM time_entries te
	JOIN wbs_tasks t ON t.id = te.task_id
	JOIN projects p ON p.id = t.project_id`

type entryRow struct {
	entities.TimeEntry
	TaskProjectID int64  `db:"task_project_id"`
	TaskName      string `db:"task_name"`
	TaskCode      string `db:"task_code"`
	TaskArchived  bool   `db:"task_archived"`
}

func (row *entryRow) toEntity() *entities.TimeEntry {
	entry := row.TimeEntry
	entry.Task = &entities.TaskRef{
		ID:        row.TaskID,
		ProjectID: row.TaskProjectID,
		Name:      row.TaskName,
		Code:      row.TaskCode,
		Archived:  row.TaskArchived,
	}
	return &entry
}

// TimeEntryRepositoryImpl implements the TimeEntryRepository interface
type TimeEntryRepositoryImpl struct {
	dialect database.Dialect
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(dialect database.Dialect) ports.TimeEntryRepository {
	return &TimeEntryRepositoryImpl{dialect: dialect}
}

func (r *TimeEntryRepositoryImpl) Create(ctx context.Context, q sqlx.ExtContext, entry *entities.TimeEntry) error {
	query := q.Rebind(`
		INSERT INTO time_entries (user_id, task_id, description, start_time, end_time,
			duration_seconds, is_manual, log_date, is_deleted, sync_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?, ?)
		RETURNING id`)

	err := q.QueryRowxContext(ctx, query,
		entry.UserID, entry.TaskID, entry.Description, entry.StartTime, entry.EndTime,
		entry.DurationSeconds, entry.IsManual, entry.LogDate, entry.SyncVersion,
		entry.CreatedAt, entry.UpdatedAt,
	).Scan(&entry.ID)
	if err != nil {
		// The only unique index on time_entries guards the open timer.
		if database.IsUniqueViolation(err) {
			return entities.ErrTimerAlreadyActive
		}
		return fmt.Errorf("create time entry: %w", err)
	}

	return nil
}

func (r *TimeEntryRepositoryImpl) GetOwned(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, id int64) (*entities.TimeEntry, error) {
	query := q.Rebind(entrySelect + `
		WHERE te.id = ? AND te.user_id = ? AND p.owner_id = ? AND te.is_deleted = FALSE`)

	var row entryRow
	if err := sqlx.GetContext(ctx, q, &row, query, id, userID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("get time entry: %w", err)
	}

	return row.toEntity(), nil
}

func (r *TimeEntryRepositoryImpl) Update(ctx context.Context, q sqlx.ExtContext, entry *entities.TimeEntry) error {
	query := q.Rebind(`
		UPDATE time_entries
		SET description = ?, start_time = ?, end_time = ?, duration_seconds = ?, log_date = ?,
			updated_at = ?, sync_version = sync_version + 1
		WHERE id = ? AND is_deleted = FALSE
		RETURNING sync_version`)

	err := q.QueryRowxContext(ctx, query,
		entry.Description, entry.StartTime, entry.EndTime, entry.DurationSeconds, entry.LogDate,
		entry.UpdatedAt, entry.ID,
	).Scan(&entry.SyncVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrNotFoundOrForbidden
		}
		return fmt.Errorf("update time entry: %w", err)
	}

	return nil
}

func (r *TimeEntryRepositoryImpl) SoftDelete(ctx context.Context, q sqlx.ExtContext, id int64, now time.Time) error {
	query := q.Rebind(`
		UPDATE time_entries
		SET is_deleted = TRUE, updated_at = ?, sync_version = sync_version + 1
		WHERE id = ? AND is_deleted = FALSE`)

	result, err := q.ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("delete time entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete time entry: %w", err)
	}
	if rows == 0 {
		return entities.ErrNotFoundOrForbidden
	}

	return nil
}

func (r *TimeEntryRepositoryImpl) GetActive(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID) (*entities.TimeEntry, error) {
	query := q.Rebind(entrySelect + `
		WHERE te.user_id = ? AND te.end_time IS NULL AND te.is_deleted = FALSE
		ORDER BY te.start_time DESC
		LIMIT 1`)

	var row entryRow
	if err := sqlx.GetContext(ctx, q, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active timer: %w", err)
	}

	return row.toEntity(), nil
}

// entryConditions renders the shared WHERE clause for list and stats reads.
func entryConditions(userID uuid.UUID, filter ports.TimeEntryFilter) (string, []interface{}) {
	conds := []string{"te.user_id = ?", "te.is_deleted = FALSE"}
	args := []interface{}{userID}

	if filter.TaskID != nil {
		conds = append(conds, "te.task_id = ?")
		args = append(args, *filter.TaskID)
	}
	if filter.ProjectID != nil {
		conds = append(conds, "t.project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.StartDate != nil {
		conds = append(conds, "te.log_date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conds = append(conds, "te.log_date <= ?")
		args = append(args, *filter.EndDate)
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *TimeEntryRepositoryImpl) List(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, filter ports.TimeEntryFilter) ([]*entities.TimeEntry, error) {
	where, args := entryConditions(userID, filter)
	query := entrySelect + where + " ORDER BY te.start_time DESC, te.id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	var rows []entryRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}

	entries := make([]*entities.TimeEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toEntity())
	}

	return entries, nil
}

func (r *TimeEntryRepositoryImpl) Stats(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, filter ports.TimeEntryFilter) (*ports.TimeStats, error) {
	where, args := entryConditions(userID, filter)
	query := `
		SELECT COUNT(*) AS total_entries,
			COALESCE(SUM(te.duration_seconds), 0) AS total_seconds,
			COUNT(DISTINCT te.log_date) AS days_with_entries
		FROM time_entries te
		JOIN wbs_tasks t ON t.id = te.task_id` + where + ` AND te.duration_seconds IS NOT NULL`

	var agg struct {
		TotalEntries    int   `db:"total_entries"`
		TotalSeconds    int64 `db:"total_seconds"`
		DaysWithEntries int   `db:"days_with_entries"`
	}
	if err := sqlx.GetContext(ctx, q, &agg, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("time stats: %w", err)
	}

	stats := &ports.TimeStats{
		TotalEntries:    agg.TotalEntries,
		TotalSeconds:    agg.TotalSeconds,
		TotalHours:      roundHours(agg.TotalSeconds),
		DaysWithEntries: agg.DaysWithEntries,
	}
	if agg.TotalEntries > 0 {
		stats.AvgSessionHours = roundHours(agg.TotalSeconds / int64(agg.TotalEntries))
	}

	return stats, nil
}

func (r *TimeEntryRepositoryImpl) DailyStats(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, filter ports.TimeEntryFilter) ([]ports.DailyTimeStats, error) {
	where, args := entryConditions(userID, filter)
	query := `
		SELECT te.log_date AS date,
			COALESCE(SUM(te.duration_seconds), 0) AS total_seconds,
			COUNT(*) AS entry_count
		FROM time_entries te
		JOIN wbs_tasks t ON t.id = te.task_id` + where + ` AND te.duration_seconds IS NOT NULL
		GROUP BY te.log_date
		ORDER BY te.log_date DESC`

	days := []ports.DailyTimeStats{}
	if err := sqlx.SelectContext(ctx, q, &days, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("daily time stats: %w", err)
	}

	for i := range days {
		days[i].TotalHours = roundHours(days[i].TotalSeconds)
	}

	return days, nil
}

// roundHours converts seconds to hours rounded to two decimals
func roundHours(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*100) / 100
}
