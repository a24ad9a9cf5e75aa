package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/database"
	"github.com/taskmaster/wbs/internal/ports"
)

var epoch = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

type repos struct {
	db       *database.DB
	projects ports.ProjectRepository
	tasks    ports.TaskRepository
	entries  ports.TimeEntryRepository
}

func newRepos(t *testing.T) *repos {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &repos{
		db:       db,
		projects: NewProjectRepository(db.Dialect),
		tasks:    NewTaskRepository(db.Dialect),
		entries:  NewTimeEntryRepository(db.Dialect),
	}
}

func (r *repos) project(t *testing.T, owner uuid.UUID) *entities.Project {
	t.Helper()
	p := &entities.Project{OwnerID: owner, Name: "Ops", Color: "#1976d2", CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, r.projects.Create(context.Background(), r.db.Reader(), p))
	return p
}

func (r *repos) task(t *testing.T, projectID int64, parentID *int64, order int, code string) *entities.Task {
	t.Helper()
	level := 1
	if parentID != nil {
		level = 2
	}
	task := &entities.Task{
		ProjectID:   projectID,
		ParentID:    parentID,
		Code:        code,
		Name:        "task " + code,
		Level:       level,
		SortOrder:   order,
		Status:      entities.TaskStatusNotStarted,
		Priority:    entities.PriorityMedium,
		SyncVersion: 1,
		CreatedAt:   epoch,
		UpdatedAt:   epoch,
	}
	require.NoError(t, r.tasks.Create(context.Background(), r.db.Reader(), task))
	return task
}

func (r *repos) entry(t *testing.T, user uuid.UUID, taskID int64, start time.Time, end *time.Time) *entities.TimeEntry {
	t.Helper()
	e := &entities.TimeEntry{
		UserID:      user,
		TaskID:      taskID,
		StartTime:   start,
		EndTime:     end,
		SyncVersion: 1,
		CreatedAt:   epoch,
		UpdatedAt:   epoch,
	}
	require.NoError(t, e.Recompute())
	require.NoError(t, r.entries.Create(context.Background(), r.db.Reader(), e))
	return e
}

func TestTaskRepository_SiblingOrdinalConflict(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	p := r.project(t, uuid.New())

	root := r.task(t, p.ID, nil, 1, "1")

	dup := &entities.Task{
		ProjectID: p.ID, Code: "1-dup", Name: "dup", Level: 1, SortOrder: 1,
		Status: entities.TaskStatusNotStarted, Priority: entities.PriorityLow,
		CreatedAt: epoch, UpdatedAt: epoch,
	}
	assert.ErrorIs(t, r.tasks.Create(ctx, r.db.Reader(), dup), entities.ErrOrdinalConflict)

	sameCode := &entities.Task{
		ProjectID: p.ID, ParentID: &root.ID, Code: "1", Name: "clash", Level: 2, SortOrder: 1,
		Status: entities.TaskStatusNotStarted, Priority: entities.PriorityLow,
		CreatedAt: epoch, UpdatedAt: epoch,
	}
	assert.ErrorIs(t, r.tasks.Create(ctx, r.db.Reader(), sameCode), entities.ErrOrdinalConflict)
}

func TestTaskRepository_MaxSortOrderCountsDeleted(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	p := r.project(t, uuid.New())

	top, err := r.tasks.MaxSortOrder(ctx, r.db.Reader(), p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, top)

	r.task(t, p.ID, nil, 1, "1")
	second := r.task(t, p.ID, nil, 2, "2")
	require.NoError(t, r.tasks.SoftDelete(ctx, r.db.Reader(), second.ID, epoch))

	top, err = r.tasks.MaxSortOrder(ctx, r.db.Reader(), p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, top)

	top, err = r.tasks.MaxSortOrder(ctx, r.db.Reader(), p.ID, &second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, top)

	// A second delete of the same row finds nothing live.
	assert.ErrorIs(t, r.tasks.SoftDelete(ctx, r.db.Reader(), second.ID, epoch), entities.ErrNotFoundOrForbidden)
}

func TestTaskRepository_OwnershipJoinsProject(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	owner := uuid.New()
	p := r.project(t, owner)
	task := r.task(t, p.ID, nil, 1, "1")

	got, err := r.tasks.GetOwned(ctx, r.db.Reader(), owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Code)

	_, err = r.tasks.GetOwned(ctx, r.db.Reader(), uuid.New(), task.ID)
	assert.ErrorIs(t, err, entities.ErrNotFoundOrForbidden)

	require.NoError(t, r.projects.SoftDelete(ctx, r.db.Reader(), p.ID, epoch))
	_, err = r.tasks.GetOwned(ctx, r.db.Reader(), owner, task.ID)
	assert.ErrorIs(t, err, entities.ErrNotFoundOrForbidden)
}

func TestTaskRepository_ActualHours(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	owner := uuid.New()
	p := r.project(t, owner)
	task := r.task(t, p.ID, nil, 1, "1")

	end := epoch.Add(45 * time.Minute)
	r.entry(t, owner, task.ID, epoch, &end)
	r.entry(t, owner, task.ID, epoch.Add(time.Hour), nil)

	require.NoError(t, r.tasks.AddActualHours(ctx, r.db.Reader(), task.ID, 10, epoch))

	hours, err := r.tasks.RecomputeActualHours(ctx, r.db.Reader(), task.ID, epoch)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, hours, 1e-9)

	got, err := r.tasks.GetOwned(ctx, r.db.Reader(), owner, task.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got.ActualHours, 1e-9)
}

func TestTimeEntryRepository_SingleOpenTimer(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	owner := uuid.New()
	p := r.project(t, owner)
	task := r.task(t, p.ID, nil, 1, "1")

	open := r.entry(t, owner, task.ID, epoch, nil)

	second := &entities.TimeEntry{
		UserID: owner, TaskID: task.ID, StartTime: epoch.Add(time.Minute),
		LogDate: entities.LogDateOf(epoch), CreatedAt: epoch, UpdatedAt: epoch,
	}
	assert.ErrorIs(t, r.entries.Create(ctx, r.db.Reader(), second), entities.ErrTimerAlreadyActive)

	active, err := r.entries.GetActive(ctx, r.db.Reader(), owner)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, open.ID, active.ID)

	// Once deleted the open entry no longer blocks a new timer.
	require.NoError(t, r.entries.SoftDelete(ctx, r.db.Reader(), open.ID, epoch))
	require.NoError(t, r.entries.Create(ctx, r.db.Reader(), second))

	none, err := r.entries.GetActive(ctx, r.db.Reader(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTimeEntryRepository_ArchivedTaskRef(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	owner := uuid.New()
	p := r.project(t, owner)
	kept := r.task(t, p.ID, nil, 1, "1")
	gone := r.task(t, p.ID, nil, 2, "2")

	end := epoch.Add(time.Hour)
	r.entry(t, owner, kept.ID, epoch, &end)
	archived := r.entry(t, owner, gone.ID, epoch.Add(2*time.Hour), ptrTime(epoch.Add(3*time.Hour)))
	require.NoError(t, r.tasks.SoftDelete(ctx, r.db.Reader(), gone.ID, epoch))

	entries, err := r.entries.List(ctx, r.db.Reader(), owner, ports.TimeEntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, archived.ID, entries[0].ID)
	assert.True(t, entries[0].Task.Archived)
	assert.Equal(t, "2", entries[0].Task.Code)
	assert.False(t, entries[1].Task.Archived)

	got, err := r.entries.GetOwned(ctx, r.db.Reader(), owner, archived.ID)
	require.NoError(t, err)
	assert.True(t, got.Task.Archived)

	_, err = r.entries.GetOwned(ctx, r.db.Reader(), uuid.New(), archived.ID)
	assert.ErrorIs(t, err, entities.ErrNotFoundOrForbidden)
}

func TestTimeEntryRepository_FiltersAndStats(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	owner := uuid.New()
	p := r.project(t, owner)
	a := r.task(t, p.ID, nil, 1, "1")
	b := r.task(t, p.ID, nil, 2, "2")

	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	r.entry(t, owner, a.ID, day1, ptrTime(day1.Add(30*time.Minute)))
	r.entry(t, owner, b.ID, day2, ptrTime(day2.Add(90*time.Minute)))
	r.entry(t, owner, b.ID, day2.Add(3*time.Hour), nil)

	byTask, err := r.entries.List(ctx, r.db.Reader(), owner, ports.TimeEntryFilter{TaskID: &b.ID})
	require.NoError(t, err)
	assert.Len(t, byTask, 2)

	from := "2024-05-02"
	byDate, err := r.entries.List(ctx, r.db.Reader(), owner, ports.TimeEntryFilter{StartDate: &from})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	page, err := r.entries.List(ctx, r.db.Reader(), owner, ports.TimeEntryFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "2024-05-02", page[0].LogDate)

	stats, err := r.entries.Stats(ctx, r.db.Reader(), owner, ports.TimeEntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, int64(7200), stats.TotalSeconds)
	assert.Equal(t, 2.0, stats.TotalHours)
	assert.Equal(t, 1.0, stats.AvgSessionHours)
	assert.Equal(t, 2, stats.DaysWithEntries)

	days, err := r.entries.DailyStats(ctx, r.db.Reader(), owner, ports.TimeEntryFilter{ProjectID: &p.ID})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-05-02", days[0].Date)
	assert.Equal(t, 1.5, days[0].TotalHours)
	assert.Equal(t, 1, days[0].EntryCount)
	assert.Equal(t, 0.5, days[1].TotalHours)
}

func TestRoundHours(t *testing.T) {
	assert.Equal(t, 0.0, roundHours(0))
	assert.Equal(t, 1.0, roundHours(3600))
	assert.Equal(t, 0.33, roundHours(1200))
	assert.Equal(t, 1.83, roundHours(6600))
}

func ptrTime(t time.Time) *time.Time { return &t }
