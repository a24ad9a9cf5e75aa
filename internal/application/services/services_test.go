package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/wbs/internal/adapters/repository"
	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/infrastructure/database"
	"github.com/taskmaster/wbs/internal/infrastructure/logger"
	"github.com/taskmaster/wbs/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db       *database.DB
	clock    *fakeClock
	projects *ProjectService
	tasks    *TaskService
	times    *TimeService
	owner    uuid.UUID
	project  *entities.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	clock := &fakeClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}

	projectRepo := repository.NewProjectRepository(db.Dialect)
	taskRepo := repository.NewTaskRepository(db.Dialect)
	entryRepo := repository.NewTimeEntryRepository(db.Dialect)

	f := &fixture{
		db:       db,
		clock:    clock,
		projects: NewProjectService(db, projectRepo, log).WithClock(clock.Now),
		tasks:    NewTaskService(db, taskRepo, projectRepo, log).WithClock(clock.Now),
		times:    NewTimeService(db, entryRepo, taskRepo, log).WithClock(clock.Now),
		owner:    uuid.New(),
	}

	f.project, err = f.projects.CreateProject(context.Background(), f.owner, ports.CreateProjectRequest{Name: "Roadmap"})
	require.NoError(t, err)

	return f
}

func (f *fixture) createTask(t *testing.T, name string, parentID *int64) *entities.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), f.owner, ports.CreateTaskRequest{
		ProjectID: f.project.ID,
		ParentID:  parentID,
		Name:      name,
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) taskByID(t *testing.T, id int64) entities.Task {
	t.Helper()
	tasks, err := f.tasks.ListProjectTasks(context.Background(), f.owner, f.project.ID)
	require.NoError(t, err)
	for _, task := range tasks {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %d not listed", id)
	return entities.Task{}
}

func (f *fixture) manualEntry(t *testing.T, taskID int64, start time.Time, d time.Duration) *entities.TimeEntry {
	t.Helper()
	end := start.Add(d)
	entry, err := f.times.CreateEntry(context.Background(), f.owner, ports.CreateTimeEntryRequest{
		TaskID:    taskID,
		StartTime: start,
		EndTime:   &end,
	})
	require.NoError(t, err)
	return entry
}

func ptr[T any](v T) *T { return &v }
