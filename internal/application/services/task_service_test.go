package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/wbs/internal/domain/entities"
	"github.com/taskmaster/wbs/internal/ports"
)

func TestTaskService_ThreeLevelHierarchy(t *testing.T) {
	f := newFixture(t)

	root := f.createTask(t, "R", nil)
	assert.Equal(t, "1", root.Code)
	assert.Equal(t, 1, root.Level)
	assert.Equal(t, entities.TaskStatusNotStarted, root.Status)
	assert.Equal(t, entities.PriorityMedium, root.Priority)
	assert.Equal(t, 0, root.ProgressPercentage)
	assert.Equal(t, 1, root.SyncVersion)
	assert.Zero(t, root.ActualHours)

	child := f.createTask(t, "C1", &root.ID)
	assert.Equal(t, "1.1", child.Code)
	assert.Equal(t, 2, child.Level)

	grandchild := f.createTask(t, "G1", &child.ID)
	assert.Equal(t, "1.1.1", grandchild.Code)
	assert.Equal(t, 3, grandchild.Level)

	_, err := f.tasks.CreateTask(context.Background(), f.owner, ports.CreateTaskRequest{
		ProjectID: f.project.ID,
		ParentID:  &grandchild.ID,
		Name:      "too deep",
	})
	assert.ErrorIs(t, err, entities.ErrDepthExceeded)
}

func TestTaskService_SiblingOrdinalsAreNeverReused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createTask(t, "A", nil)
	b := f.createTask(t, "B", nil)
	c := f.createTask(t, "C", nil)
	assert.Equal(t, []string{"1", "2", "3"}, []string{a.Code, b.Code, c.Code})

	require.NoError(t, f.tasks.DeleteTask(ctx, f.owner, b.ID))

	d := f.createTask(t, "D", nil)
	assert.Equal(t, "4", d.Code)
	assert.Equal(t, 4, d.SortOrder)

	// Siblings keep their codes after the deletion.
	assert.Equal(t, "1", f.taskByID(t, a.ID).Code)
	assert.Equal(t, "3", f.taskByID(t, c.ID).Code)
}

func TestTaskService_ChildOrdinalsAreScopedToParent(t *testing.T) {
	f := newFixture(t)

	first := f.createTask(t, "first", nil)
	second := f.createTask(t, "second", nil)

	a := f.createTask(t, "a", &first.ID)
	b := f.createTask(t, "b", &second.ID)
	c := f.createTask(t, "c", &first.ID)

	assert.Equal(t, "1.1", a.Code)
	assert.Equal(t, "2.1", b.Code)
	assert.Equal(t, "1.2", c.Code)
}

func TestTaskService_CreateValidatesParentAndOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.CreateTask(ctx, f.owner, ports.CreateTaskRequest{
		ProjectID: f.project.ID,
		ParentID:  ptr(int64(999)),
		Name:      "orphan",
	})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	other, err := f.projects.CreateProject(ctx, f.owner, ports.CreateProjectRequest{Name: "Other"})
	require.NoError(t, err)
	foreignParent, err := f.tasks.CreateTask(ctx, f.owner, ports.CreateTaskRequest{ProjectID: other.ID, Name: "elsewhere"})
	require.NoError(t, err)

	_, err = f.tasks.CreateTask(ctx, f.owner, ports.CreateTaskRequest{
		ProjectID: f.project.ID,
		ParentID:  &foreignParent.ID,
		Name:      "cross project",
	})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	_, err = f.tasks.CreateTask(ctx, uuid.New(), ports.CreateTaskRequest{ProjectID: f.project.ID, Name: "intruder"})
	assert.ErrorIs(t, err, entities.ErrNotFoundOrForbidden)
}

func TestTaskService_CreateKeepsOptionalFields(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	task, err := f.tasks.CreateTask(context.Background(), f.owner, ports.CreateTaskRequest{
		ProjectID:      f.project.ID,
		Name:           "April",
		Description:    ptr("monthly plan"),
		LevelType:      ptr(entities.LevelTypeMonthly),
		StartDate:      &start,
		EndDate:        &end,
		EstimatedHours: ptr(40.0),
		Priority:       ptr(entities.PriorityHigh),
	})
	require.NoError(t, err)

	stored := f.taskByID(t, task.ID)
	require.NotNil(t, stored.LevelType)
	assert.Equal(t, entities.LevelTypeMonthly, *stored.LevelType)
	assert.Equal(t, entities.PriorityHigh, stored.Priority)
	require.NotNil(t, stored.EstimatedHours)
	assert.InDelta(t, 40.0, *stored.EstimatedHours, 1e-9)
	require.NotNil(t, stored.StartDate)
	assert.True(t, start.Equal(*stored.StartDate))
	require.NotNil(t, stored.Description)
	assert.Equal(t, "monthly plan", *stored.Description)
}

func TestTaskService_CompletionSetsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "ship", nil)

	f.clock.Advance(time.Hour)
	updated, err := f.tasks.UpdateTask(ctx, f.owner, task.ID, entities.TaskPatch{
		Status: ptr(entities.TaskStatusCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.ProgressPercentage)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, f.clock.Now().Equal(*updated.CompletedAt))
	assert.Equal(t, 2, updated.SyncVersion)

	stored := f.taskByID(t, task.ID)
	assert.Equal(t, 100, stored.ProgressPercentage)
	assert.NotNil(t, stored.CompletedAt)
}

func TestTaskService_CompletionKeepsExplicitProgress(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, "ship", nil)

	updated, err := f.tasks.UpdateTask(context.Background(), f.owner, task.ID, entities.TaskPatch{
		Status:             ptr(entities.TaskStatusCompleted),
		ProgressPercentage: ptr(80),
	})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.ProgressPercentage)
	assert.NotNil(t, updated.CompletedAt)
}

func TestTaskService_PartialUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "before", nil)

	updated, err := f.tasks.UpdateTask(ctx, f.owner, task.ID, entities.TaskPatch{Name: ptr("after")})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, entities.TaskStatusNotStarted, updated.Status)
	assert.Equal(t, task.Code, updated.Code)
	assert.Equal(t, 2, updated.SyncVersion)

	same, err := f.tasks.UpdateTask(ctx, f.owner, task.ID, entities.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, 2, same.SyncVersion)
	assert.Equal(t, 2, f.taskByID(t, task.ID).SyncVersion)

	_, err = f.tasks.UpdateTask(ctx, uuid.New(), task.ID, entities.TaskPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, entities.ErrNotFoundOrForbidden)
}

func TestTaskService_DeleteGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.createTask(t, "root", nil)
	child := f.createTask(t, "child", &root.ID)

	err := f.tasks.DeleteTask(ctx, f.owner, root.ID)
	assert.ErrorIs(t, err, entities.ErrHasChildren)

	require.NoError(t, f.tasks.DeleteTask(ctx, f.owner, child.ID))
	require.NoError(t, f.tasks.DeleteTask(ctx, f.owner, root.ID))

	tasks, err := f.tasks.ListProjectTasks(ctx, f.owner, f.project.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	err = f.tasks.DeleteTask(ctx, f.owner, root.ID)
	assert.ErrorIs(t, err, entities.ErrNotFoundOrForbidden)
}

func TestTaskService_ListAndTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r1 := f.createTask(t, "r1", nil)
	r2 := f.createTask(t, "r2", nil)
	c11 := f.createTask(t, "c11", &r1.ID)
	c21 := f.createTask(t, "c21", &r2.ID)
	c12 := f.createTask(t, "c12", &r1.ID)
	g := f.createTask(t, "g", &c12.ID)

	tasks, err := f.tasks.ListProjectTasks(ctx, f.owner, f.project.ID)
	require.NoError(t, err)
	codes := make([]string, 0, len(tasks))
	for _, task := range tasks {
		codes = append(codes, task.Code)
	}
	assert.Equal(t, []string{"1", "2", "1.1", "2.1", "1.2", "1.2.1"}, codes)

	tree, err := f.tasks.GetTaskTree(ctx, f.owner, f.project.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, r1.ID, tree[0].ID)
	assert.Equal(t, r2.ID, tree[1].ID)
	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, c11.ID, tree[0].Children[0].ID)
	assert.Equal(t, c12.ID, tree[0].Children[1].ID)
	require.Len(t, tree[0].Children[1].Children, 1)
	assert.Equal(t, g.ID, tree[0].Children[1].Children[0].ID)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, c21.ID, tree[1].Children[0].ID)
	assert.False(t, tree[0].Orphan)
}

func TestTaskService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.tasks.CreateTask(ctx, f.owner, ports.CreateTaskRequest{ProjectID: f.project.ID, Name: "a", EstimatedHours: ptr(10.0)})
	require.NoError(t, err)
	b, err := f.tasks.CreateTask(ctx, f.owner, ports.CreateTaskRequest{ProjectID: f.project.ID, Name: "b", EstimatedHours: ptr(5.0)})
	require.NoError(t, err)
	f.createTask(t, "c", nil)
	deleted := f.createTask(t, "gone", nil)
	require.NoError(t, f.tasks.DeleteTask(ctx, f.owner, deleted.ID))

	_, err = f.tasks.UpdateTask(ctx, f.owner, a.ID, entities.TaskPatch{Status: ptr(entities.TaskStatusCompleted)})
	require.NoError(t, err)
	_, err = f.tasks.UpdateTask(ctx, f.owner, b.ID, entities.TaskPatch{Status: ptr(entities.TaskStatusInProgress), ProgressPercentage: ptr(50)})
	require.NoError(t, err)
	f.manualEntry(t, b.ID, f.clock.Now(), 90*time.Minute)

	stats, err := f.tasks.GetStats(ctx, f.owner, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.Equal(t, 1, stats.InProgressTasks)
	assert.Equal(t, 1, stats.NotStartedTasks)
	assert.Equal(t, 50, stats.AvgProgress)
	assert.InDelta(t, 15.0, stats.TotalEstimatedHours, 1e-9)
	assert.InDelta(t, 1.5, stats.TotalActualHours, 1e-9)

	_, err = f.tasks.GetStats(ctx, uuid.New(), f.project.ID)
	assert.ErrorIs(t, err, entities.ErrNotFoundOrForbidden)
}

func TestTaskService_ConcurrentSiblingsGetDistinctCodes(t *testing.T) {
	f := newFixture(t)
	root := f.createTask(t, "root", nil)

	const workers = 8
	var wg sync.WaitGroup
	codes := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := f.tasks.CreateTask(context.Background(), f.owner, ports.CreateTaskRequest{
				ProjectID: f.project.ID,
				ParentID:  &root.ID,
				Name:      fmt.Sprintf("child-%d", i),
			})
			errs[i] = err
			if err == nil {
				codes[i] = task.Code
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Strings(codes)
	expected := make([]string, 0, workers)
	for i := 1; i <= workers; i++ {
		expected = append(expected, fmt.Sprintf("1.%d", i))
	}
	sort.Strings(expected)
	assert.Equal(t, expected, codes)
}
