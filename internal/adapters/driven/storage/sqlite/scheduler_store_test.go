package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	task := &domain.ScheduledTask{
		ID:          domain.TaskIDIngestAll,
		Name:        "Ingest all sources",
		Interval:    time.Hour,
		LastRun:     now.Add(-30 * time.Minute),
		NextRun:     now.Add(30 * time.Minute),
		LastSuccess: now.Add(-30 * time.Minute),
		Enabled:     true,
	}

	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, domain.TaskIDIngestAll)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, task.Name, retrieved.Name)
	assert.Equal(t, task.Interval, retrieved.Interval)
	assert.True(t, retrieved.Enabled)
	assert.True(t, task.LastRun.Equal(retrieved.LastRun))
	assert.True(t, task.NextRun.Equal(retrieved.NextRun))
	assert.Empty(t, retrieved.LastError)
}

func TestSchedulerStore_GetTask_NotFound(t *testing.T) {
	store := setupTestStore(t)

	task, err := store.SchedulerStore().GetTask(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSchedulerStore_SaveTask_Update(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	task := &domain.ScheduledTask{ID: "t", Name: "task", Interval: time.Minute, Enabled: true}
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	task.Enabled = false
	task.LastError = "loader failed"
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, "t")
	require.NoError(t, err)
	assert.False(t, retrieved.Enabled)
	assert.Equal(t, "loader failed", retrieved.LastError)
	assert.True(t, retrieved.LastRun.IsZero())
}

func TestSchedulerStore_NilArguments(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SchedulerStore().SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SchedulerStore().RecordResult(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_ListTasks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	tasks, err := schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: id, Name: id}))
	}

	tasks, err = schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "c", tasks[2].ID)
}

func TestSchedulerStore_History(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
			TaskID:         domain.TaskIDIngestAll,
			StartedAt:      start.Add(time.Duration(i)*time.Hour + 500*time.Millisecond),
			EndedAt:        start.Add(time.Duration(i)*time.Hour + time.Minute),
			Success:        i%2 == 0,
			Error:          map[bool]string{true: "", false: "timeout"}[i%2 == 0],
			ItemsProcessed: i * 10,
		}))
	}
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{TaskID: "other", StartedAt: start}))

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDIngestAll, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 40, history[0].ItemsProcessed)
	assert.True(t, history[0].Success)
	assert.Equal(t, "timeout", history[1].Error)
	assert.True(t, start.Add(4*time.Hour+500*time.Millisecond).Equal(history[0].StartedAt))

	require.NoError(t, schedulerStore.PruneHistory(ctx, 3))

	history, err = schedulerStore.GetTaskHistory(ctx, domain.TaskIDIngestAll, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 20, history[2].ItemsProcessed)

	other, err := schedulerStore.GetTaskHistory(ctx, "other", 10)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSchedulerStore_Statuses(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID:    domain.TaskIDIngestAll,
		StartedAt: start,
		EndedAt:   start.Add(time.Minute),
		Success:   true,
		Statuses: map[string]string{
			"docs":      domain.StatusUpdated,
			"trainings": domain.StatusNoChanges,
		},
	}))
	require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
		TaskID:    domain.TaskIDIngestAll,
		StartedAt: start.Add(-time.Hour),
		EndedAt:   start.Add(-time.Hour),
	}))

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDIngestAll, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.StatusNoChanges, history[0].Statuses["trainings"])
	assert.Equal(t, domain.StatusUpdated, history[0].Statuses["docs"])
	assert.Nil(t, history[1].Statuses)
}
