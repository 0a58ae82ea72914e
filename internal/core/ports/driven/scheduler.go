package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SchedulerStore persists scheduled task state and run history.
type SchedulerStore interface {
	// GetTask returns nil and no error when the task does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or updates the task by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns the most recent results first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the newest keep results per task.
	PruneHistory(ctx context.Context, keep int) error
}
