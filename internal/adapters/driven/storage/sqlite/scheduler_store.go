package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// schedulerStore keeps the ingest schedule next to the vectors so a restarted
// serve process resumes where it stopped.
type schedulerStore struct {
	db *sql.DB
}

const (
	// stampLayout has fixed-width fractions so stored stamps sort lexically.
	stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

	selectTask = `SELECT id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled
		FROM scheduled_tasks`

	upsertTask = `INSERT INTO scheduled_tasks
			(id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled`

	selectResults = `SELECT task_id, started_at, ended_at, success, error, items_processed, statuses
		FROM task_results WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`

	pruneResults = `DELETE FROM task_results WHERE id NOT IN (
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
			FROM task_results
		) WHERE rn <= ?
	)`
)

// stamp stores a time as TEXT and a zero time as NULL.
type stamp struct{ t *time.Time }

func (s stamp) Value() (driver.Value, error) {
	if s.t == nil || s.t.IsZero() {
		return nil, nil
	}
	return s.t.UTC().Format(stampLayout), nil
}

func (s stamp) Scan(src any) error {
	*s.t = time.Time{}
	var text string
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("unexpected timestamp type %T", src)
	}
	if text == "" {
		return nil
	}
	// A corrupt stamp reads as never.
	if t, err := time.Parse(stampLayout, text); err == nil {
		*s.t = t
	}
	return nil
}

// optional stores an empty string as NULL.
func optional(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	task, err := readTask(s.db.QueryRowContext(ctx, selectTask+` WHERE id = ?`, taskID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return task, nil
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, selectTask+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := readTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, upsertTask,
		task.ID, task.Name, int64(task.Interval/time.Second),
		stamp{&task.LastRun}, stamp{&task.NextRun},
		optional(task.LastError), stamp{&task.LastSuccess}, task.Enabled)
	if err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	var statuses sql.NullString
	if len(result.Statuses) > 0 {
		raw, err := json.Marshal(result.Statuses)
		if err != nil {
			return fmt.Errorf("encoding statuses: %w", err)
		}
		statuses = optional(string(raw))
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO task_results
			(task_id, started_at, ended_at, success, error, items_processed, statuses)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.TaskID, result.StartedAt.UTC().Format(stampLayout), result.EndedAt.UTC().Format(stampLayout),
		result.Success, optional(result.Error), result.ItemsProcessed, statuses)
	if err != nil {
		return fmt.Errorf("recording result for %s: %w", result.TaskID, err)
	}
	return nil
}

// GetTaskHistory returns every result when limit is not positive.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectResults, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", taskID, err)
	}
	defer rows.Close()

	var results []domain.TaskResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			r        domain.TaskResult
			errMsg   sql.NullString
			statuses sql.NullString
		)
		if err := rows.Scan(&r.TaskID, stamp{&r.StartedAt}, stamp{&r.EndedAt},
			&r.Success, &errMsg, &r.ItemsProcessed, &statuses); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}
		r.Error = errMsg.String
		if statuses.Valid {
			if err := json.Unmarshal([]byte(statuses.String), &r.Statuses); err != nil {
				return nil, fmt.Errorf("decoding statuses: %w", err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	if _, err := s.db.ExecContext(ctx, pruneResults, max(keep, 0)); err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

// row is satisfied by *sql.Row and *sql.Rows.
type row interface {
	Scan(dest ...any) error
}

func readTask(r row) (*domain.ScheduledTask, error) {
	var (
		task      domain.ScheduledTask
		seconds   int64
		lastError sql.NullString
	)
	err := r.Scan(&task.ID, &task.Name, &seconds,
		stamp{&task.LastRun}, stamp{&task.NextRun}, &lastError, stamp{&task.LastSuccess}, &task.Enabled)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}
	task.Interval = time.Duration(seconds) * time.Second
	task.LastError = lastError.String
	return &task, nil
}
