package domain

import "time"

// TaskIDIngestAll is the periodic full ingestion task.
const TaskIDIngestAll = "ingest-all"

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID          string
	Name        string
	Interval    time.Duration
	LastRun     time.Time
	NextRun     time.Time
	LastError   string
	LastSuccess time.Time
	Enabled     bool
}

// Due reports whether the task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// TaskResult is the outcome of one task execution.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts chunks written by the run.
	ItemsProcessed int

	// Statuses maps each ingested type to its report status.
	Statuses map[string]string
}
