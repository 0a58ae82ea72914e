package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const historyRetention = 100

// Scheduler re-ingests every source type on a fixed interval.
// Task state survives restarts through the SchedulerStore.
type Scheduler struct {
	interval  time.Duration
	tick      time.Duration
	store     driven.SchedulerStore
	ingestion driving.IngestionService
	log       *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. A zero interval disables the ingest task.
func NewScheduler(
	interval time.Duration,
	store driven.SchedulerStore,
	ingestion driving.IngestionService,
	log *zap.Logger,
) *Scheduler {
	return &Scheduler{
		interval:  interval,
		tick:      time.Minute,
		store:     store,
		ingestion: ingestion,
		log:       logger.OrNop(log).With(zap.String("component", "scheduler")),
		now:       time.Now,
	}
}

// Start runs the scheduler loop. It blocks until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.ensureTask(ctx); err != nil {
		s.log.Warn("failed to initialise task", zap.Error(err))
	}

	s.runDue(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop ends the loop and waits for a running ingestion to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// History returns recent ingest runs, newest first.
func (s *Scheduler) History(ctx context.Context, limit int) ([]domain.TaskResult, error) {
	return s.store.GetTaskHistory(ctx, domain.TaskIDIngestAll, limit)
}

func (s *Scheduler) ensureTask(ctx context.Context) error {
	task, err := s.store.GetTask(ctx, domain.TaskIDIngestAll)
	if err != nil {
		return err
	}

	enabled := s.interval > 0
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       domain.TaskIDIngestAll,
			Name:     "Ingest all sources",
			Interval: s.interval,
			NextRun:  s.now().Add(s.interval),
		}
	} else if task.Interval != s.interval {
		task.Interval = s.interval
		task.NextRun = s.now().Add(s.interval)
	}
	task.Enabled = enabled

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) runDue(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		s.log.Warn("failed to list tasks", zap.Error(err))
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if task.ID != domain.TaskIDIngestAll || !task.Due(now) {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runTask(ctx, &task)
		}()
	}
}

func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	result := &domain.TaskResult{TaskID: task.ID, StartedAt: s.now()}
	s.log.Info("scheduled ingestion started")

	reports, err := s.ingestion.IngestEverything(ctx, s.log)
	for _, r := range reports {
		if r == nil {
			continue
		}
		if result.Statuses == nil {
			result.Statuses = make(map[string]string, len(reports))
		}
		result.ItemsProcessed += r.Chunks
		result.Statuses[r.Type] = r.Status
		s.log.Info(r.String())
	}

	result.EndedAt = s.now()
	if err != nil {
		result.Error = err.Error()
		task.LastError = err.Error()
		s.log.Warn("scheduled ingestion failed", zap.Error(err))
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}
	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)

	if err := s.store.SaveTask(ctx, task); err != nil {
		s.log.Warn("failed to save task", zap.Error(err))
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		s.log.Warn("failed to record result", zap.Error(err))
	}
	if err := s.store.PruneHistory(ctx, historyRetention); err != nil {
		s.log.Warn("failed to prune history", zap.Error(err))
	}
}
