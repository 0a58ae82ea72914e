package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService dispatches ingestion runs to the per-type ingesters.
type IngestionService struct {
	ingesters map[string]*Ingester
	types     []string
	metrics   driven.Metrics

	// Status tracking
	mu      sync.Mutex
	running map[string]bool
}

// NewIngestionService creates a service over the given ingesters.
// metrics is optional.
func NewIngestionService(metrics driven.Metrics, ingesters ...*Ingester) *IngestionService {
	s := &IngestionService{
		ingesters: make(map[string]*Ingester, len(ingesters)),
		metrics:   metrics,
		running:   make(map[string]bool),
	}
	for _, ing := range ingesters {
		s.ingesters[ing.Type()] = ing
		s.types = append(s.types, ing.Type())
	}
	sort.Strings(s.types)
	return s
}

// Types returns the registered types in a stable order.
func (s *IngestionService) Types() []string {
	out := make([]string, len(s.types))
	copy(out, s.types)
	return out
}

// Running reports whether an ingestion run for the type is in progress.
func (s *IngestionService) Running(typ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[typ]
}

// IngestType updates all sources of one type.
func (s *IngestionService) IngestType(ctx context.Context, log *zap.Logger, typ string) (*domain.IngestReport, error) {
	ing, ok := s.ingesters[typ]
	if !ok {
		return nil, fmt.Errorf("ingest %q: %w", typ, domain.ErrUnknownType)
	}
	if err := s.begin(typ); err != nil {
		return nil, err
	}
	defer s.end(typ)

	report, err := ing.IngestAll(ctx, logger.OrNop(log))
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", typ, err)
	}
	s.record(report)
	return report, nil
}

// IngestRecord re-ingests the single source behind a stored record.
func (s *IngestionService) IngestRecord(ctx context.Context, log *zap.Logger, record domain.SourceRecord) (*domain.IngestReport, error) {
	ing, ok := s.ingesters[record.Type]
	if !ok {
		return nil, fmt.Errorf("ingest record %q: %w", record.Type, domain.ErrUnknownType)
	}
	if record.Source == "" {
		return nil, fmt.Errorf("ingest record: empty source: %w", domain.ErrInvalidInput)
	}

	report, err := ing.IngestOne(ctx, logger.OrNop(log), record)
	if err != nil {
		return nil, fmt.Errorf("ingest %s/%s: %w", record.Type, record.Source, err)
	}
	s.record(report)
	return report, nil
}

// IngestEverything updates all types concurrently. Each type is independent:
// a failure is joined into the returned error and the others still complete.
func (s *IngestionService) IngestEverything(ctx context.Context, log *zap.Logger) ([]*domain.IngestReport, error) {
	log = logger.OrNop(log)
	reports := make([]*domain.IngestReport, len(s.types))
	errs := make([]error, len(s.types))

	var g errgroup.Group
	for idx, typ := range s.types {
		g.Go(func() error {
			report, err := s.IngestType(ctx, log, typ)
			if err != nil {
				log.Error("ingestion failed", zap.String("type", typ), zap.Error(err))
				errs[idx] = err
				return nil
			}
			reports[idx] = report
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*domain.IngestReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, errors.Join(errs...)
}

func (s *IngestionService) begin(typ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[typ] {
		return fmt.Errorf("ingest %s: %w", typ, domain.ErrIngestInProgress)
	}
	s.running[typ] = true
	return nil
}

func (s *IngestionService) end(typ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, typ)
}

func (s *IngestionService) record(report *domain.IngestReport) {
	if s.metrics != nil && report != nil {
		s.metrics.IngestCompleted(report)
	}
}
