package driving

import (
	"context"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CheckRunner executes evaluation checks in bulk.
type CheckRunner interface {
	// Run executes every check on a bounded worker pool.
	// Failing checks are recorded in the summary and never abort the run.
	Run(ctx context.Context, log *zap.Logger, checks []domain.CheckDef) (*domain.CheckRunSummary, error)
}
