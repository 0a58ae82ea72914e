package driven

import (
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Metrics records operational counters.
// This is an optional service - when nil, nothing is recorded.
type Metrics interface {
	// IngestCompleted records one finished ingestion run.
	IngestCompleted(report *domain.IngestReport)

	// SearchCompleted records one retrieval query for a tool.
	SearchCompleted(tool string, results int, elapsed time.Duration)

	// RerankFailed records a reranker fallback for a tool.
	RerankFailed(tool string)

	// RuleFailed records a rule that errored and failed open.
	RuleFailed(rule string)

	// CheckCompleted records one finished check.
	CheckCompleted(result *domain.CheckResult)
}
