package driven

import (
	"context"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Reranker scores a candidate set against the query with a second-pass model.
// This is an optional service - when nil, retrieval filters by similarity score.
type Reranker interface {
	// Rerank returns at most topN results sorted by score descending.
	// Any error means reranking is unavailable for this call; callers fall
	// back to similarity-score filtering and never surface the error.
	Rerank(ctx context.Context, log *zap.Logger, query string, docs []domain.Document, topN int) ([]domain.RerankResult, error)
}
