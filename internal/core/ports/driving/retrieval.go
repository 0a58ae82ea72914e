package driving

import (
	"context"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetrievalService answers queries across the configured knowledge domains.
type RetrievalService interface {
	// Search fans the query out to the selected tools and merges the results.
	Search(ctx context.Context, log *zap.Logger, query string, opts domain.SearchOptions) (*domain.SearchResult, error)
}
