package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Retriever issues similarity searches for one knowledge domain at a time.
type Retriever struct {
	store driven.VectorStore
}

// NewRetriever creates a retriever over the vector store.
func NewRetriever(store driven.VectorStore) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns up to topK documents of the given type scoring at least threshold.
func (r *Retriever) Retrieve(
	ctx context.Context,
	log *zap.Logger,
	typ, query string,
	threshold float64,
	topK int,
) ([]domain.Document, error) {
	req := domain.SearchRequest{
		Query:               query,
		Filter:              domain.Filter{Type: typ},
		SimilarityThreshold: threshold,
		TopK:                topK,
	}
	log.Debug("similarity search",
		zap.String("filter", req.Filter.String()),
		zap.Float64("threshold", threshold),
		zap.Int("topK", topK))

	docs, err := r.store.SimilaritySearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("similarity search %s: %w", typ, err)
	}
	return docs, nil
}

// describeDocs renders "(0.812) url" entries for logs.
func describeDocs(docs []domain.Document) string {
	parts := make([]string, 0, len(docs))
	for i := range docs {
		score := 0.0
		if docs[i].Score != nil {
			score = *docs[i].Score
		}
		parts = append(parts, fmt.Sprintf("(%.3f) %s", score, docs[i].URLOrSource()))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// describeReranked renders "(4.210) url" entries for logs.
func describeReranked(results []domain.RerankResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("(%.3f) %s", r.Score, r.Document.URLOrSource()))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
