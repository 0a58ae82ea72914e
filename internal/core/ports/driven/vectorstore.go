package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorStore persists chunk documents and answers similarity searches.
// Stores embed document text themselves using their EmbeddingService.
type VectorStore interface {
	// Add embeds and stores documents in one batch.
	Add(ctx context.Context, docs []domain.Document) error

	// SimilaritySearch returns up to TopK documents of the filtered type
	// whose similarity is at least SimilarityThreshold, best first.
	// Returned documents carry Score.
	SimilaritySearch(ctx context.Context, req domain.SearchRequest) ([]domain.Document, error)

	// DeleteByFilter removes every document matching the filter.
	DeleteByFilter(ctx context.Context, filter domain.Filter) error

	// LoadByFilter returns the bookkeeping records matching the filter.
	LoadByFilter(ctx context.Context, filter domain.Filter) ([]domain.SourceRecord, error)

	// Close releases resources.
	Close() error
}

// Replacer is implemented by stores that can delete and add in one transaction.
// Ingestion prefers it so a source never ends up with mixed-version chunks.
type Replacer interface {
	// Replace deletes everything matching the filters, then adds docs, atomically.
	Replace(ctx context.Context, deletes []domain.Filter, docs []domain.Document) error
}
