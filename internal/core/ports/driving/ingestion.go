package driving

import (
	"context"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestionService feeds sources into the vector store.
type IngestionService interface {
	// IngestType updates all sources of one type.
	IngestType(ctx context.Context, log *zap.Logger, typ string) (*domain.IngestReport, error)

	// IngestRecord re-ingests the single source behind a stored record.
	IngestRecord(ctx context.Context, log *zap.Logger, record domain.SourceRecord) (*domain.IngestReport, error)

	// IngestEverything updates all types. Types run concurrently.
	// A failing type does not stop the others; its error is joined into the result.
	IngestEverything(ctx context.Context, log *zap.Logger) ([]*domain.IngestReport, error)

	// Types returns the registered types in a stable order.
	Types() []string
}
