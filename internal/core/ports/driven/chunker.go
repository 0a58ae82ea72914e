package driven

import (
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Chunker splits a loaded source into chunks.
// Chunkers never return empty chunks; oversized material is skipped and logged.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits the document text.
	Chunk(log *zap.Logger, doc *domain.Document) []domain.Chunk
}
