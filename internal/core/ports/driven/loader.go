package driven

import (
	"context"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SourceLoader yields source identifiers for one knowledge domain and loads them.
// Each loader kind (web crawl, git tree, REST catalog) implements this interface.
type SourceLoader interface {
	// Type returns the knowledge domain this loader feeds.
	Type() string

	// Prepare refreshes local state before a run (e.g. git pull).
	// Failures are transient; callers log them and continue.
	Prepare(ctx context.Context, log *zap.Logger) error

	// List returns the opaque source identifiers, in a stable order.
	List(ctx context.Context, log *zap.Logger) ([]string, error)

	// Load fetches one source. The returned document carries Text and
	// base metadata (e.g. url). Returns domain.ErrNotFound if the source is gone.
	Load(ctx context.Context, log *zap.Logger, id string) (*domain.Document, error)
}
