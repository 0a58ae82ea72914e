package driving

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Tool is one callable knowledge domain.
// Tools are listed by a static registry and exposed over MCP.
type Tool interface {
	// Name is the identifier a model uses to call the tool.
	Name() string

	// Description tells a model when the tool is useful.
	Description() string

	// InputSchema describes the Execute arguments.
	InputSchema() *jsonschema.Schema

	// Execute runs the domain search and returns the passages as text.
	// When nothing is found it returns the configured no-results message.
	Execute(ctx context.Context, query string) (string, error)
}

// ToolInput is the argument object every retrieval tool accepts.
type ToolInput struct {
	Query string `json:"query" jsonschema:"the search query, phrased as a standalone question or keywords"`
}

// ToolCatalog lists the tools enabled by a parameters document.
type ToolCatalog interface {
	// Catalog returns the enabled tools bound to log.
	Catalog(log *zap.Logger, params *domain.Parameters) ([]Tool, error)
}
