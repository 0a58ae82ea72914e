package mcp

import (
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports and settings required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Tools lists the retrieval tools to expose.
	Tools driving.ToolCatalog

	// Params configures the exposed tools.
	Params *domain.Parameters

	// Retrieval backs the merged "search" tool. Optional.
	Retrieval driving.RetrievalService

	// Ingestion lists the knowledge domains for the types resource. Optional.
	Ingestion driving.IngestionService

	// Log receives tool pipeline logs. Defaults to a no-op logger.
	Log *zap.Logger
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Tools == nil {
		return ErrMissingToolCatalog
	}
	if p.Params == nil {
		return ErrMissingParameters
	}
	return nil
}
