package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockTool is a mock implementation of driving.Tool.
type mockTool struct {
	name    string
	text    string
	err     error
	queries []string
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "searches " + m.name }

func (m *mockTool) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"query": {Type: "string"}},
		Required:   []string{"query"},
	}
}

func (m *mockTool) Execute(_ context.Context, query string) (string, error) {
	m.queries = append(m.queries, query)
	return m.text, m.err
}

// mockCatalog is a mock implementation of driving.ToolCatalog.
type mockCatalog struct {
	tools []driving.Tool
	err   error
}

func (m *mockCatalog) Catalog(_ *zap.Logger, _ *domain.Parameters) ([]driving.Tool, error) {
	return m.tools, m.err
}

// mockRetrieval is a mock implementation of driving.RetrievalService.
type mockRetrieval struct {
	result *domain.SearchResult
	err    error
	opts   domain.SearchOptions
}

func (m *mockRetrieval) Search(
	_ context.Context,
	_ *zap.Logger,
	_ string,
	opts domain.SearchOptions,
) (*domain.SearchResult, error) {
	m.opts = opts
	return m.result, m.err
}

// mockIngestion is a mock implementation of driving.IngestionService.
type mockIngestion struct {
	types []string
}

func (m *mockIngestion) IngestType(context.Context, *zap.Logger, string) (*domain.IngestReport, error) {
	return nil, nil
}

func (m *mockIngestion) IngestRecord(context.Context, *zap.Logger, domain.SourceRecord) (*domain.IngestReport, error) {
	return nil, nil
}

func (m *mockIngestion) IngestEverything(context.Context, *zap.Logger) ([]*domain.IngestReport, error) {
	return nil, nil
}

func (m *mockIngestion) Types() []string { return m.types }

func testParams() *domain.Parameters {
	return domain.NewParameters(map[string]any{})
}

func testPorts(tools ...driving.Tool) *Ports {
	return &Ports{
		Tools:  &mockCatalog{tools: tools},
		Params: testParams(),
	}
}
