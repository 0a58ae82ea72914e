package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// searchToolName is the merged cross-domain tool. Registry tools keep their own names.
const searchToolName = "search"

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query   string   `json:"query" jsonschema:"the search query to find documents"`
	Domains []string `json:"domains,omitempty" jsonschema:"tool names or domain types to search (default all)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single merged search result.
type SearchResultOutput struct {
	DocumentID  string   `json:"document_id"`
	Type        string   `json:"type"`
	URL         string   `json:"url"`
	Score       float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
	Content     string   `json:"content"`
}

// registerTools registers one handler per enabled retrieval tool, then the
// merged search tool when a retrieval service is available.
func (s *Server) registerTools() error {
	tools, err := s.ports.Tools.Catalog(s.ports.Log, s.ports.Params)
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}

	for _, tool := range tools {
		if tool.Name() == searchToolName {
			return fmt.Errorf("%w: tool name %q is reserved", domain.ErrConfig, searchToolName)
		}
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		}, s.toolHandler(tool))
		s.tools = append(s.tools, tool.Name())
	}

	if s.ports.Retrieval != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        searchToolName,
			Description: "Search every knowledge domain and return the merged, reranked documents",
		}, s.handleSearch)
		s.tools = append(s.tools, searchToolName)
	}
	return nil
}

// toolHandler adapts a retrieval tool to an MCP handler returning plain text.
func (s *Server) toolHandler(
	tool driving.Tool,
) func(context.Context, *mcp.CallToolRequest, driving.ToolInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input driving.ToolInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
		}

		text, err := tool.Execute(ctx, input.Query)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", tool.Name(), err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{Domains: input.Domains, Params: s.ports.Params}
	result, err := s.ports.Retrieval.Search(ctx, s.ports.Log, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(result.Documents)),
		Count:   len(result.Documents),
	}

	for i := range result.Documents {
		doc := &result.Documents[i]
		out := SearchResultOutput{
			DocumentID: doc.ID,
			Type:       doc.Type(),
			URL:        doc.URLOrSource(),
			Content:    doc.Text,
		}
		if doc.Score != nil {
			out.Score = *doc.Score
		}
		if rr, ok := doc.RerankScore(); ok {
			out.RerankScore = &rr
		}
		output.Results[i] = out
	}

	return nil, output, nil
}
