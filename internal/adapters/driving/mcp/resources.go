package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for sercha-rag resources.
	uriScheme = "sercha-rag://"
)

// toolInfo describes one exposed tool.
type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "tools",
		Name:        "tools",
		Description: "Retrieval tools and when to use them",
		MIMEType:    "application/json",
	}, s.handleToolsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "types",
		Name:        "types",
		Description: "Knowledge domains fed by ingestion",
		MIMEType:    "application/json",
	}, s.handleTypesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "tools/{name}",
		Name:        "tool-description",
		Description: "Description of a single retrieval tool",
		MIMEType:    "text/plain",
	}, s.handleToolResource)
}

// handleToolsResource returns the enabled tools.
func (s *Server) handleToolsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	tools, err := s.ports.Tools.Catalog(s.ports.Log, s.ports.Params)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	infos := make([]toolInfo, len(tools))
	for i, t := range tools {
		infos[i] = toolInfo{Name: t.Name(), Description: t.Description()}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleTypesResource returns the ingested knowledge domains.
func (s *Server) handleTypesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	types := []string{}
	if s.ports.Ingestion != nil {
		types = s.ports.Ingestion.Types()
	}
	return jsonResource(req.Params.URI, types)
}

// handleToolResource returns the description of one tool.
func (s *Server) handleToolResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractToolName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	tools, err := s.ports.Tools.Catalog(s.ports.Log, s.ports.Params)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	for _, t := range tools {
		if t.Name() == name {
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{
					URI:      req.Params.URI,
					MIMEType: "text/plain",
					Text:     t.Description(),
				}},
			}, nil
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractToolName extracts the tool name from sercha-rag://tools/{name}.
func extractToolName(uri string) string {
	prefix := uriScheme + "tools/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	name := strings.TrimPrefix(uri, prefix)
	if name == "" || strings.Contains(name, "/") {
		return ""
	}
	return name
}
