// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It exposes every enabled retrieval tool to AI assistants, plus a merged
// cross-domain search tool.
package mcp

import "errors"

// ErrMissingToolCatalog is returned when the tool catalog is not provided.
var ErrMissingToolCatalog = errors.New("mcp: tool catalog is required")

// ErrMissingParameters is returned when no retrieval parameters are provided.
var ErrMissingParameters = errors.New("mcp: retrieval parameters are required")
