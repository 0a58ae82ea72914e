package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService fans a query out to every selected domain tool and
// merges the results into one ranked list.
type RetrievalService struct {
	registry *ToolRegistry
	defaults *domain.Parameters
}

// NewRetrievalService creates a retrieval service. defaults are used when a
// request does not carry its own parameters.
func NewRetrievalService(registry *ToolRegistry, defaults *domain.Parameters) *RetrievalService {
	return &RetrievalService{registry: registry, defaults: defaults}
}

// Registry returns the tool registry used by the service.
func (s *RetrievalService) Registry() *ToolRegistry {
	return s.registry
}

// Search runs all selected tools concurrently. A failing domain is logged
// and contributes nothing.
//
//nolint:gocognit // fan-out with per-domain error isolation
func (s *RetrievalService) Search(
	ctx context.Context,
	log *zap.Logger,
	query string,
	opts domain.SearchOptions,
) (*domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	log, trace := logger.WithTrace(log)

	params := opts.Params
	if params == nil {
		params = s.defaults
	}
	if params == nil {
		return nil, fmt.Errorf("%w: no retrieval parameters", domain.ErrConfig)
	}

	// 1. BUILD TOOLS
	tools, err := s.registry.Tools(log, params, nil)
	if err != nil {
		return nil, err
	}
	tools, err = selectTools(tools, opts.Domains)
	if err != nil {
		return nil, err
	}
	if len(tools) == 0 {
		log.Warn("no enabled tools for the request")
		return &domain.SearchResult{Trace: trace.Lines()}, nil
	}

	// 2. FAN OUT
	results := make([][]domain.Document, len(tools))
	errs := make([]error, len(tools))

	var g errgroup.Group
	for idx, tool := range tools {
		g.Go(func() error {
			docs, err := tool.Retrieve(ctx, query)
			if err != nil {
				log.Warn("domain search failed", zap.String("tool", tool.Name()), zap.Error(err))
				errs[idx] = fmt.Errorf("%s: %w", tool.Name(), err)
				return nil
			}
			results[idx] = docs
			return nil
		})
	}
	_ = g.Wait()

	// 3. MERGE
	var all []domain.Document
	failed := 0
	for idx := range tools {
		if errs[idx] != nil {
			failed++
			continue
		}
		all = append(all, results[idx]...)
	}
	if failed == len(tools) {
		log.Error("every domain search failed", zap.Error(errors.Join(errs...)))
	}

	merged := MergeResults(all)
	log.Info(fmt.Sprintf("retrieved documents (%d): %s", len(merged), describeDocs(merged)))

	return &domain.SearchResult{Documents: merged, Trace: trace.Lines()}, nil
}

// selectTools keeps tools whose name or type is listed in domains.
// No domains selects every tool.
func selectTools(tools []*RagTool, domains []string) ([]*RagTool, error) {
	if len(domains) == 0 {
		return tools, nil
	}

	var out []*RagTool
	for _, d := range domains {
		found := false
		for _, t := range tools {
			if t.Name() == d || t.Type() == d {
				if !containsTool(out, t) {
					out = append(out, t)
				}
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownType, d)
		}
	}

	// Keep registry order so that concatenation before merge is deterministic.
	ordered := make([]*RagTool, 0, len(out))
	for _, t := range tools {
		if containsTool(out, t) {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

func containsTool(tools []*RagTool, t *RagTool) bool {
	for _, x := range tools {
		if x == t {
			return true
		}
	}
	return false
}
