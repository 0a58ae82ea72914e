package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure RagTool and ToolRegistry implement the interfaces.
var (
	_ driving.Tool        = (*RagTool)(nil)
	_ driving.ToolCatalog = (*ToolRegistry)(nil)
)

// DocumentFilter drops documents that are irrelevant to a query.
type DocumentFilter interface {
	Apply(log *zap.Logger, query string, docs []domain.Document) []domain.Document
}

// FilterFactory builds the document filter declared by a parameters document.
type FilterFactory func(params *domain.Parameters) (DocumentFilter, error)

// ToolDefinition is a static registry entry.
type ToolDefinition struct {
	// Name is the tool identifier and the parameters key under "tools.".
	Name string

	// Type is the knowledge domain searched by the tool.
	Type string

	// Description is used when parameters do not override it.
	Description string
}

// DefaultTools lists the available knowledge domains.
var DefaultTools = []ToolDefinition{
	{
		Name:        "documentation_retriever",
		Type:        "docs",
		Description: "Searches the reference documentation. Use for questions about features, APIs and configuration.",
	},
	{
		Name:        "uisamples_retriever",
		Type:        "uisamples",
		Description: "Searches runnable UI samples. Use when the user needs example code for a UI component.",
	},
	{
		Name:        "trainings_retriever",
		Type:        "trainings",
		Description: "Searches training course material. Use for step-by-step explanations and tutorials.",
	},
}

// ToolRegistry builds the retrieval tools for a parameters document.
type ToolRegistry struct {
	defs      []ToolDefinition
	retriever *Retriever
	reranker  driven.Reranker
	filters   FilterFactory
	metrics   driven.Metrics
}

// NewToolRegistry creates a registry. reranker, filters and metrics are optional.
// With no definitions the DefaultTools are used.
func NewToolRegistry(
	retriever *Retriever,
	reranker driven.Reranker,
	filters FilterFactory,
	metrics driven.Metrics,
	defs ...ToolDefinition,
) *ToolRegistry {
	if len(defs) == 0 {
		defs = DefaultTools
	}
	return &ToolRegistry{
		defs:      defs,
		retriever: retriever,
		reranker:  reranker,
		filters:   filters,
		metrics:   metrics,
	}
}

// Definitions returns the static tool list.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	out := make([]ToolDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Validate checks that params configure every tool and the rule filter.
func (r *ToolRegistry) Validate(params *domain.Parameters) error {
	_, err := r.Tools(logger.Nop(), params, nil)
	return err
}

// Tools returns the enabled tools configured by params, bound to log.
// Retrieved documents are recorded into collector when it is non-nil.
func (r *ToolRegistry) Tools(log *zap.Logger, params *domain.Parameters, collector *Collector) ([]*RagTool, error) {
	log = logger.OrNop(log)

	var filter DocumentFilter
	if r.filters != nil {
		f, err := r.filters(params)
		if err != nil {
			return nil, fmt.Errorf("build rule filter: %w", err)
		}
		filter = f
	}

	var tools []*RagTool
	for _, def := range r.defs {
		settings, err := params.ToolSettings(def.Name, def.Type)
		if err != nil {
			return nil, err
		}
		if !settings.Enabled {
			continue
		}
		if settings.Description == "" {
			settings.Description = def.Description
		}
		tools = append(tools, &RagTool{
			settings:  settings,
			retriever: r.retriever,
			filter:    filter,
			reranker:  r.reranker,
			metrics:   r.metrics,
			collector: collector,
			log:       log.With(zap.String("tool", settings.Name)),
		})
	}
	return tools, nil
}

// Catalog returns the enabled tools as driving ports.
func (r *ToolRegistry) Catalog(log *zap.Logger, params *domain.Parameters) ([]driving.Tool, error) {
	tools, err := r.Tools(log, params, nil)
	if err != nil {
		return nil, err
	}
	out := make([]driving.Tool, len(tools))
	for i, t := range tools {
		out[i] = t
	}
	return out, nil
}

// RagTool runs one domain's retrieval pipeline:
// similarity search -> rule filter -> reranker -> cap.
type RagTool struct {
	settings  domain.ToolSettings
	retriever *Retriever
	filter    DocumentFilter
	reranker  driven.Reranker
	metrics   driven.Metrics
	collector *Collector
	log       *zap.Logger
}

// Name returns the tool identifier.
func (t *RagTool) Name() string { return t.settings.Name }

// Type returns the knowledge domain searched by the tool.
func (t *RagTool) Type() string { return t.settings.Type }

// Description tells a model when the tool is useful.
func (t *RagTool) Description() string { return t.settings.Description }

// Settings returns the parameters the tool runs with.
func (t *RagTool) Settings() domain.ToolSettings { return t.settings }

// InputSchema describes the single query argument.
func (t *RagTool) InputSchema() *jsonschema.Schema {
	schema, err := jsonschema.For[driving.ToolInput](nil)
	if err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	return schema
}

// Execute runs the retrieval pipeline and returns the passages as text.
func (t *RagTool) Execute(ctx context.Context, query string) (string, error) {
	docs, err := t.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return t.settings.NoResultsMessage, nil
	}
	if t.collector != nil {
		t.collector.Add(t.settings.Name, docs)
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text
	}
	return strings.Join(texts, "\n\n"), nil
}

// Retrieve returns the ranked documents for query. An empty result is not an error.
func (t *RagTool) Retrieve(ctx context.Context, query string) ([]domain.Document, error) {
	start := time.Now()
	s := t.settings
	log := t.log

	log.Info(fmt.Sprintf(">>> Using %s", s.Name),
		zap.Float64("threshold", s.SimilarityThreshold),
		zap.Int("topK", s.TopK),
		zap.Float64("minScore", s.MinScore),
		zap.String("query", query))

	// 1. SIMILARITY SEARCH
	docs, err := t.retriever.Retrieve(ctx, log, s.Type, query, s.SimilarityThreshold, s.TopK)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		log.Info("no documents found for the query")
		t.observe(0, start)
		return nil, nil
	}
	log.Info(fmt.Sprintf("found documents (%d): %s", len(docs), describeDocs(docs)))

	// 2. RULE FILTER
	if t.filter != nil {
		docs = t.filter.Apply(log, query, docs)
		if len(docs) == 0 {
			log.Info("all documents filtered out by rules")
			t.observe(0, start)
			return nil, nil
		}
	}

	// 3. RERANK, OR FALL BACK TO SIMILARITY SCORE
	out := t.rerank(ctx, log, query, docs)

	// 4. PER-DOMAIN CAP
	if s.TopReranked > 0 && len(out) > s.TopReranked {
		out = out[:s.TopReranked]
	}

	t.observe(len(out), start)
	return out, nil
}

func (t *RagTool) rerank(ctx context.Context, log *zap.Logger, query string, docs []domain.Document) []domain.Document {
	s := t.settings

	var results []domain.RerankResult
	err := domain.ErrRerankUnavailable
	if t.reranker != nil {
		results, err = t.reranker.Rerank(ctx, log, query, docs, s.TopReranked)
	}

	if err != nil {
		if t.reranker != nil {
			log.Warn("reranking failed, filtering by minScore", zap.Error(err))
			if t.metrics != nil {
				t.metrics.RerankFailed(s.Name)
			}
		} else {
			log.Debug("no reranker configured, filtering by minScore")
		}

		var out []domain.Document
		for _, d := range docs {
			if s.MinScore <= 0 || d.Score == nil || *d.Score >= s.MinScore {
				out = append(out, d)
			}
		}
		log.Info(fmt.Sprintf("filtered documents (%d): %s", len(out), describeDocs(out)))
		return out
	}

	var kept []domain.RerankResult
	for _, r := range results {
		if r.Document != nil && r.Score >= s.MinRerankedScore {
			kept = append(kept, r)
		}
	}
	log.Info(fmt.Sprintf("reranked documents (%d): %s", len(kept), describeReranked(kept)))

	out := make([]domain.Document, 0, len(kept))
	for _, r := range kept {
		d := *r.Document
		d.Metadata = r.Document.Metadata.Clone()
		d.SetRerankScore(r.Score)
		out = append(out, d)
	}
	return out
}

func (t *RagTool) observe(n int, start time.Time) {
	if t.metrics != nil {
		t.metrics.SearchCompleted(t.settings.Name, n, time.Since(start))
	}
}

// Collector records the documents returned by each tool during one request.
type Collector struct {
	mu     sync.Mutex
	byTool map[string][]domain.Document
	order  []string
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{byTool: make(map[string][]domain.Document)}
}

// Add records docs returned by a tool.
func (c *Collector) Add(tool string, docs []domain.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byTool[tool]; !ok {
		c.order = append(c.order, tool)
	}
	c.byTool[tool] = append(c.byTool[tool], docs...)
}

// Documents returns the recorded documents, grouped by tool in first-call order.
func (c *Collector) Documents() []domain.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Document
	for _, tool := range c.order {
		out = append(out, c.byTool[tool]...)
	}
	return out
}

// Merged returns the recorded documents ranked and deduplicated.
func (c *Collector) Merged() []domain.Document {
	return MergeResults(c.Documents())
}
