// Package chunkers builds the chunker configured for each knowledge domain.
package chunkers

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// BuilderFunc creates a Chunker from a source's settings.
type BuilderFunc func(cfg domain.SourceSettings) (driven.Chunker, error)

// Registry maps chunker kinds to their builders.
type Registry struct {
	builders map[domain.ChunkerKind]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[domain.ChunkerKind]BuilderFunc),
	}
}

// Register adds a builder. A later registration for the same kind replaces it.
func (r *Registry) Register(kind domain.ChunkerKind, builder BuilderFunc) {
	r.builders[kind] = builder
}

// Build creates the chunker named by cfg.Chunker.
func (r *Registry) Build(cfg domain.SourceSettings) (driven.Chunker, error) {
	builder, ok := r.builders[cfg.Chunker]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chunker %q for %s", domain.ErrConfig, cfg.Chunker, cfg.Type)
	}
	return builder(cfg)
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind domain.ChunkerKind) bool {
	_, ok := r.builders[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []domain.ChunkerKind {
	kinds := make([]domain.ChunkerKind, 0, len(r.builders))
	for k := range r.builders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
