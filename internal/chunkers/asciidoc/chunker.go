// Package asciidoc chunks AsciiDoc training material.
//
// Parse turns the source into typed blocks tagged with their section path,
// and the Grouper joins consecutive same-section blocks into chunks between
// minChars and maxChars characters long.
package asciidoc

import (
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Default bounds in characters.
const (
	DefaultMaxChars = 10000
	DefaultMinChars = 300
)

// Chunker implements driven.Chunker for AsciiDoc sources.
type Chunker struct {
	maxChars int
	minChars int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChars sets the upper bound of a chunk body.
func WithMaxChars(n int) Option {
	return func(c *Chunker) { c.maxChars = n }
}

// WithMinChars sets the lower bound of a chunk body.
func WithMinChars(n int) Option {
	return func(c *Chunker) { c.minChars = n }
}

// New creates an AsciiDoc chunker.
func New(opts ...Option) *Chunker {
	c := &Chunker{maxChars: DefaultMaxChars, minChars: DefaultMinChars}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "asciidoc"
}

// Chunk parses doc.Text and returns "# <section path>\n\n<body>" chunks.
func (c *Chunker) Chunk(log *zap.Logger, doc *domain.Document) []domain.Chunk {
	blocks := Parse(doc.Text)
	groups := NewGrouper(c.maxChars, c.minChars).Group(log.With(zap.String("source", doc.Source())), blocks)

	chunks := make([]domain.Chunk, 0, len(groups))
	for _, g := range groups {
		chunks = append(chunks, domain.Chunk{Text: "# " + g.SectionPath + "\n\n" + g.Text})
	}
	return chunks
}
