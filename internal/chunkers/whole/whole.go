// Package whole provides a chunker that keeps each source as a single chunk.
package whole

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// DefaultMaxSize is the default upper bound in characters.
const DefaultMaxSize = 10000

// Chunker emits the whole document text, or nothing when it is too long.
type Chunker struct {
	maxSize int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxSize sets the maximum document size in characters.
func WithMaxSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// New creates a whole-document chunker.
func New(opts ...Option) *Chunker {
	c := &Chunker{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "whole"
}

// Chunk returns one chunk holding the document text.
func (c *Chunker) Chunk(log *zap.Logger, doc *domain.Document) []domain.Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}
	if n := utf8.RuneCountInString(doc.Text); n > c.maxSize {
		log.Warn("document is too long",
			zap.String("url", doc.URLOrSource()),
			zap.Int("size", n),
			zap.Int("max", c.maxSize))
		return nil
	}
	return []domain.Chunk{{Text: doc.Text}}
}
