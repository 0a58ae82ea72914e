package chunkers

import (
	"github.com/custodia-labs/sercha-rag/internal/chunkers/asciidoc"
	"github.com/custodia-labs/sercha-rag/internal/chunkers/htmlsection"
	"github.com/custodia-labs/sercha-rag/internal/chunkers/whole"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// RegisterDefaults registers the built-in chunkers.
func RegisterDefaults(r *Registry) {
	r.Register(domain.ChunkerHTML, buildHTML)
	r.Register(domain.ChunkerAsciiDoc, buildAsciiDoc)
	r.Register(domain.ChunkerWhole, buildWhole)
}

// DefaultRegistry returns a registry with the built-in chunkers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

func buildHTML(cfg domain.SourceSettings) (driven.Chunker, error) {
	var opts []htmlsection.Option
	if cfg.MaxChunkSize > 0 {
		opts = append(opts, htmlsection.WithMaxChunkSize(cfg.MaxChunkSize))
	}
	if cfg.MinDocPreambleSize > 0 {
		opts = append(opts, htmlsection.WithMinDocPreambleSize(cfg.MinDocPreambleSize))
	}
	if cfg.MinSectionPreambleSize > 0 {
		opts = append(opts, htmlsection.WithMinSectionPreambleSize(cfg.MinSectionPreambleSize))
	}
	return htmlsection.New(opts...), nil
}

func buildAsciiDoc(cfg domain.SourceSettings) (driven.Chunker, error) {
	var opts []asciidoc.Option
	if cfg.MaxChunkSize > 0 {
		opts = append(opts, asciidoc.WithMaxChars(cfg.MaxChunkSize))
	}
	if cfg.MinChunkSize > 0 {
		opts = append(opts, asciidoc.WithMinChars(cfg.MinChunkSize))
	}
	return asciidoc.New(opts...), nil
}

func buildWhole(cfg domain.SourceSettings) (driven.Chunker, error) {
	var opts []whole.Option
	if cfg.MaxChunkSize > 0 {
		opts = append(opts, whole.WithMaxSize(cfg.MaxChunkSize))
	}
	return whole.New(opts...), nil
}
