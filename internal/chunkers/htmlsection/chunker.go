// Package htmlsection splits Antora-style HTML pages into section chunks.
//
// A page is an article.doc element with an h1 title, an optional
// div#preamble and div.sect1 sections holding div.sect2 subsections.
// Every chunk starts with a "# " breadcrumb line built from the titles.
package htmlsection

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Defaults for the size bounds, in characters.
const (
	DefaultMaxChunkSize           = 20000
	DefaultMinDocPreambleSize     = 400
	DefaultMinSectionPreambleSize = 300
)

// Chunker splits HTML pages by sect1 and, for oversized sections, sect2.
type Chunker struct {
	maxChunkSize           int
	minDocPreambleSize     int
	minSectionPreambleSize int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChunkSize sets the largest section emitted as one chunk.
func WithMaxChunkSize(n int) Option {
	return func(c *Chunker) { c.maxChunkSize = n }
}

// WithMinDocPreambleSize sets the smallest page preamble worth a chunk.
func WithMinDocPreambleSize(n int) Option {
	return func(c *Chunker) { c.minDocPreambleSize = n }
}

// WithMinSectionPreambleSize sets the smallest sect1 preamble worth a chunk.
func WithMinSectionPreambleSize(n int) Option {
	return func(c *Chunker) { c.minSectionPreambleSize = n }
}

// New creates an HTML section chunker.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChunkSize:           DefaultMaxChunkSize,
		minDocPreambleSize:     DefaultMinDocPreambleSize,
		minSectionPreambleSize: DefaultMinSectionPreambleSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "htmlsection"
}

// Chunk splits doc.Text, which must be an HTML page.
//
//nolint:gocognit // mirrors the two-level section structure
func (c *Chunker) Chunk(log *zap.Logger, doc *domain.Document) []domain.Chunk {
	root, err := html.Parse(strings.NewReader(doc.Text))
	if err != nil {
		log.Warn("failed to parse HTML", zap.String("source", doc.Source()), zap.Error(err))
		return nil
	}

	article := first(root, tagClass(atom.Article, "doc"))
	if article == nil {
		log.Warn("no article element found", zap.String("source", doc.Source()))
		return nil
	}
	titleEl := first(article, tag(atom.H1))
	if titleEl == nil {
		log.Warn("no document title found", zap.String("source", doc.Source()))
		return nil
	}
	docTitle := text(titleEl)
	detach(titleEl)

	var chunks []domain.Chunk
	emit := func(body, anchor string, titles ...string) {
		if body == "" {
			return
		}
		chunks = append(chunks, domain.Chunk{
			Text:   "# " + ChunkTitle(titles...) + "\n" + body,
			Anchor: anchor,
		})
	}

	// 1. SMALL PAGE
	body := text(article)
	if size(body) < c.maxChunkSize {
		if size(body) >= c.minDocPreambleSize {
			emit(body, "", docTitle)
		} else {
			log.Debug(fmt.Sprintf("skipping doc '%s' because it is too short", docTitle))
		}
		return chunks
	}

	sections := all(article, tagClass(atom.Div, "sect1"))
	if len(sections) == 0 {
		log.Warn(fmt.Sprintf("skipping doc '%s': too long and has no sections", docTitle),
			zap.Int("size", size(body)))
		return nil
	}

	// 2. PAGE PREAMBLE
	if preamble := first(article, tagID(atom.Div, "preamble")); preamble != nil {
		pre := text(preamble)
		switch {
		case size(pre) > c.maxChunkSize:
			log.Warn(fmt.Sprintf("skipping doc '%s' preamble because it is too long", docTitle),
				zap.Int("size", size(pre)))
		case size(pre) >= c.minDocPreambleSize:
			emit(pre, "", docTitle)
		default:
			log.Debug(fmt.Sprintf("skipping doc '%s' preamble because it is too short", docTitle))
		}
	}

	// 3. SECTIONS
	for _, s1 := range sections {
		h2 := first(s1, tag(atom.H2))
		if h2 == nil {
			log.Warn(fmt.Sprintf("skipping doc '%s' sect1 because it has no title", docTitle))
			continue
		}
		s1Title := text(h2)
		s1Anchor := anchor(h2)
		detach(h2)

		s1Text := text(s1)
		if size(s1Text) <= c.maxChunkSize {
			emit(s1Text, s1Anchor, docTitle, s1Title)
			continue
		}

		// 4. OVERSIZED SECTION
		content := first(s1, tagClass(atom.Div, "sectionbody"))
		if content == nil {
			content = s1
		}
		var preambleNodes []*html.Node
		for _, child := range elementChildren(content) {
			if !(child.DataAtom == atom.Div && hasClass(child, "sect2")) {
				preambleNodes = append(preambleNodes, child)
			}
		}
		switch pre := text(preambleNodes...); {
		case size(pre) > c.maxChunkSize:
			log.Warn(fmt.Sprintf("skipping chunk '%s' preamble because it is too long",
				ChunkTitle(docTitle, s1Title)), zap.Int("size", size(pre)))
		case size(pre) >= c.minSectionPreambleSize:
			emit(pre, s1Anchor, docTitle, s1Title)
		}

		for _, s2 := range all(content, tagClass(atom.Div, "sect2")) {
			h3 := first(s2, tag(atom.H3))
			if h3 == nil {
				log.Warn(fmt.Sprintf("skipping doc '%s' sect2 in '%s' because it has no title", docTitle, s1Title))
				continue
			}
			s2Title := text(h3)
			s2Anchor := anchor(h3)
			detach(h3)

			s2Text := text(s2)
			if size(s2Text) > c.maxChunkSize {
				log.Warn(fmt.Sprintf("skipping chunk '%s' because it is too long",
					ChunkTitle(docTitle, s1Title, s2Title)), zap.Int("size", size(s2Text)))
				continue
			}
			emit(s2Text, s2Anchor, docTitle, s1Title, s2Title)
		}
	}
	return chunks
}

// ChunkTitle joins titles with ". ". No period is added after a title that
// already ends in ".", "?" or "!". Blank titles are skipped.
func ChunkTitle(titles ...string) string {
	var sb strings.Builder
	prev := ""
	for _, t := range titles {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if sb.Len() > 0 {
			if !strings.HasSuffix(prev, ".") && !strings.HasSuffix(prev, "?") && !strings.HasSuffix(prev, "!") {
				sb.WriteByte('.')
			}
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
		prev = t
	}
	return sb.String()
}

func anchor(heading *html.Node) string {
	if a := first(heading, tagClass(atom.A, "anchor")); a != nil {
		return attr(a, "href")
	}
	return ""
}

func size(s string) int {
	return utf8.RuneCountInString(s)
}
