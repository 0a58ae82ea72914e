package asciidoc

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const blockSeparator = "\n\n"

// Group is a run of same-section blocks joined into one chunk body.
type Group struct {
	Text        string
	SectionPath string
}

// Grouper greedily joins consecutive blocks into groups of at most maxChars.
type Grouper struct {
	maxChars int
	minChars int
}

// NewGrouper creates a grouper bounded by [minChars, maxChars].
func NewGrouper(maxChars, minChars int) *Grouper {
	return &Grouper{maxChars: maxChars, minChars: minChars}
}

// Group joins blocks. The buffer is flushed when the section changes or the
// next block would overflow maxChars; a flushed buffer shorter than minChars
// is dropped. A single block longer than maxChars is skipped with a warning.
func (g *Grouper) Group(log *zap.Logger, blocks []Block) []Group {
	var (
		out     []Group
		buf     strings.Builder
		bufLen  int
		section string
		started bool
	)

	flush := func() {
		if bufLen > 0 {
			text := strings.TrimSpace(buf.String())
			if utf8.RuneCountInString(text) >= g.minChars {
				out = append(out, Group{Text: text, SectionPath: section})
			} else {
				log.Debug("dropping short fragment", zap.String("section", section), zap.Int("size", bufLen))
			}
		}
		buf.Reset()
		bufLen = 0
	}

	for _, b := range blocks {
		n := utf8.RuneCountInString(b.Text)
		if n > g.maxChars {
			log.Warn("skipping block larger than the chunk limit",
				zap.String("section", b.SectionPath),
				zap.String("type", b.Type.String()),
				zap.Int("size", n))
			continue
		}

		if !started {
			section = b.SectionPath
			started = true
		}
		next := n
		if bufLen > 0 {
			next += len(blockSeparator)
		}
		if b.SectionPath != section || bufLen+next > g.maxChars {
			flush()
			section = b.SectionPath
		}

		if bufLen > 0 {
			buf.WriteString(blockSeparator)
			bufLen += len(blockSeparator)
		}
		buf.WriteString(b.Text)
		bufLen += n
	}
	flush()
	return out
}
