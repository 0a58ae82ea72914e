package htmlsection

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func words(w string, n int) string {
	return strings.TrimSpace(strings.Repeat(w+" ", n))
}

func page(body string) *domain.Document {
	return &domain.Document{
		Text: `<html><body><nav>menu</nav><article class="doc"><h1 class="page">Guide</h1>` +
			body + `</article></body></html>`,
		Metadata: domain.Metadata{domain.MetaSource: "guide.html"},
	}
}

func sect1(anchor, title, body string) string {
	return `<div class="sect1"><h2 id="` + anchor + `"><a class="anchor" href="#` + anchor + `"></a>` +
		title + `</h2><div class="sectionbody">` + body + `</div></div>`
}

func sect2(anchor, title, body string) string {
	return `<div class="sect2"><h3 id="` + anchor + `"><a class="anchor" href="#` + anchor + `"></a>` +
		title + `</h3>` + body + `</div>`
}

func TestChunk_SmallPageIsOneChunk(t *testing.T) {
	c := New(WithMaxChunkSize(200), WithMinDocPreambleSize(10))
	doc := page(`<div class="paragraph"><p>` + words("hello", 5) + `</p></div>`)

	chunks := c.Chunk(zap.NewNop(), doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, "# Guide\nhello hello hello hello hello", chunks[0].Text)
	assert.Empty(t, chunks[0].Anchor)
}

func TestChunk_SmallPageBelowMinimumIsDropped(t *testing.T) {
	c := New(WithMaxChunkSize(200), WithMinDocPreambleSize(50))

	chunks := c.Chunk(zap.NewNop(), page(`<p>too short</p>`))

	assert.Empty(t, chunks)
}

func TestChunk_SplitsSections(t *testing.T) {
	c := New(WithMaxChunkSize(200), WithMinDocPreambleSize(20), WithMinSectionPreambleSize(20))
	doc := page(
		`<div id="preamble"><div class="sectionbody"><p>` + words("intro", 5) + `</p></div></div>` +
			sect1("_overview", "Overview", `<p>`+words("alpha", 10)+`</p>`) +
			sect1("_details", "Details",
				`<div class="paragraph"><p>`+words("beta", 10)+`</p></div>`+
					sect2("_small", "Small", `<p>`+words("gamma", 10)+`</p>`)+
					sect2("_huge", "Huge", `<p>`+words("delta", 50)+`</p>`)),
	)

	chunks := c.Chunk(zap.NewNop(), doc)

	require.Len(t, chunks, 4)
	assert.Equal(t, domain.Chunk{Text: "# Guide\n" + words("intro", 5)}, chunks[0])
	assert.Equal(t, domain.Chunk{Text: "# Guide. Overview\n" + words("alpha", 10), Anchor: "#_overview"}, chunks[1])
	assert.Equal(t, domain.Chunk{Text: "# Guide. Details\n" + words("beta", 10), Anchor: "#_details"}, chunks[2])
	assert.Equal(t, domain.Chunk{Text: "# Guide. Details. Small\n" + words("gamma", 10), Anchor: "#_small"}, chunks[3])
}

func TestChunk_ShortPreamblesAreSkipped(t *testing.T) {
	c := New(WithMaxChunkSize(100), WithMinDocPreambleSize(50), WithMinSectionPreambleSize(50))
	doc := page(
		`<div id="preamble"><p>short</p></div>` +
			sect1("_a", "A",
				`<p>tiny</p>`+
					sect2("_b", "B", `<p>`+words("omega", 15)+`</p>`)+
					sect2("_c", "C", `<p>`+words("sigma", 15)+`</p>`)),
	)

	chunks := c.Chunk(zap.NewNop(), doc)

	require.Len(t, chunks, 2)
	assert.Equal(t, "#_b", chunks[0].Anchor)
	assert.Equal(t, "#_c", chunks[1].Anchor)
}

func TestChunk_LargePageWithoutSectionsIsSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(WithMaxChunkSize(50))

	chunks := c.Chunk(zap.New(core), page(`<p>`+words("lorem", 30)+`</p>`))

	assert.Empty(t, chunks)
	assert.Equal(t, 1, logs.FilterMessageSnippet("no sections").Len())
}

func TestChunk_MissingArticleOrTitle(t *testing.T) {
	c := New()

	assert.Empty(t, c.Chunk(zap.NewNop(), &domain.Document{Text: `<html><body><p>x</p></body></html>`}))
	assert.Empty(t, c.Chunk(zap.NewNop(), &domain.Document{Text: `<article class="doc"><p>x</p></article>`}))
}

func TestChunk_SectionWithoutTitleIsSkipped(t *testing.T) {
	c := New(WithMaxChunkSize(60), WithMinDocPreambleSize(1000))
	doc := page(
		`<div class="sect1"><div class="sectionbody"><p>` + words("anon", 10) + `</p></div></div>` +
			sect1("_named", "Named", `<p>`+words("kept", 5)+`</p>`),
	)

	chunks := c.Chunk(zap.NewNop(), doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, "#_named", chunks[0].Anchor)
}

func TestChunk_OversizedPreamblesAreSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(WithMaxChunkSize(100), WithMinDocPreambleSize(10), WithMinSectionPreambleSize(10))
	doc := page(
		`<div id="preamble"><p>` + words("intro", 60) + `</p></div>` +
			sect1("_a", "A",
				`<p>`+words("lead", 40)+`</p>`+
					sect2("_b", "B", `<p>tiny text</p>`)),
	)

	chunks := c.Chunk(zap.New(core), doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, domain.Chunk{Text: "# Guide. A. B\ntiny text", Anchor: "#_b"}, chunks[0])
	assert.Equal(t, 2, logs.FilterMessageSnippet("too long").Len())
}

func TestChunk_BodiesRespectMaxSize(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxSize := rapid.IntRange(20, 150).Draw(rt, "max")
		c := New(WithMaxChunkSize(maxSize), WithMinDocPreambleSize(1), WithMinSectionPreambleSize(1))

		var sb strings.Builder
		if n := rapid.IntRange(0, 80).Draw(rt, "preamble"); n > 0 {
			sb.WriteString(`<div id="preamble"><p>` + words("p", n) + `</p></div>`)
		}
		for i := rapid.IntRange(1, 4).Draw(rt, "sections"); i > 0; i-- {
			var body strings.Builder
			if n := rapid.IntRange(0, 60).Draw(rt, "lead"); n > 0 {
				body.WriteString(`<p>` + words("l", n) + `</p>`)
			}
			for j := rapid.IntRange(0, 3).Draw(rt, "subsections"); j > 0; j-- {
				n := rapid.IntRange(1, 60).Draw(rt, "sub")
				body.WriteString(sect2("_s", "Sub", `<p>`+words("w", n)+`</p>`))
			}
			sb.WriteString(sect1("_p", "Part", body.String()))
		}

		for _, ch := range c.Chunk(zap.NewNop(), page(sb.String())) {
			_, body, ok := strings.Cut(ch.Text, "\n")
			require.True(rt, ok)
			assert.NotEmpty(rt, body)
			assert.LessOrEqual(rt, utf8.RuneCountInString(body), maxSize)
		}
	})
}

func TestChunkTitle(t *testing.T) {
	tests := []struct {
		name   string
		titles []string
		want   string
	}{
		{"single", []string{"Guide"}, "Guide"},
		{"joined", []string{"Guide", "Intro"}, "Guide. Intro"},
		{"question mark", []string{"What is it?", "Intro"}, "What is it? Intro"},
		{"exclamation", []string{"Go!", "Now"}, "Go! Now"},
		{"trailing period", []string{"Guide.", "Intro"}, "Guide. Intro"},
		{"blank skipped", []string{"Guide", " ", "Intro"}, "Guide. Intro"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkTitle(tt.titles...))
		})
	}
}
