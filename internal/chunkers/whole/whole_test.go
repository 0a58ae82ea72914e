package whole

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		assert.Equal(t, DefaultMaxSize, New().maxSize)
	})

	t.Run("custom max size", func(t *testing.T) {
		assert.Equal(t, 50, New(WithMaxSize(50)).maxSize)
	})

	t.Run("ignores non-positive max size", func(t *testing.T) {
		assert.Equal(t, DefaultMaxSize, New(WithMaxSize(0)).maxSize)
	})
}

func TestChunk_KeepsDocumentUpToMax(t *testing.T) {
	c := New(WithMaxSize(10))
	doc := &domain.Document{Text: "0123456789"}

	chunks := c.Chunk(zap.NewNop(), doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, "0123456789", chunks[0].Text)
	assert.Empty(t, chunks[0].Anchor)
}

func TestChunk_CountsCharactersNotBytes(t *testing.T) {
	c := New(WithMaxSize(4))

	chunks := c.Chunk(zap.NewNop(), &domain.Document{Text: "äöüß"})

	assert.Len(t, chunks, 1)
}

func TestChunk_SkipsOversizedWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(WithMaxSize(10))
	doc := &domain.Document{
		Text:     strings.Repeat("x", 11),
		Metadata: domain.Metadata{domain.MetaURL: "https://samples.example.com/s/1"},
	}

	chunks := c.Chunk(zap.New(core), doc)

	assert.Empty(t, chunks)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "https://samples.example.com/s/1", logs.All()[0].ContextMap()["url"])
}

func TestChunk_SkipsBlank(t *testing.T) {
	assert.Empty(t, New().Chunk(zap.NewNop(), &domain.Document{Text: " \n\t"}))
}
