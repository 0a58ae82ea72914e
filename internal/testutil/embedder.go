// Package testutil provides deterministic doubles shared by store and service tests.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Embedder is a bag-of-words embedding over a fixed vocabulary.
// Each dimension counts occurrences of one vocabulary word, so texts sharing
// words are similar and texts sharing none score zero.
type Embedder struct {
	Vocabulary []string

	// Err, when set, is returned from every call.
	Err error

	mu    sync.Mutex
	calls int
}

// NewEmbedder creates an embedder over the given words.
func NewEmbedder(words ...string) *Embedder {
	return &Embedder{Vocabulary: words}
}

// Embed returns the word-count vector for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	lower := strings.ToLower(text)
	v := make([]float32, len(e.Vocabulary))
	for i, w := range e.Vocabulary {
		v[i] = float32(strings.Count(lower, strings.ToLower(w)))
	}
	return v, nil
}

// EmbedBatch embeds each text in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the vocabulary size.
func (e *Embedder) Dimensions() int { return len(e.Vocabulary) }

// ModelName returns "bag-of-words".
func (e *Embedder) ModelName() string { return "bag-of-words" }

// Ping returns Err.
func (e *Embedder) Ping(context.Context) error { return e.Err }

// Close is a no-op.
func (e *Embedder) Close() error { return nil }

// Calls returns how many texts were embedded.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// ErrEmbed is a canned embedding failure.
var ErrEmbed = errors.New("embedding backend down")
