package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interfaces.
var (
	_ driven.VectorStore = (*VectorStore)(nil)
	_ driven.Replacer    = (*VectorStore)(nil)
)

type entry struct {
	doc       domain.Document
	embedding []float32
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// Insertion order is kept so equal scores come back in the order they were added.
type VectorStore struct {
	mu       sync.RWMutex
	embedder driven.EmbeddingService
	entries  []entry
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore(embedder driven.EmbeddingService) *VectorStore {
	return &VectorStore{embedder: embedder}
}

// Add embeds and stores documents.
func (s *VectorStore) Add(ctx context.Context, docs []domain.Document) error {
	added, err := s.embed(ctx, docs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, added...)
	return nil
}

// Replace deletes the filtered documents and adds docs under one lock.
func (s *VectorStore) Replace(ctx context.Context, deletes []domain.Filter, docs []domain.Document) error {
	added, err := s.embed(ctx, docs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range deletes {
		s.deleteLocked(f)
	}
	s.entries = append(s.entries, added...)
	return nil
}

// SimilaritySearch ranks the filtered documents by cosine similarity.
func (s *VectorStore) SimilaritySearch(ctx context.Context, req domain.SearchRequest) ([]domain.Document, error) {
	query, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		candidates [][]float32
		docs       []domain.Document
	)
	for _, e := range s.entries {
		if req.Filter.Matches(e.doc.Metadata) {
			candidates = append(candidates, e.embedding)
			docs = append(docs, e.doc)
		}
	}

	ranked := vector.Rank(query, candidates, req.SimilarityThreshold, req.TopK)
	out := make([]domain.Document, len(ranked))
	for i, r := range ranked {
		d := docs[r.Index]
		d.Metadata = d.Metadata.Clone()
		score := r.Score
		d.Score = &score
		out[i] = d
	}
	return out, nil
}

// DeleteByFilter removes every document matching the filter.
func (s *VectorStore) DeleteByFilter(_ context.Context, filter domain.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(filter)
	return nil
}

// LoadByFilter returns the bookkeeping records matching the filter.
func (s *VectorStore) LoadByFilter(_ context.Context, filter domain.Filter) ([]domain.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SourceRecord
	for _, e := range s.entries {
		if !filter.Matches(e.doc.Metadata) {
			continue
		}
		out = append(out, domain.SourceRecord{
			ID:         e.doc.ID,
			Type:       e.doc.Type(),
			Source:     e.doc.Source(),
			SourceHash: e.doc.SourceHash(),
			URL:        e.doc.Metadata.String(domain.MetaURL),
		})
	}
	return out, nil
}

// Len returns the number of stored documents.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op.
func (s *VectorStore) Close() error { return nil }

func (s *VectorStore) embed(ctx context.Context, docs []domain.Document) ([]entry, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("embed documents: got %d embeddings for %d texts", len(embeddings), len(docs))
	}
	out := make([]entry, len(docs))
	for i := range docs {
		d := docs[i]
		d.Metadata = d.Metadata.Clone()
		d.Score = nil
		out[i] = entry{doc: d, embedding: embeddings[i]}
	}
	return out, nil
}

func (s *VectorStore) deleteLocked(filter domain.Filter) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !filter.Matches(e.doc.Metadata) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = entry{}
	}
	s.entries = kept
}
