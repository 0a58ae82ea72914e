package services

import (
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MergeResults ranks documents gathered from several tools and removes
// duplicates by ID, keeping the best-ranked occurrence.
//
// Ordering: documents with a rerank score come before documents without
// one; two reranked documents compare by rerank score; two unreranked
// documents compare by similarity score. Missing similarity scores compare
// equal. The sort is stable, so equal documents keep their input order.
func MergeResults(docs []domain.Document) []domain.Document {
	sorted := make([]domain.Document, len(docs))
	copy(sorted, docs)

	sort.SliceStable(sorted, func(a, b int) bool {
		return rankBefore(&sorted[a], &sorted[b])
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]domain.Document, 0, len(sorted))
	for _, d := range sorted {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out
}

func rankBefore(a, b *domain.Document) bool {
	ra, okA := a.RerankScore()
	rb, okB := b.RerankScore()
	switch {
	case okA && okB:
		return ra > rb
	case okA != okB:
		return okA
	}
	if a.Score == nil || b.Score == nil {
		return false
	}
	return *a.Score > *b.Score
}
