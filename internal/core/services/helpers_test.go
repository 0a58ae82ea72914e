package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var errBoom = errors.New("boom")

// --- Loader ---

// fakeLoader serves sources from a map. Listing is sorted by id.
type fakeLoader struct {
	typ        string
	mu         sync.Mutex
	sources    map[string]string
	failing    map[string]error
	listErr    error
	prepareErr error
	prepared   int
}

func newFakeLoader(typ string, sources map[string]string) *fakeLoader {
	return &fakeLoader{typ: typ, sources: sources, failing: map[string]error{}}
}

func (l *fakeLoader) set(id, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[id] = text
}

func (l *fakeLoader) Type() string { return l.typ }

func (l *fakeLoader) Prepare(context.Context, *zap.Logger) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prepared++
	return l.prepareErr
}

func (l *fakeLoader) List(context.Context, *zap.Logger) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	ids := make([]string, 0, len(l.sources))
	for id := range l.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (l *fakeLoader) Load(_ context.Context, _ *zap.Logger, id string) (*domain.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.failing[id]; err != nil {
		return nil, err
	}
	text, ok := l.sources[id]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", id, domain.ErrNotFound)
	}
	return &domain.Document{
		Text:     text,
		Metadata: domain.Metadata{domain.MetaURL: "https://docs.example.com/" + id},
	}, nil
}

// --- Chunker ---

// paragraphChunker emits one chunk per blank-line separated paragraph,
// anchored "#p<n>".
type paragraphChunker struct{}

func (paragraphChunker) Name() string { return "paragraph" }

func (paragraphChunker) Chunk(_ *zap.Logger, doc *domain.Document) []domain.Chunk {
	var out []domain.Chunk
	for i, p := range strings.Split(doc.Text, "\n\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, domain.Chunk{Text: p, Anchor: fmt.Sprintf("#p%d", i+1)})
	}
	return out
}

// --- Vector store ---

// addOnlyStore hides the Replacer capability of the wrapped store.
type addOnlyStore struct {
	driven.VectorStore
}

// stubStore answers similarity searches with canned documents per type.
type stubStore struct {
	mu       sync.Mutex
	docs     map[string][]domain.Document
	errs     map[string]error
	delay    time.Duration
	requests []domain.SearchRequest
}

func newStubStore() *stubStore {
	return &stubStore{docs: map[string][]domain.Document{}, errs: map[string]error{}}
}

func (s *stubStore) Add(context.Context, []domain.Document) error { return nil }

func (s *stubStore) SimilaritySearch(ctx context.Context, req domain.SearchRequest) ([]domain.Document, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	docs := s.docs[req.Filter.Type]
	err := s.errs[req.Filter.Type]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	return out, nil
}

func (s *stubStore) DeleteByFilter(context.Context, domain.Filter) error { return nil }

func (s *stubStore) LoadByFilter(context.Context, domain.Filter) ([]domain.SourceRecord, error) {
	return nil, nil
}

func (s *stubStore) Close() error { return nil }

func scored(id, typ string, score float64) domain.Document {
	return domain.Document{
		ID:   id,
		Text: "text " + id,
		Metadata: domain.Metadata{
			domain.MetaType:   typ,
			domain.MetaSource: id,
			domain.MetaURL:    "https://docs.example.com/" + id,
		},
		Score: &score,
	}
}

func ids(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i := range docs {
		out[i] = docs[i].ID
	}
	return out
}

// --- Reranker ---

// fakeReranker scores documents by a fixed table keyed by ID.
type fakeReranker struct {
	scores map[string]float64
	err    error
	calls  int
	mu     sync.Mutex
}

func (r *fakeReranker) Rerank(_ context.Context, _ *zap.Logger, _ string, docs []domain.Document, topN int) ([]domain.RerankResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.RerankResult, 0, len(docs))
	for i := range docs {
		out = append(out, domain.RerankResult{Document: &docs[i], Score: r.scores[docs[i].ID]})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// --- Metrics ---

type recordingMetrics struct {
	mu       sync.Mutex
	ingests  []domain.IngestReport
	searches map[string]int
	reranks  map[string]int
	rules    []string
	checks   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{searches: map[string]int{}, reranks: map[string]int{}}
}

func (m *recordingMetrics) IngestCompleted(r *domain.IngestReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingests = append(m.ingests, *r)
}

func (m *recordingMetrics) SearchCompleted(tool string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches[tool]++
}

func (m *recordingMetrics) RerankFailed(tool string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reranks[tool]++
}

func (m *recordingMetrics) RuleFailed(rule string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
}

func (m *recordingMetrics) CheckCompleted(*domain.CheckResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
}

// --- Parameters ---

// toolParams builds a parameters document configuring the default tools.
func toolParams(overrides map[string]map[string]any) *domain.Parameters {
	tools := map[string]any{}
	for _, def := range DefaultTools {
		t := map[string]any{
			"similarityThreshold": 0.5,
			"topK":                10,
			"topReranked":         3,
			"minScore":            0.6,
			"minRerankedScore":    0.0,
		}
		for k, v := range overrides[def.Name] {
			t[k] = v
		}
		tools[def.Name] = t
	}
	return domain.NewParameters(map[string]any{"tools": tools})
}
