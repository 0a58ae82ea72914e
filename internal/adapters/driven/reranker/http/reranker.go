// Package http provides a reranker adapter for cross-encoder services that
// accept {query, documents, top_n} and answer with [{index, score}].
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// DefaultTimeout bounds one rerank request.
const DefaultTimeout = 10 * time.Second

// Config holds configuration for the HTTP reranker.
type Config struct {
	// URL is the full endpoint, e.g. http://localhost:8000/rerank.
	URL string

	// Timeout is the request timeout (default: 10s).
	Timeout time.Duration
}

// Reranker scores documents against a query through a remote service.
type Reranker struct {
	client *http.Client
	url    string
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewReranker creates a reranker for cfg.URL.
func NewReranker(cfg Config) *Reranker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Reranker{
		client: &http.Client{Timeout: cfg.Timeout},
		url:    cfg.URL,
	}
}

// Rerank returns at most topN results ordered by descending score.
// Every failure wraps domain.ErrRerankUnavailable.
func (r *Reranker) Rerank(
	ctx context.Context,
	log *zap.Logger,
	query string,
	docs []domain.Document,
	topN int,
) ([]domain.RerankResult, error) {
	// 1. Blank texts are not sent; positions map back to docs
	texts := make([]string, 0, len(docs))
	positions := make([]int, 0, len(docs))
	for i := range docs {
		if strings.TrimSpace(docs[i].Text) == "" {
			continue
		}
		texts = append(texts, docs[i].Text)
		positions = append(positions, i)
	}
	if len(texts) == 0 {
		return []domain.RerankResult{}, nil
	}
	if topN <= 0 || topN > len(texts) {
		topN = len(texts)
	}

	// 2. Call the service
	items, err := r.post(ctx, rerankRequest{Query: query, Documents: texts, TopN: topN})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankUnavailable, err)
	}

	// 3. Map indices back, dropping out-of-range and repeated ones
	results := make([]domain.RerankResult, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(positions) {
			log.Warn("reranker returned an unknown index", zap.Int("index", item.Index), zap.Int("documents", len(texts)))
			continue
		}
		if _, dup := seen[item.Index]; dup {
			log.Warn("reranker returned a repeated index", zap.Int("index", item.Index))
			continue
		}
		seen[item.Index] = struct{}{}
		results = append(results, domain.RerankResult{
			Document: &docs[positions[item.Index]],
			Score:    item.Score,
		})
	}

	// 4. Best first, at most topN
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

func (r *Reranker) post(ctx context.Context, body rerankRequest) ([]rerankItem, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var items []rerankItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return items, nil
}
