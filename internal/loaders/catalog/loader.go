// Package catalog loads documents from a REST catalog.
//
// GET {base}/{doc_path} returns a JSON array of ids. Each document body is
// served at {base}/{doc_path}/{id}; its human-facing page lives at
// {base}/{sample_path}/{id}.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/loaders/fetch"
)

var _ driven.SourceLoader = (*Loader)(nil)

// Loader reads a catalog of ids and their documents.
type Loader struct {
	typ        string
	baseURL    string
	docPath    string
	samplePath string
	client     *fetch.Client
}

// New creates a catalog loader from source settings.
func New(cfg domain.SourceSettings, opts ...fetch.Option) (*Loader, error) {
	if cfg.BaseURL == "" || cfg.DocPath == "" {
		return nil, fmt.Errorf("%w: sources.%s needs base_url and doc_path", domain.ErrConfig, cfg.Type)
	}
	samplePath := cfg.SamplePath
	if samplePath == "" {
		samplePath = cfg.DocPath
	}
	return &Loader{
		typ:        cfg.Type,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		docPath:    strings.Trim(cfg.DocPath, "/"),
		samplePath: strings.Trim(samplePath, "/"),
		client:     fetch.New(cfg.RequestsPerSecond, opts...),
	}, nil
}

func (l *Loader) Type() string { return l.typ }

func (l *Loader) Prepare(_ context.Context, _ *zap.Logger) error { return nil }

// List returns the catalog ids in the order the server sends them.
func (l *Loader) List(ctx context.Context, log *zap.Logger) ([]string, error) {
	url := l.baseURL + "/" + l.docPath
	log.Debug("loading catalog", zap.String("url", url))

	body, err := l.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("load doc ids: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("decode doc ids from %s: %w", url, err)
	}
	return ids, nil
}

// Load fetches one document. The metadata carries the sample page url and
// the raw document url.
func (l *Loader) Load(ctx context.Context, log *zap.Logger, id string) (*domain.Document, error) {
	docURL := l.DocURL(id)
	log.Debug("loading sample", zap.String("url", docURL))

	body, err := l.client.Get(ctx, docURL)
	if err != nil {
		return nil, err
	}

	return &domain.Document{
		Text: string(body),
		Metadata: domain.Metadata{
			domain.MetaURL:    l.SampleURL(id),
			domain.MetaDocURL: docURL,
		},
	}, nil
}

// DocURL returns where the document body is served.
func (l *Loader) DocURL(id string) string {
	return l.baseURL + "/" + l.docPath + "/" + id
}

// SampleURL returns the human-facing page for id.
func (l *Loader) SampleURL(id string) string {
	return l.baseURL + "/" + l.samplePath + "/" + id
}
