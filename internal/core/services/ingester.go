package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ingester runs the ingestion pipeline for one knowledge domain:
// loader -> content diff -> chunker -> vector store.
type Ingester struct {
	typ     string
	loader  driven.SourceLoader
	chunker driven.Chunker
	store   driven.VectorStore
	hasher  ContentHasher
	limit   int
	now     func() time.Time
	newID   func() string
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithSourceLimit caps the number of sources loaded per run. Zero loads all.
func WithSourceLimit(n int) IngesterOption {
	return func(i *Ingester) {
		if n > 0 {
			i.limit = n
		}
	}
}

// WithHasher replaces the content hasher.
func WithHasher(h ContentHasher) IngesterOption {
	return func(i *Ingester) { i.hasher = h }
}

// WithClock replaces the time source used for the updated metadata.
func WithClock(now func() time.Time) IngesterOption {
	return func(i *Ingester) { i.now = now }
}

// WithIDGenerator replaces the document ID generator.
func WithIDGenerator(gen func() string) IngesterOption {
	return func(i *Ingester) { i.newID = gen }
}

// NewIngester creates an ingester for the loader's type.
func NewIngester(
	loader driven.SourceLoader,
	chunker driven.Chunker,
	store driven.VectorStore,
	opts ...IngesterOption,
) *Ingester {
	i := &Ingester{
		typ:     loader.Type(),
		loader:  loader,
		chunker: chunker,
		store:   store,
		hasher:  Murmur3Hasher{},
		now:     time.Now,
		newID:   newDocumentID,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Type returns the knowledge domain this ingester feeds.
func (i *Ingester) Type() string {
	return i.typ
}

// IngestAll loads every source of the type and writes the ones whose
// content changed since the last run.
//
//nolint:gocognit // Pipeline orchestration with sequential steps
func (i *Ingester) IngestAll(ctx context.Context, log *zap.Logger) (*domain.IngestReport, error) {
	start := i.now()
	log = logger.OrNop(log).With(zap.String("type", i.typ))
	report := &domain.IngestReport{Type: i.typ}

	// 1. PREPARE (transient failures keep the previous local state)
	if err := i.loader.Prepare(ctx, log); err != nil {
		log.Warn("prepare failed, continuing with existing state", zap.Error(err))
	}

	// 2. LIST SOURCES
	ids, err := i.loader.List(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	report.Loaded = len(ids)
	if len(ids) == 0 {
		log.Warn("no sources found")
		report.Status = domain.StatusNoSources
		report.Duration = i.now().Sub(start)
		return report, nil
	}
	if i.limit > 0 && len(ids) > i.limit {
		ids = ids[:i.limit]
	}
	log.Info("found sources", zap.Int("found", report.Loaded), zap.Int("loading", len(ids)))

	// 3. LOAD AND DIFF AGAINST PERSISTED RECORDS
	var kept []*domain.Document
	var deletes []domain.Filter
	for _, id := range ids {
		doc, err := i.load(ctx, log, id)
		if err != nil {
			report.Failed++
			log.Warn("failed to load source", zap.String("source", id), zap.Error(err))
			continue
		}

		changed, stale, err := i.diff(ctx, doc)
		if err != nil {
			report.Failed++
			log.Warn("failed to read stored records", zap.String("source", id), zap.Error(err))
			continue
		}
		if !changed {
			report.Unchanged++
			log.Debug("source unchanged", zap.String("source", id))
			continue
		}
		if stale {
			report.Deleted++
			deletes = append(deletes, domain.Filter{Type: i.typ, Source: id})
			log.Debug("source changed, replacing stored chunks", zap.String("source", id))
		}
		kept = append(kept, doc)
	}
	report.Added = len(kept)

	// 4. CHUNK
	log.Debug("splitting sources into chunks", zap.Int("sources", len(kept)))
	chunks := i.split(log, kept)
	report.Chunks = len(chunks)

	// 5. WRITE IN ONE BATCH
	if err := i.write(ctx, deletes, chunks); err != nil {
		return nil, fmt.Errorf("write chunks: %w", err)
	}

	report.Status = domain.StatusNoChanges
	if report.Added > 0 {
		report.Status = domain.StatusUpdated
	}
	report.Duration = i.now().Sub(start)
	log.Info("ingestion done",
		zap.Int("added", report.Added),
		zap.Int("chunks", report.Chunks),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failed", report.Failed),
		zap.Duration("took", report.Duration))
	return report, nil
}

// IngestOne re-ingests the source behind a stored record when its content changed.
func (i *Ingester) IngestOne(ctx context.Context, log *zap.Logger, record domain.SourceRecord) (*domain.IngestReport, error) {
	start := i.now()
	log = logger.OrNop(log).With(zap.String("type", i.typ), zap.String("source", record.Source))
	report := &domain.IngestReport{Type: i.typ, Loaded: 1}

	if err := i.loader.Prepare(ctx, log); err != nil {
		log.Warn("prepare failed, continuing with existing state", zap.Error(err))
	}

	log.Info("loading source")
	doc, err := i.load(ctx, log, record.Source)
	if errors.Is(err, domain.ErrNotFound) {
		report.Status = domain.StatusSourceNotFound
		report.Failed = 1
		report.Duration = i.now().Sub(start)
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", record.Source, err)
	}

	if doc.SourceHash() == record.SourceHash {
		report.Status = domain.StatusNoChanges
		report.Unchanged = 1
		report.Duration = i.now().Sub(start)
		return report, nil
	}

	chunks := i.split(log, []*domain.Document{doc})
	deletes := []domain.Filter{{Type: i.typ, Source: record.Source}}
	if err := i.write(ctx, deletes, chunks); err != nil {
		return nil, fmt.Errorf("write chunks: %w", err)
	}

	report.Status = domain.StatusUpdated
	report.Added = 1
	report.Deleted = 1
	report.Chunks = len(chunks)
	report.Duration = i.now().Sub(start)
	log.Info("source updated", zap.Int("chunks", report.Chunks))
	return report, nil
}

// load fetches a source and stamps the ingestion metadata onto it.
func (i *Ingester) load(ctx context.Context, log *zap.Logger, id string) (*domain.Document, error) {
	doc, err := i.loader.Load(ctx, log, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("load %s: %w", id, domain.ErrNotFound)
	}

	meta := doc.Metadata.Clone()
	meta[domain.MetaType] = i.typ
	meta[domain.MetaSource] = id
	meta[domain.MetaSourceHash] = i.hasher.Hash(doc.Text)
	meta[domain.MetaSize] = utf8.RuneCountInString(doc.Text)
	meta[domain.MetaUpdated] = i.now().Format(domain.UpdatedLayout)

	return &domain.Document{
		ID:       i.newID(),
		Text:     doc.Text,
		Metadata: meta,
	}, nil
}

// diff compares the document hash against the stored records.
// changed is false when a stored record has the same hash; stale is true
// when stored records exist and must be replaced.
func (i *Ingester) diff(ctx context.Context, doc *domain.Document) (changed, stale bool, err error) {
	records, err := i.store.LoadByFilter(ctx, domain.Filter{Type: i.typ, Source: doc.Source()})
	if err != nil {
		return false, false, err
	}
	if len(records) == 0 {
		return true, false, nil
	}

	hash := doc.SourceHash()
	for _, r := range records {
		if r.SourceHash != hash {
			return true, true, nil
		}
	}
	return false, false, nil
}

// split chunks the documents and turns each chunk into a storable document.
func (i *Ingester) split(log *zap.Logger, docs []*domain.Document) []domain.Document {
	var out []domain.Document
	for _, doc := range docs {
		url := doc.Metadata.String(domain.MetaURL)
		for _, chunk := range i.chunker.Chunk(log, doc) {
			meta := doc.Metadata.Clone()
			meta[domain.MetaSize] = utf8.RuneCountInString(chunk.Text)
			if chunk.Anchor != "" {
				meta[domain.MetaURL] = url + chunk.Anchor
			}
			out = append(out, domain.Document{
				ID:       i.newID(),
				Text:     chunk.Text,
				Metadata: meta,
			})
		}
	}
	return out
}

// write applies deletions and the batch add, transactionally when the store allows it.
func (i *Ingester) write(ctx context.Context, deletes []domain.Filter, docs []domain.Document) error {
	if len(deletes) == 0 && len(docs) == 0 {
		return nil
	}
	if r, ok := i.store.(driven.Replacer); ok {
		return r.Replace(ctx, deletes, docs)
	}
	for _, f := range deletes {
		if err := i.store.DeleteByFilter(ctx, f); err != nil {
			return fmt.Errorf("delete %s: %w", f, err)
		}
	}
	if len(docs) == 0 {
		return nil
	}
	return i.store.Add(ctx, docs)
}

func newDocumentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
