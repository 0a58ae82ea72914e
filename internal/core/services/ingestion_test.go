package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/testutil"
)

func setupIngestionService(t *testing.T, metrics *recordingMetrics, loaders ...*fakeLoader) (*IngestionService, *memory.VectorStore) {
	t.Helper()
	store := memory.NewVectorStore(testutil.NewEmbedder("grid", "button"))
	ingesters := make([]*Ingester, len(loaders))
	for i, l := range loaders {
		ingesters[i] = NewIngester(l, paragraphChunker{}, store)
	}
	if metrics == nil {
		return NewIngestionService(nil, ingesters...), store
	}
	return NewIngestionService(metrics, ingesters...), store
}

func TestIngestionService_Types(t *testing.T) {
	s, _ := setupIngestionService(t, nil,
		newFakeLoader("uisamples", nil),
		newFakeLoader("docs", nil),
		newFakeLoader("trainings", nil))

	assert.Equal(t, []string{"docs", "trainings", "uisamples"}, s.Types())
}

func TestIngestionService_IngestType(t *testing.T) {
	metrics := newRecordingMetrics()
	s, store := setupIngestionService(t, metrics, newFakeLoader("docs", map[string]string{"a": "grid"}))

	report, err := s.IngestType(context.Background(), zap.NewNop(), "docs")

	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, store.Len())
	require.Len(t, metrics.ingests, 1)
	assert.Equal(t, "docs", metrics.ingests[0].Type)
	assert.False(t, s.Running("docs"))
}

func TestIngestionService_UnknownType(t *testing.T) {
	s, _ := setupIngestionService(t, nil, newFakeLoader("docs", nil))

	_, err := s.IngestType(context.Background(), nil, "blog")
	assert.ErrorIs(t, err, domain.ErrUnknownType)

	_, err = s.IngestRecord(context.Background(), nil, domain.SourceRecord{Type: "blog", Source: "x"})
	assert.ErrorIs(t, err, domain.ErrUnknownType)
}

func TestIngestionService_IngestRecord(t *testing.T) {
	loader := newFakeLoader("docs", map[string]string{"a": "grid"})
	s, store := setupIngestionService(t, nil, loader)
	ctx := context.Background()

	_, err := s.IngestRecord(ctx, nil, domain.SourceRecord{Type: "docs"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	report, err := s.IngestRecord(ctx, nil, domain.SourceRecord{Type: "docs", Source: "a", SourceHash: "stale"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUpdated, report.Status)
	assert.Equal(t, 1, store.Len())
}

func TestIngestionService_InProgress(t *testing.T) {
	s, _ := setupIngestionService(t, nil, newFakeLoader("docs", nil))
	require.NoError(t, s.begin("docs"))
	defer s.end("docs")

	_, err := s.IngestType(context.Background(), nil, "docs")

	assert.ErrorIs(t, err, domain.ErrIngestInProgress)
	assert.True(t, s.Running("docs"))
}

func TestIngestionService_IngestEverything(t *testing.T) {
	broken := newFakeLoader("trainings", nil)
	broken.listErr = errBoom
	s, store := setupIngestionService(t, nil,
		newFakeLoader("docs", map[string]string{"a": "grid", "b": "button"}),
		broken,
		newFakeLoader("uisamples", map[string]string{"grid-sample": "grid"}))

	reports, err := s.IngestEverything(context.Background(), zap.NewNop())

	require.ErrorIs(t, err, errBoom)
	assert.ErrorContains(t, err, "ingest trainings")
	require.Len(t, reports, 2)
	assert.Equal(t, "docs", reports[0].Type)
	assert.Equal(t, "uisamples", reports[1].Type)
	assert.Equal(t, 3, store.Len())
}
