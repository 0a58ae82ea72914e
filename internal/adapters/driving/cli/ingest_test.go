package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [type]", ingestCmd.Use)
	assert.NotNil(t, ingestCmd.Flags().Lookup("source"))
	assert.NotNil(t, ingestCmd.Flags().Lookup("watch"))
}

func TestIngestCmd_All(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.reports = []*domain.IngestReport{
		{Type: "docs", Loaded: 10, Added: 2, Chunks: 7, Unchanged: 8, Status: domain.StatusUpdated},
		{Type: "uisamples", Status: domain.StatusNoSources},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest"})

	require.NoError(t, rootCmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Ingesting all types...")
	assert.Contains(t, out, "docs: loaded: 10, added: 2 documents in 7 chunks (unchanged: 8, failed: 0)")
	assert.Contains(t, out, "uisamples: no sources found")
}

func TestIngestCmd_AllPartialFailure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.reports = []*domain.IngestReport{{Type: "docs", Status: domain.StatusNoChanges}}
	ts.ingestion.err = errors.New("trainings: clone failed")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "clone failed")
	assert.Contains(t, buf.String(), "docs: loaded: 0")
}

func TestIngestCmd_Type(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "trainings"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, []string{"trainings"}, ts.ingestion.types)
	assert.Contains(t, buf.String(), "trainings: loaded: 3, added: 1 documents in 4 chunks")
}

func TestIngestCmd_Source(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"ingest", "docs", "--source", "grid.html"})

	require.NoError(t, rootCmd.Execute())
	assert.Empty(t, ts.ingestion.types)
	assert.Equal(t, []domain.SourceRecord{{Type: "docs", Source: "grid.html"}}, ts.ingestion.recorded())
}

func TestIngestCmd_FlagsRequireType(t *testing.T) {
	for _, args := range [][]string{{"ingest", "--source", "x"}, {"ingest", "--watch"}} {
		_, cleanup := setupTestServices()

		rootCmd.SetOut(new(bytes.Buffer))
		rootCmd.SetErr(new(bytes.Buffer))
		rootCmd.SetArgs(args)

		err := rootCmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "require a type")
		cleanup()
	}
}

func TestIngestCmd_Watch(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	watchers["trainings"] = &mockWatcher{ids: []string{"grid/intro_EN.adoc", "forms/basics_EN.adoc"}}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "trainings", "--watch"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, []domain.SourceRecord{
		{Type: "trainings", Source: "grid/intro_EN.adoc"},
		{Type: "trainings", Source: "forms/basics_EN.adoc"},
	}, ts.ingestion.recorded())
	assert.Contains(t, buf.String(), "Watching trainings for changes.")
}

func TestIngestCmd_WatchUnsupported(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"ingest", "docs", "--watch"})

	err := rootCmd.Execute()

	assert.ErrorIs(t, err, domain.ErrUnsupported)
}
