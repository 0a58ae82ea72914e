package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestMetrics_IngestCompleted(t *testing.T) {
	m := New()

	m.IngestCompleted(&domain.IngestReport{
		Type:      "docs",
		Status:    domain.StatusUpdated,
		Added:     2,
		Unchanged: 5,
		Failed:    1,
		Chunks:    7,
		Duration:  3 * time.Second,
	})
	m.IngestCompleted(nil)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ingestRuns.WithLabelValues("docs", domain.StatusUpdated)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ingestSources.WithLabelValues("docs", "added")), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(m.ingestSources.WithLabelValues("docs", "unchanged")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.ingestChunks.WithLabelValues("docs")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ingestDuration))
}

func TestMetrics_Search(t *testing.T) {
	m := New()

	m.SearchCompleted("documentation_retriever", 3, 40*time.Millisecond)
	m.SearchCompleted("documentation_retriever", 0, 10*time.Millisecond)
	m.RerankFailed("documentation_retriever")
	m.RuleFailed("grid-only")

	assert.InDelta(t, 2, testutil.ToFloat64(m.searches.WithLabelValues("documentation_retriever")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rerankFailures.WithLabelValues("documentation_retriever")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ruleFailures.WithLabelValues("grid-only")), 0)
}

func TestMetrics_CheckCompleted(t *testing.T) {
	m := New()

	m.CheckCompleted(&domain.CheckResult{Category: "grid", ScriptScore: 1, SemanticScore: 0.5})
	m.CheckCompleted(&domain.CheckResult{Category: "grid", Failed: true})

	assert.InDelta(t, 1, testutil.ToFloat64(m.checks.WithLabelValues("grid", "passed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.checks.WithLabelValues("grid", "failed")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.checkScores))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RuleFailed("grid-only")
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `sercha_rag_rule_failures_total{rule="grid-only"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RuleFailed("x")

	assert.InDelta(t, 0, testutil.ToFloat64(b.ruleFailures.WithLabelValues("x")), 0)
	assert.NotSame(t, a.Registry(), b.Registry())
}
