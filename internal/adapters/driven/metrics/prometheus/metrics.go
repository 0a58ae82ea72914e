// Package prometheus records ingestion, retrieval and check metrics in a
// Prometheus registry.
package prometheus

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Namespace prefixes every metric name.
const Namespace = "sercha_rag"

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prom.Registry

	ingestRuns     *prom.CounterVec
	ingestSources  *prom.CounterVec
	ingestChunks   *prom.CounterVec
	ingestDuration *prom.HistogramVec

	searches       *prom.CounterVec
	searchResults  *prom.HistogramVec
	searchDuration *prom.HistogramVec
	rerankFailures *prom.CounterVec
	ruleFailures   *prom.CounterVec

	checks        *prom.CounterVec
	checkScores   *prom.HistogramVec
	checkDuration prom.Histogram
}

// New creates the metrics and registers them, with the Go and process
// collectors, in a fresh registry.
func New() *Metrics {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ingestRuns: f.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by type and status.",
		}, []string{"type", "status"}),
		ingestSources: f.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_sources_total",
			Help:      "Sources seen by ingestion, by outcome.",
		}, []string{"type", "outcome"}),
		ingestChunks: f.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunk documents written.",
		}, []string{"type"}),
		ingestDuration: f.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Wall time of one ingestion run.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		}, []string{"type"}),

		searches: f.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "searches_total",
			Help:      "Domain searches by tool.",
		}, []string{"tool"}),
		searchResults: f.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_results",
			Help:      "Documents returned by one domain search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}, []string{"tool"}),
		searchDuration: f.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "Latency of one domain search including reranking.",
			Buckets:   prom.DefBuckets,
		}, []string{"tool"}),
		rerankFailures: f.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "rerank_failures_total",
			Help:      "Searches that fell back to similarity filtering.",
		}, []string{"tool"}),
		ruleFailures: f.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "rule_failures_total",
			Help:      "Filter rules that errored and failed open.",
		}, []string{"rule"}),

		checks: f.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "checks_total",
			Help:      "Checks run, by category and result.",
		}, []string{"category", "result"}),
		checkScores: f.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "check_score",
			Help:      "Check scores by kind.",
			Buckets:   prom.LinearBuckets(0, 0.1, 11),
		}, []string{"kind"}),
		checkDuration: f.NewHistogram(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "check_duration_seconds",
			Help:      "Wall time of one check.",
			Buckets:   prom.DefBuckets,
		}),
	}
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prom.Registry {
	return m.registry
}

// IngestCompleted records one ingestion report.
func (m *Metrics) IngestCompleted(report *domain.IngestReport) {
	if report == nil {
		return
	}
	m.ingestRuns.WithLabelValues(report.Type, report.Status).Inc()
	m.ingestSources.WithLabelValues(report.Type, "added").Add(float64(report.Added))
	m.ingestSources.WithLabelValues(report.Type, "unchanged").Add(float64(report.Unchanged))
	m.ingestSources.WithLabelValues(report.Type, "failed").Add(float64(report.Failed))
	m.ingestChunks.WithLabelValues(report.Type).Add(float64(report.Chunks))
	m.ingestDuration.WithLabelValues(report.Type).Observe(report.Duration.Seconds())
}

// SearchCompleted records one domain search.
func (m *Metrics) SearchCompleted(tool string, results int, elapsed time.Duration) {
	m.searches.WithLabelValues(tool).Inc()
	m.searchResults.WithLabelValues(tool).Observe(float64(results))
	m.searchDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RerankFailed counts a reranker fallback.
func (m *Metrics) RerankFailed(tool string) {
	m.rerankFailures.WithLabelValues(tool).Inc()
}

// RuleFailed counts a rule that failed open.
func (m *Metrics) RuleFailed(rule string) {
	m.ruleFailures.WithLabelValues(rule).Inc()
}

// CheckCompleted records one check result.
func (m *Metrics) CheckCompleted(result *domain.CheckResult) {
	if result == nil {
		return
	}
	outcome := "passed"
	if result.Failed {
		outcome = "failed"
	}
	m.checks.WithLabelValues(result.Category, outcome).Inc()
	m.checkScores.WithLabelValues("script").Observe(result.ScriptScore)
	m.checkScores.WithLabelValues("semantic").Observe(result.SemanticScore)
	m.checkDuration.Observe(result.Duration.Seconds())
}
