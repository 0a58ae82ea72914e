package cli

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/loaders"
)

type mockIngestion struct {
	mu      sync.Mutex
	reports []*domain.IngestReport
	err     error
	types   []string
	records []domain.SourceRecord
}

func (m *mockIngestion) IngestType(_ context.Context, _ *zap.Logger, typ string) (*domain.IngestReport, error) {
	m.mu.Lock()
	m.types = append(m.types, typ)
	m.mu.Unlock()
	return &domain.IngestReport{Type: typ, Loaded: 3, Added: 1, Chunks: 4, Unchanged: 2, Status: domain.StatusUpdated}, m.err
}

func (m *mockIngestion) IngestRecord(_ context.Context, _ *zap.Logger, r domain.SourceRecord) (*domain.IngestReport, error) {
	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
	return &domain.IngestReport{Type: r.Type, Loaded: 1, Added: 1, Chunks: 2, Status: domain.StatusUpdated}, m.err
}

func (m *mockIngestion) IngestEverything(context.Context, *zap.Logger) ([]*domain.IngestReport, error) {
	return m.reports, m.err
}

func (m *mockIngestion) Types() []string { return []string{"docs", "trainings", "uisamples"} }

func (m *mockIngestion) recorded() []domain.SourceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SourceRecord(nil), m.records...)
}

type mockRetrieval struct {
	result *domain.SearchResult
	err    error
	query  string
	opts   domain.SearchOptions
}

func (m *mockRetrieval) Search(
	_ context.Context,
	_ *zap.Logger,
	query string,
	opts domain.SearchOptions,
) (*domain.SearchResult, error) {
	m.query = query
	m.opts = opts
	return m.result, m.err
}

type mockTool struct{ name, description string }

func (m *mockTool) Name() string                                    { return m.name }
func (m *mockTool) Description() string                             { return m.description }
func (m *mockTool) InputSchema() *jsonschema.Schema                 { return &jsonschema.Schema{Type: "object"} }
func (m *mockTool) Execute(context.Context, string) (string, error) { return "", nil }

type mockCatalog struct {
	tools  []driving.Tool
	params *domain.Parameters
}

func (m *mockCatalog) Catalog(_ *zap.Logger, params *domain.Parameters) ([]driving.Tool, error) {
	m.params = params
	return m.tools, nil
}

type mockCheckRunner struct {
	summary *domain.CheckRunSummary
	checks  []domain.CheckDef
}

func (m *mockCheckRunner) Run(_ context.Context, _ *zap.Logger, checks []domain.CheckDef) (*domain.CheckRunSummary, error) {
	m.checks = checks
	return m.summary, nil
}

type mockScheduler struct {
	started chan struct{}
	stopped bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

// mockWatcher emits ids then closes.
type mockWatcher struct {
	ids []string
}

func (m *mockWatcher) Watch(context.Context, *zap.Logger) (<-chan string, error) {
	ch := make(chan string, len(m.ids))
	for _, id := range m.ids {
		ch <- id
	}
	close(ch)
	return ch, nil
}

func (m *mockWatcher) Close() error { return nil }

var _ loaders.Watcher = (*mockWatcher)(nil)

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	ingestion *mockIngestion
	retrieval *mockRetrieval
	catalog   *mockCatalog
	checks    *mockCheckRunner
	scheduler *mockScheduler

	parallelism int
	checkParams *domain.Parameters
	interval    time.Duration
}

func setupTestServices() (*testServices, func()) {
	score := 0.91
	doc := domain.Document{
		ID:    "doc-1",
		Text:  "Enable paging on the grid component.",
		Score: &score,
		Metadata: domain.Metadata{
			domain.MetaType:   "docs",
			domain.MetaSource: "grid.html",
			domain.MetaURL:    "https://docs.example.com/grid.html#paging",
		},
	}
	doc.SetRerankScore(2.25)

	ts := &testServices{
		ingestion: &mockIngestion{},
		retrieval: &mockRetrieval{result: &domain.SearchResult{
			Documents: []domain.Document{doc},
			Trace:     []string{"INFO >>> Using documentation_retriever"},
		}},
		catalog: &mockCatalog{tools: []driving.Tool{
			&mockTool{name: "documentation_retriever", description: "Searches the reference documentation."},
			&mockTool{name: "trainings_retriever", description: "Searches training course material."},
		}},
		checks:    &mockCheckRunner{summary: &domain.CheckRunSummary{}},
		scheduler: &mockScheduler{started: make(chan struct{})},
	}

	SetServices(&Services{
		Ingestion: ts.ingestion,
		Retrieval: ts.retrieval,
		Tools:     ts.catalog,
		Params:    domain.NewParameters(map[string]any{}),
		NewCheckRunner: func(parallelism int, p *domain.Parameters) driving.CheckRunner {
			ts.parallelism = parallelism
			ts.checkParams = p
			return ts.checks
		},
		NewScheduler: func(interval time.Duration) driving.Scheduler {
			ts.interval = interval
			return ts.scheduler
		},
		Watchers:       map[string]loaders.Watcher{},
		MetricsHandler: http.NotFoundHandler(),
	})
	baseLogger = zap.NewNop()
	setup = nil

	return ts, func() {
		SetServices(&Services{})
		setup = nil
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetContext(context.Background())
	}
}

// resetFlags clears flag variables, which cobra keeps between executions.
func resetFlags() {
	searchDomains, searchParams, searchTrace, searchJSON = nil, "", false, false
	ingestSource, ingestWatch = "", false
	toolsParams = ""
	checkParallel, checkParams, checkJSON, checkVerbose = 0, "", false, false
	serveHTTP, serveSchedule, serveNoMCP = "", 0, false
}
