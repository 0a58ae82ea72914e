// Command sercha-rag ingests knowledge domains and serves retrieval over the
// CLI and MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hugot"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/evaluator/lexical"
	prom "github.com/custodia-labs/sercha-rag/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/params"
	rerankhttp "github.com/custodia-labs/sercha-rag/internal/adapters/driven/reranker/http"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/chunkers"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/loaders"
	"github.com/custodia-labs/sercha-rag/internal/rules"
)

// version is set at build time.
var version = "dev"

// answerDocs bounds the passages joined into a check answer.
const answerDocs = 5

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(setup); err != nil {
		os.Exit(1)
	}
}

// closers collects resources released after the command finishes.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i]())
	}
	return errors.Join(errs...)
}

//nolint:funlen // composition root
func setup(ctx context.Context, log *zap.Logger) (*cli.Services, func() error, error) {
	var done closers
	fail := func(err error) (*cli.Services, func() error, error) {
		_ = done.close()
		return nil, nil, err
	}

	// 1. CONFIGURATION
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fail(fmt.Errorf("load .env: %w", err))
	}
	configStore, err := file.NewConfigStore(os.Getenv("SERCHA_RAG_HOME"))
	if err != nil {
		return fail(err)
	}
	settings, err := services.NewSettingsService(configStore).Get()
	if err != nil {
		return fail(err)
	}
	defaults, err := params.Default()
	if err != nil {
		return fail(err)
	}
	metrics := prom.New()

	// 2. EMBEDDINGS
	embedder, err := buildEmbedder(ctx, settings.Embedding, settings.Store.Dimensions, log)
	if err != nil {
		return fail(err)
	}
	done.add(embedder.Close)
	if embedder.Dimensions() != settings.Store.Dimensions {
		return fail(fmt.Errorf("%w: %s produces %d dimensions, store.dimensions is %d",
			domain.ErrConfig, embedder.ModelName(), embedder.Dimensions(), settings.Store.Dimensions))
	}

	// 3. STORAGE
	store, schedulerStore, err := buildStore(ctx, settings.Store, embedder)
	if err != nil {
		return fail(err)
	}
	if c, ok := store.(interface{ Close() error }); ok {
		done.add(c.Close)
	}

	// 4. INGESTION
	chunkerRegistry := chunkers.DefaultRegistry()
	watchers := make(map[string]loaders.Watcher)
	ingesters := make([]*services.Ingester, 0, len(settings.Sources))
	for _, src := range settings.Sources {
		loader, err := loaders.Build(ctx, src)
		if err != nil {
			return fail(err)
		}
		chunker, err := chunkerRegistry.Build(src)
		if err != nil {
			return fail(err)
		}
		if w, ok := loader.(loaders.Watcher); ok {
			watchers[src.Type] = w
			done.add(w.Close)
		}
		ingesters = append(ingesters, services.NewIngester(loader, chunker, store, services.WithSourceLimit(src.Limit)))
	}
	ingestion := services.NewIngestionService(metrics, ingesters...)

	// 5. RETRIEVAL
	var reranker driven.Reranker
	if settings.Reranker.Enabled {
		reranker = rerankhttp.NewReranker(rerankhttp.Config{
			URL:     settings.Reranker.URL,
			Timeout: settings.Reranker.Timeout,
		})
	}
	filters := func(p *domain.Parameters) (services.DocumentFilter, error) {
		f, err := rules.FromParameters(p, rules.WithFailureHook(metrics.RuleFailed))
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	registry := services.NewToolRegistry(services.NewRetriever(store), reranker, filters, metrics)
	if err := registry.Validate(defaults); err != nil {
		return fail(err)
	}
	retrieval := services.NewRetrievalService(registry, defaults)

	checks := settings.Checks
	newCheckRunner := func(parallelism int, p *domain.Parameters) driving.CheckRunner {
		if parallelism <= 0 {
			parallelism = checks.Parallelism
		}
		return services.NewCheckRunner(
			services.NewRetrievalAnswerer(retrieval, p, answerDocs),
			lexical.NewEvaluator(),
			services.WithParallelism(parallelism),
			services.WithCheckTimeout(checks.Timeout),
			services.WithCheckMetrics(metrics),
		)
	}

	newScheduler := func(interval time.Duration) driving.Scheduler {
		if interval <= 0 {
			interval = settings.SchedulerInterval
		}
		return services.NewScheduler(interval, schedulerStore, ingestion, log.Named("scheduler"))
	}

	log.Debug("services ready",
		zap.String("store", settings.Store.Backend.Description()),
		zap.String("embedding", embedder.ModelName()),
		zap.Strings("types", ingestion.Types()),
		zap.Bool("reranker", reranker != nil))

	return &cli.Services{
		Ingestion:      ingestion,
		Retrieval:      retrieval,
		Tools:          registry,
		Params:         defaults,
		NewCheckRunner: newCheckRunner,
		NewScheduler:   newScheduler,
		Watchers:       watchers,
		MetricsHandler: metrics.Handler(),
		MetricsAddr:    settings.MetricsAddr,
	}, done.close, nil
}

func buildEmbedder(
	ctx context.Context,
	cfg domain.EmbeddingSettings,
	dimensions int,
	log *zap.Logger,
) (driven.EmbeddingService, error) {
	var inner driven.EmbeddingService
	switch cfg.Provider {
	case domain.EmbeddingHugot:
		svc, err := hugot.NewEmbeddingService(hugot.Config{Model: cfg.Model, ModelDir: cfg.ModelDir})
		if err != nil {
			return nil, err
		}
		inner = svc
	case domain.EmbeddingOpenAI:
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, err
		}
		inner = svc
	default:
		inner = ollama.NewEmbeddingService(ollama.Config{BaseURL: cfg.BaseURL, Model: cfg.Model, Dimensions: dimensions})
	}

	if cfg.CacheRedisAddr == "" {
		return inner, nil
	}
	cached, err := cache.Dial(ctx, inner, cfg.CacheRedisAddr, cfg.CacheTTL, log)
	if err != nil {
		_ = inner.Close()
		return nil, err
	}
	return cached, nil
}

func buildStore(
	ctx context.Context,
	cfg domain.StoreSettings,
	embedder driven.EmbeddingService,
) (driven.VectorStore, driven.SchedulerStore, error) {
	switch cfg.Backend {
	case domain.StorePgvector:
		store, err := pgvector.Open(ctx, cfg.DSN, cfg.Dimensions, embedder)
		if err != nil {
			return nil, nil, err
		}
		return store, memory.NewSchedulerStore(), nil
	case domain.StoreMemory:
		return memory.NewVectorStore(embedder), memory.NewSchedulerStore(), nil
	default:
		store, err := sqlite.NewStore(cfg.DataDir, embedder)
		if err != nil {
			return nil, nil, err
		}
		return store, store.SchedulerStore(), nil
	}
}
