// Package cli implements the sercha-rag command line on top of the driving ports.
package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/loaders"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

var (
	verbose  bool
	jsonLogs bool
)

// Services holds the driving ports used by the commands.
type Services struct {
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
	Tools     driving.ToolCatalog

	// Params is the default retrieval parameters document.
	Params *domain.Parameters

	// NewCheckRunner builds a runner answering with params.
	// parallelism <= 0 uses the configured default.
	NewCheckRunner func(parallelism int, params *domain.Parameters) driving.CheckRunner

	// NewScheduler builds the background ingestion scheduler.
	// interval <= 0 uses the configured default.
	NewScheduler func(interval time.Duration) driving.Scheduler

	// Watchers are keyed by type; only loaders that can watch appear.
	Watchers map[string]loaders.Watcher

	// MetricsHandler serves /metrics in serve --http.
	MetricsHandler http.Handler

	// MetricsAddr is the default serve --http address.
	MetricsAddr string
}

// SetupFunc builds the services once flags are parsed. The returned
// cleanup runs after the command finishes.
type SetupFunc func(ctx context.Context, log *zap.Logger) (*Services, func() error, error)

var (
	ingestionService driving.IngestionService
	retrievalService driving.RetrievalService
	toolCatalog      driving.ToolCatalog
	defaultParams    *domain.Parameters
	newCheckRunner   func(int, *domain.Parameters) driving.CheckRunner
	newScheduler     func(time.Duration) driving.Scheduler
	watchers         map[string]loaders.Watcher
	metricsHandler   http.Handler
	metricsAddr      string

	baseLogger *zap.Logger
	setup      SetupFunc
	cleanup    func() error
)

// skipSetup marks commands that run without configuration.
const skipSetup = "skip-setup"

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Retrieval-augmented context for documentation, samples and trainings",
	Long: `sercha-rag ingests knowledge domains into a vector store and answers
queries with merged, reranked passages.

Sources are configured in ~/.sercha-rag/config.toml. Environment variables
and a .env file in the working directory override the file.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline debug logs")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "log-json", false, "write logs as JSON lines")
}

// SetServices installs the services used by the commands.
func SetServices(s *Services) {
	ingestionService = s.Ingestion
	retrievalService = s.Retrieval
	toolCatalog = s.Tools
	defaultParams = s.Params
	newCheckRunner = s.NewCheckRunner
	newScheduler = s.NewScheduler
	watchers = s.Watchers
	metricsHandler = s.MetricsHandler
	metricsAddr = s.MetricsAddr
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. fn is called lazily by commands that need services.
func Execute(fn SetupFunc) error {
	setup = fn
	err := rootCmd.Execute()
	if cleanup != nil {
		err = errors.Join(err, cleanup())
		cleanup = nil
	}
	if baseLogger != nil {
		_ = baseLogger.Sync()
	}
	return err
}

func prepare(cmd *cobra.Command, _ []string) error {
	if baseLogger == nil {
		baseLogger = logger.New(logger.Options{
			Verbose: verbose,
			JSON:    jsonLogs,
			Output:  cmd.ErrOrStderr(),
		})
	}
	if cmd.Annotations[skipSetup] == "true" || setup == nil {
		return nil
	}

	services, done, err := setup(cmd.Context(), baseLogger)
	if err != nil {
		return err
	}
	setup = nil
	cleanup = done
	SetServices(services)
	return nil
}

// commandLogger returns the logger for the running command.
func commandLogger() *zap.Logger {
	return logger.OrNop(baseLogger)
}
