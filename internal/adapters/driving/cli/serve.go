package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
)

var (
	serveHTTP     string
	serveSchedule time.Duration
	serveNoMCP    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled ingestion and the HTTP endpoints",
	Long: `Runs until interrupted. Ingests every type on the schedule and, when an
address is set, serves Prometheus metrics on /metrics and the MCP tools
on /mcp.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "listen address for /metrics and /mcp (default from config)")
	serveCmd.Flags().DurationVar(&serveSchedule, "schedule", 0, "ingestion interval (0 = configured default)")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if newScheduler == nil {
		return errors.New("scheduler not configured")
	}
	log := commandLogger()

	addr := serveHTTP
	if addr == "" {
		addr = metricsAddr
	}

	mux, err := serveMux()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := newScheduler(serveSchedule)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sched.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			log.Info("serving HTTP", zap.String("addr", addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	cmd.Println("Serving. Press Ctrl+C to stop.")
	err = g.Wait()
	return errors.Join(err, sched.Stop())
}

// serveMux mounts /metrics and, unless disabled, /mcp.
func serveMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	if !serveNoMCP && toolCatalog != nil && defaultParams != nil {
		server, err := mcp.NewServer(mcpPorts())
		if err != nil {
			return nil, err
		}
		mux.Handle("/mcp", server.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux, nil
}
