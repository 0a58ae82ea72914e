package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	ingestSource string
	ingestWatch  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [type]",
	Short: "Ingest sources into the vector store",
	Long: `Loads every source of a knowledge domain, compares content hashes with
the stored chunks and re-chunks only what changed.
If a type is provided, only that domain is ingested.
Otherwise, all domains are ingested concurrently.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "re-ingest a single source of the type")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "keep running and re-ingest changed sources")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := cmd.Context()
	log := commandLogger()

	if len(args) == 0 {
		if ingestSource != "" || ingestWatch {
			return errors.New("--source and --watch require a type")
		}
		cmd.Println("Ingesting all types...")
		reports, err := ingestionService.IngestEverything(ctx, log)
		for _, r := range reports {
			printReport(cmd, r)
		}
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		return nil
	}

	typ := args[0]
	var (
		report *domain.IngestReport
		err    error
	)
	if ingestSource != "" {
		report, err = ingestionService.IngestRecord(ctx, log, domain.SourceRecord{Type: typ, Source: ingestSource})
	} else {
		cmd.Printf("Ingesting %s...\n", typ)
		report, err = ingestionService.IngestType(ctx, log, typ)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printReport(cmd, report)

	if ingestWatch {
		return watchType(cmd, log, typ)
	}
	return nil
}

// watchType re-ingests single sources as the loader reports them until interrupted.
func watchType(cmd *cobra.Command, log *zap.Logger, typ string) error {
	w, ok := watchers[typ]
	if !ok {
		return fmt.Errorf("%w: %s sources cannot be watched", domain.ErrUnsupported, typ)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	changes, err := w.Watch(ctx, log)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s for changes. Press Ctrl+C to stop.\n", typ)

	for id := range changes {
		report, err := ingestionService.IngestRecord(ctx, log, domain.SourceRecord{Type: typ, Source: id})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Warn("re-ingest failed", zap.String("source", id), zap.Error(err))
			continue
		}
		printReport(cmd, report)
	}
	return nil
}

func printReport(cmd *cobra.Command, r *domain.IngestReport) {
	if r == nil {
		return
	}
	st := newStyles(cmd.OutOrStdout())
	style := st.Success
	switch {
	case r.Failed > 0:
		style = st.Warning
	case r.Status == domain.StatusSourceNotFound || r.Status == domain.StatusNoSources:
		style = st.Muted
	}
	cmd.Println("  " + style.Render(r.String()))
}
