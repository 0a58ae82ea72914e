package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/params"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	checkParallel int
	checkParams   string
	checkJSON     bool
	checkVerbose  bool
)

var checkCmd = &cobra.Command{
	Use:   "check [checks.yaml]",
	Short: "Run evaluation checks against retrieval",
	Long: `Answers every question in the checks file with the retrieval pipeline
and scores the answer twice: the fraction of expectations that pass
(script score) and the token overlap with the reference answer
(semantic score). Checks run on a bounded worker pool; a failing check
is reported and never stops the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&checkParallel, "parallel", "p", 0, "number of concurrent checks (0 = configured default)")
	checkCmd.Flags().StringVar(&checkParams, "params", "", "retrieval parameters YAML file")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output the summary as JSON")
	checkCmd.Flags().BoolVar(&checkVerbose, "show-logs", false, "print the log of failed checks")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if newCheckRunner == nil {
		return errors.New("check runner not configured")
	}

	checks, err := params.LoadChecks(args[0])
	if err != nil {
		return err
	}

	p := defaultParams
	if checkParams != "" {
		if p, err = params.Load(checkParams); err != nil {
			return err
		}
	}

	summary, err := newCheckRunner(checkParallel, p).Run(cmd.Context(), commandLogger(), checks)
	if err != nil {
		return fmt.Errorf("check run failed: %w", err)
	}

	if checkJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printSummary(cmd, summary)
	return nil
}

func printSummary(cmd *cobra.Command, s *domain.CheckRunSummary) {
	st := newStyles(cmd.OutOrStdout())

	for i := range s.Results {
		r := &s.Results[i]
		if r.Failed {
			cmd.Printf("  %s %s: %s\n", st.Error.Render("FAIL"), r.CheckID, r.Error)
			if checkVerbose {
				for _, line := range r.Log {
					cmd.Println("      " + st.Muted.Render(line))
				}
			}
			continue
		}
		cmd.Printf("  %s %s [%s] script %.2f, semantic %.2f (%s)\n",
			st.Success.Render("ok"), r.CheckID, r.Category, r.ScriptScore, r.SemanticScore, r.Duration.Round(time.Millisecond))
	}

	cmd.Println()
	cmd.Println(st.Title.Render(fmt.Sprintf("Checks: %d, failed: %d", len(s.Results), s.Failed)))
	cmd.Printf("Script score:   %.3f\n", s.ScriptScore)
	cmd.Printf("Semantic score: %.3f\n", s.SemanticScore)
}
