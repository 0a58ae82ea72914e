package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/params"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// snippetLength bounds the passage preview in table output.
const snippetLength = 160

var (
	searchDomains []string
	searchParams  string
	searchTrace   bool
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge domains",
	Long: `Runs the query against every enabled retrieval tool concurrently.
Each domain is searched by similarity, filtered by the post-retrieval
rules, reranked and capped. The results are merged with reranked
documents first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchDomains, "domain", "d", nil, "restrict to tool names or types (repeatable)")
	searchCmd.Flags().StringVar(&searchParams, "params", "", "retrieval parameters YAML file")
	searchCmd.Flags().BoolVar(&searchTrace, "trace", false, "print the request log")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchHit is the JSON form of a result document.
type searchHit struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Score       *float64       `json:"score,omitempty"`
	RerankScore *float64       `json:"rerankScore,omitempty"`
	Metadata    map[string]any `json:"metadata"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.SearchOptions{Domains: searchDomains, Params: defaultParams}
	if searchParams != "" {
		p, err := params.Load(searchParams)
		if err != nil {
			return err
		}
		opts.Params = p
	}

	result, err := retrievalService.Search(cmd.Context(), commandLogger(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	outputSearchTable(cmd, result)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, result *domain.SearchResult) error {
	out := struct {
		Results []searchHit `json:"results"`
		Trace   []string    `json:"trace,omitempty"`
	}{Results: make([]searchHit, len(result.Documents))}

	for i := range result.Documents {
		doc := &result.Documents[i]
		hit := searchHit{ID: doc.ID, Text: doc.Text, Score: doc.Score, Metadata: doc.Metadata}
		if rr, ok := doc.RerankScore(); ok {
			hit.RerankScore = &rr
		}
		out.Results[i] = hit
	}
	if searchTrace {
		out.Trace = result.Trace
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, result *domain.SearchResult) {
	st := newStyles(cmd.OutOrStdout())

	if searchTrace {
		cmd.Println(st.Title.Render("Trace:"))
		for _, line := range result.Trace {
			cmd.Println("  " + st.Muted.Render(line))
		}
		cmd.Println()
	}

	if len(result.Documents) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println(st.Title.Render("Results:"))
	cmd.Println()
	for i := range result.Documents {
		doc := &result.Documents[i]
		// Format: [N] url (type, score[, rerank])
		scores := doc.Type()
		if doc.Score != nil {
			scores += fmt.Sprintf(", %.2f", *doc.Score)
		}
		if rr, ok := doc.RerankScore(); ok {
			scores += fmt.Sprintf(", rerank %.2f", rr)
		}
		cmd.Printf("  [%d] %s (%s)\n", i+1, st.Name.Render(doc.URLOrSource()), scores)
		cmd.Printf("      %s\n", st.Muted.Render(snippet(doc.Text)))
		cmd.Println()
	}
}

// snippet flattens text to one line and truncates it to snippetLength runes.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= snippetLength {
		return text
	}
	return string([]rune(text)[:snippetLength]) + "..."
}
