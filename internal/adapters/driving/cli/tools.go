package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/params"
)

var toolsParams string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the enabled retrieval tools",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().StringVar(&toolsParams, "params", "", "retrieval parameters YAML file")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, _ []string) error {
	if toolCatalog == nil {
		return errors.New("tool catalog not configured")
	}

	p := defaultParams
	if toolsParams != "" {
		loaded, err := params.Load(toolsParams)
		if err != nil {
			return err
		}
		p = loaded
	}

	tools, err := toolCatalog.Catalog(commandLogger(), p)
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		cmd.Println("No tools enabled.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	for _, t := range tools {
		cmd.Println(st.Name.Render(t.Name()))
		cmd.Printf("  %s\n", t.Description())
	}
	return nil
}
