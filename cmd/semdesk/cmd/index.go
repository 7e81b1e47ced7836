package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type indexOptions struct {
	force      bool
	outputRoot string
	jsonOutput bool
}

func newIndexCmd(g *globalOptions) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <folder>",
		Short: "Convert, summarize and embed every document in a folder",
		Long: `Index a folder of documents.

Each matching file is converted to markdown under the output root, summarized
into a description with tags and embedded. Unchanged files are skipped, files
with markdown but missing records are backfilled.

Examples:
  semdesk index ~/Documents
  semdesk index ~/Documents --force
  semdesk index ./papers --output-root /tmp/semdesk`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, "cli")
			if err != nil {
				return err
			}
			defer a.Close()
			if opts.outputRoot != "" {
				a.outputRoot = opts.outputRoot
			}

			report, err := a.Index(cmd.Context(), args[0], opts.force)
			if err != nil {
				return fmt.Errorf("failed to build markdown index: %w", err)
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), reportView(report))
			}
			return printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report)
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Reconvert every file even when markdown is up to date")
	cmd.Flags().StringVarP(&opts.outputRoot, "output-root", "o", "", "Directory for generated markdown")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the run report as JSON")
	return cmd
}
