package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

type searchOptions struct {
	topK       int
	variant    string
	jsonOutput bool
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank indexed documents by semantic similarity",
		Long: `Search indexed documents.

The document variant compares the query with whole documents, the tags variant
with individual tags; an exact tag match scores 1.

Examples:
  semdesk search "rental agreement"
  semdesk search invoice --variant tags --top-k 10
  semdesk search "travel plans" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := domain.ParseVariant(opts.variant)
			if err != nil {
				return err
			}
			return runSearch(cmd, g, strings.Join(args, " "), v, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVar(&opts.variant, "variant", string(domain.VariantDocument), "Embedding variant: document, tags")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func newTagsCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "tags <query>",
		Short: "Rank indexed documents by tag similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, g, strings.Join(args, " "), domain.VariantTags, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, g *globalOptions, query string, v domain.Variant, opts searchOptions) error {
	a, err := newApp(cmd.Context(), g, "cli")
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine()
	if err != nil {
		return err
	}
	topK := opts.topK
	if topK <= 0 {
		topK = a.cfg.Search.TopK
	}

	hits, err := engine.Search(cmd.Context(), query, v, topK)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), hitViews(hits))
	}
	return printHits(cmd.OutOrStdout(), query, v, hits)
}
