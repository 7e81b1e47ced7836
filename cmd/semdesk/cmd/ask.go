package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

type askOptions struct {
	topK       int
	jsonOutput bool
}

func newAskCmd(g *globalOptions) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the most relevant indexed documents",
		Long: `Answer a question using only the content of indexed documents.

The best matching documents are passed to the language model as context; the
answer lists the documents it was grounded on.

Examples:
  semdesk ask "when does the lease end?"
  semdesk ask "who signed the NDA" --top-k 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				topK = a.cfg.Search.AnswerTopK
			}

			question := strings.Join(args, " ")
			ans, err := engine.AnswerQuestion(cmd.Context(), question, topK)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), answerView{Answer: ans.Text, Sources: hitViews(ans.Hits)})
			}
			return printAnswer(cmd.OutOrStdout(), question, ans)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Number of documents used as context (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the answer as JSON")
	return cmd
}
