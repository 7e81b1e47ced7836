package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semdesk/internal/domain/batch"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <folder>",
		Short: "Index a folder and reindex it as files change",
		Long: `Index a folder once, then watch it for changes.

Created and modified documents are converted and embedded after a short
quiet period. Deleted documents are removed from the index.

Examples:
  semdesk watch ~/Documents
  semdesk watch ./papers --log-level debug`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, g.env)
			if err != nil {
				return err
			}
			defer a.Close()
			return watchLoop(cmd.Context(), a, args[0])
		},
	}
	return cmd
}

// watchLoop runs an initial pass over folder and then follows its changes
// until ctx is done.
func watchLoop(ctx context.Context, a *app, folder string) error {
	report, err := a.Index(ctx, folder, false)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("initial index of %s: %w", folder, err)
	}
	a.log.Info("Initial index complete",
		zap.String("folder", folder),
		zap.Int("written", len(report.Written)),
		zap.Int("failed", report.Count(batch.ActionFailed)),
	)

	if err := a.newWatcher().Run(ctx, folder, a.onChange(folder)); err != nil {
		return fmt.Errorf("watch %s: %w", folder, err)
	}
	return nil
}
