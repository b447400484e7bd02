package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"podsum/internal/app"
	"podsum/internal/feed"
	"podsum/internal/logging"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	var maxItems int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Process new episodes from the configured RSS feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max") {
				cfg.Feed.MaxItems = maxItems
			}
			return ctx.withApp(cmd.Context(), dryRun, func(a *app.App) error {
				out := cmd.OutOrStdout()
				stats, runErr := a.Poller().Run(cmd.Context(), func(runCtx context.Context, item feed.Item) error {
					outcome, err := a.Pipeline.Process(runCtx, item.Event)
					printOutcome(out, outcome)
					return err
				})
				if errors.Is(runErr, feed.ErrLocked) {
					fmt.Fprintln(out, "Another poll is in progress; skipping")
					return nil
				}
				if stats.Fetched == 0 && runErr == nil {
					fmt.Fprintln(out, "No new episodes")
				}
				if stats.Fetched > 0 {
					if err := a.Notifier.NotifyPollCompleted(cmd.Context(), stats.Processed, stats.Failed, stats.Duration); err != nil {
						a.Logger.Warn("poll notification failed", logging.Error(err))
					}
				}
				return runErr
			})
		},
	}

	cmd.Flags().IntVar(&maxItems, "max", 1, "Maximum number of new episodes to process")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Publish to an in-memory repository instead of the configured remote")
	return cmd
}
