package main

import (
	"errors"

	"github.com/spf13/cobra"

	"podsum/internal/app"
	"podsum/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the repository, ledger, and optional collaborators are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), false, func(a *app.App) error {
				results := preflight.RunAll(cmd.Context(), a.Config, preflight.Targets{
					Remote: a.Remote,
					Ledger: a.Ledger,
				})
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				writeRows(cmd.OutOrStdout(), []string{"Check", "Status", "Detail"}, rows, nil)
				if preflight.Failed(results) {
					return errors.New("one or more checks failed")
				}
				return nil
			})
		},
	}
}
