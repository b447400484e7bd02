package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podsum/internal/app"
	"podsum/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the processing ledger",
	}
	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerShowCommand(ctx))
	return ledgerCmd
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), false, func(a *app.App) error {
				entries, err := a.Ledger.List(cmd.Context())
				if err != nil {
					return err
				}
				entries = filterEntries(entries, status)
				if asJSON {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.CanonicalID,
						string(e.Status),
						pullRequestLabel(e),
						strconv.Itoa(e.Attempts),
						e.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				writeRows(cmd.OutOrStdout(),
					[]string{"Canonical ID", "Status", "Pull Request", "Attempts", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	cmd.Flags().StringVar(&status, "status", "", "Only show entries with this status (pending, published, failed)")
	return cmd
}

func newLedgerShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <canonical-id>",
		Short: "Show one ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), false, func(a *app.App) error {
				entry, err := a.Ledger.Lookup(cmd.Context(), strings.TrimSpace(args[0]))
				if errors.Is(err, ledger.ErrNotFound) {
					return fmt.Errorf("no ledger entry for %q", args[0])
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entry)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Canonical ID: %s\n", entry.CanonicalID)
				fmt.Fprintf(out, "Status:       %s\n", entry.Status)
				fmt.Fprintf(out, "Branch:       %s\n", entry.Branch)
				fmt.Fprintf(out, "Pull request: %s\n", pullRequestLabel(entry))
				fmt.Fprintf(out, "Attempts:     %d\n", entry.Attempts)
				fmt.Fprintf(out, "Run ID:       %s\n", entry.RunID)
				fmt.Fprintf(out, "Published:    %s\n", yesNo(entry.Status == ledger.StatusPublished))
				if entry.Reason != "" {
					fmt.Fprintf(out, "Reason:       %s\n", entry.Reason)
				}
				fmt.Fprintf(out, "Updated:      %s\n", entry.UpdatedAt.Local().Format(time.DateTime))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the entry as JSON")
	return cmd
}

func filterEntries(entries []ledger.Entry, status string) []ledger.Entry {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return entries
	}
	filtered := entries[:0]
	for _, e := range entries {
		if string(e.Status) == status {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func pullRequestLabel(e ledger.Entry) string {
	if e.PullRequest == nil {
		return "-"
	}
	if e.PullRequest.Number > 0 {
		return "#" + strconv.Itoa(e.PullRequest.Number)
	}
	return e.PullRequest.URL
}
