package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"podsum/internal/app"
	"podsum/internal/episode"
	"podsum/internal/pipeline"
)

const payloadEnv = "PODCAST_PAYLOAD"

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var payload string
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Summarize one episode and open its pull request",
		Long: "Process reads an episode event as JSON from --payload, the " + payloadEnv + "\n" +
			"environment variable, or stdin, and runs it through the pipeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readPayload(payload, cmd.InOrStdin())
			if err != nil {
				return err
			}
			event, err := episode.ParseEvent(data)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), dryRun, func(a *app.App) error {
				outcome, runErr := a.Pipeline.Process(cmd.Context(), event)
				if asJSON {
					if err := writeJSON(cmd, outcomeView(outcome, runErr)); err != nil {
						return err
					}
				} else {
					printOutcome(cmd.OutOrStdout(), outcome)
				}
				return runErr
			})
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "Episode event JSON")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Publish to an in-memory repository instead of the configured remote")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	return cmd
}

func readPayload(flagValue string, stdin io.Reader) ([]byte, error) {
	if value := strings.TrimSpace(flagValue); value != "" {
		return []byte(value), nil
	}
	if value := strings.TrimSpace(os.Getenv(payloadEnv)); value != "" {
		return []byte(value), nil
	}
	if stdin == nil {
		return nil, errors.New("no payload: pass --payload, set " + payloadEnv + ", or pipe JSON on stdin")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read payload from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.New("no payload: pass --payload, set " + payloadEnv + ", or pipe JSON on stdin")
	}
	return data, nil
}

type outcomeJSON struct {
	State          string `json:"state"`
	RunID          string `json:"run_id"`
	CanonicalID    string `json:"canonical_id,omitempty"`
	ArtifactPath   string `json:"artifact_path,omitempty"`
	Branch         string `json:"branch,omitempty"`
	PullRequest    int    `json:"pull_request,omitempty"`
	PullRequestURL string `json:"pull_request_url,omitempty"`
	Existing       bool   `json:"existing"`
	Degraded       bool   `json:"degraded"`
	Attempts       int    `json:"publish_attempts"`
	Reason         string `json:"reason,omitempty"`
	Error          string `json:"error,omitempty"`
}

func outcomeView(o pipeline.Outcome, err error) outcomeJSON {
	view := outcomeJSON{
		State:          string(o.State),
		RunID:          o.RunID,
		CanonicalID:    o.Identity.CanonicalID,
		ArtifactPath:   o.ArtifactPath,
		Branch:         o.Branch,
		PullRequest:    o.PullRequest.Number,
		PullRequestURL: o.PullRequest.URL,
		Existing:       o.Existing,
		Degraded:       o.Degraded,
		Attempts:       o.PublishAttempts,
		Reason:         o.Reason,
	}
	if err != nil {
		view.Error = err.Error()
	}
	return view
}

func printOutcome(w io.Writer, o pipeline.Outcome) {
	switch o.State {
	case pipeline.StateDone:
		verb := "Opened"
		if o.Existing {
			verb = "Found existing"
		}
		fmt.Fprintf(w, "%s pull request #%d: %s\n", verb, o.PullRequest.Number, o.PullRequest.URL)
		fmt.Fprintf(w, "Branch: %s\n", o.Branch)
		fmt.Fprintf(w, "Summary: %s\n", o.ArtifactPath)
		if o.Degraded {
			fmt.Fprintln(w, "Note: transcript not available; summary is limited")
		}
	case pipeline.StateAborted:
		fmt.Fprintf(w, "Skipped %s: already processed\n", o.Identity.CanonicalID)
	default:
		label := o.Identity.CanonicalID
		if label == "" {
			label = "episode"
		}
		fmt.Fprintf(w, "Failed %s (%s)\n", label, o.State)
	}
}
