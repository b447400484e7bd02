package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podsum/internal/episode"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var published string
	var episodeURL string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Show the canonical ID, branch, and summary path for an episode",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ep := episode.Episode{
				Title:      strings.Join(args, " "),
				Published:  published,
				EpisodeURL: episodeURL,
			}
			resolver := episode.NewResolver(
				episode.WithMaxSlugLength(cfg.Identity.MaxSlugLength),
				episode.WithURLDisambiguation(cfg.Identity.DisambiguateByURL),
			)
			id, err := resolver.Resolve(ep)
			if err != nil {
				return err
			}
			layout := episode.Layout{SummariesDir: cfg.Repository.SummariesDir, BranchPrefix: cfg.Repository.BranchPrefix}
			if asJSON {
				return writeJSON(cmd, map[string]string{
					"canonical_id":  id.CanonicalID,
					"date_key":      id.DateKey,
					"slug":          id.Slug,
					"branch":        layout.BranchName(id),
					"artifact_path": layout.ArtifactPath(id),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Canonical ID: %s\n", id.CanonicalID)
			fmt.Fprintf(out, "Branch:       %s\n", layout.BranchName(id))
			fmt.Fprintf(out, "Summary:      %s\n", layout.ArtifactPath(id))
			return nil
		},
	}

	cmd.Flags().StringVar(&published, "published", "", "Publication date (ISO-8601 or RFC-822)")
	cmd.Flags().StringVar(&episodeURL, "url", "", "Episode URL (used when identity.disambiguate_by_url is set)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the identity as JSON")
	return cmd
}
