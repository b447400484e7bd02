package publisher

import (
	"strings"

	"podsum/internal/artifact"
)

// CommitMessage is the message of the commit that adds an artifact.
func CommitMessage(title string) string {
	return "Add podcast summary: " + title
}

// PullRequestTitle is the stable pull request title for an episode.
func PullRequestTitle(title string) string {
	return "Podcast Summary: " + title
}

// PullRequestBody renders episode metadata, the short summary, the degraded
// note when no transcript was available, and a relative link to the artifact.
func PullRequestBody(a artifact.Artifact) string {
	var b strings.Builder
	b.WriteString("## Podcast Summary\n\n")
	b.WriteString("**Episode:** ")
	b.WriteString(a.Title)
	b.WriteString("\n**Published:** ")
	b.WriteString(orDefault(a.Published, "Unknown"))
	b.WriteString("\n**Source:** ")
	b.WriteString(orDefault(a.EpisodeURL, "Not provided"))
	b.WriteString("\n\n### Short Summary\n\n")
	for _, bullet := range a.ShortSummary {
		b.WriteString("- ")
		b.WriteString(bullet)
		b.WriteByte('\n')
	}
	if a.Degraded {
		b.WriteString("\n> **Note:** ")
		b.WriteString(artifact.DegradedNote)
		b.WriteByte('\n')
	}
	b.WriteString("\n**Full summary:** [View file](")
	b.WriteString(a.Path)
	b.WriteString(")\n")
	return b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
