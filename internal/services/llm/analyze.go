package llm

import (
	"context"
	"fmt"
	"strings"

	"podsum/internal/artifact"
	"podsum/internal/episode"
	"podsum/internal/services"
	"podsum/internal/textutil"
)

// SummaryPrompt instructs the model to return the four summary sections.
const SummaryPrompt = `You summarize podcast episodes for a reading list.
Respond with JSON only, using exactly these keys:
{"shortSummary": [string], "detailedSummary": [string], "keyTakeaways": [string], "actionItems": [string]}
Rules:
- shortSummary: at most 5 one-sentence bullets.
- detailedSummary: 5 to 12 bullets covering the episode in order.
- keyTakeaways: at most 5 bullets.
- actionItems: concrete things a listener could do; use an empty list when there are none.
- Plain sentences only. No markdown, no numbering, no leading dashes.
- Use only facts stated in the transcript.`

// Analyze asks the model for a structured summary of the transcript. Without a
// transcript there is nothing to ground a summary on, so it returns nil.
func (c *Client) Analyze(ctx context.Context, ep episode.Episode, transcript string) (*artifact.Analysis, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, nil
	}
	excerpt := textutil.Truncate(textutil.CollapseWhitespace(transcript), c.cfg.MaxTranscriptChars)

	var user strings.Builder
	fmt.Fprintf(&user, "Title: %s\n", ep.Title)
	if ep.Published != "" {
		fmt.Fprintf(&user, "Published: %s\n", ep.Published)
	}
	if ep.EpisodeURL != "" {
		fmt.Fprintf(&user, "URL: %s\n", ep.EpisodeURL)
	}
	user.WriteString("\nTranscript:\n")
	user.WriteString(excerpt)

	content, err := c.CompleteJSON(ctx, SummaryPrompt, user.String())
	if err != nil {
		return nil, err
	}
	var analysis artifact.Analysis
	if err := DecodeLLMJSON(content, &analysis); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "analyze", "parse payload", err)
	}
	analysis.ShortSummary = cleanBullets(analysis.ShortSummary)
	analysis.DetailedSummary = cleanBullets(analysis.DetailedSummary)
	analysis.KeyTakeaways = cleanBullets(analysis.KeyTakeaways)
	analysis.ActionItems = cleanBullets(analysis.ActionItems)
	if analysis.Empty() {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "analyze", "model returned no bullets", nil)
	}
	return &analysis, nil
}

func cleanBullets(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
