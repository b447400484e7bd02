package artifact

import (
	"strings"

	"podsum/internal/episode"
	"podsum/internal/services"
	"podsum/internal/textutil"
)

const (
	DefaultMaxBulletLength = 280

	maxShortBullets    = 5
	maxDetailedBullets = 12
	maxTakeaways       = 5
	maxActionItems     = 10

	minSentenceRunes = 20

	// DegradedNote is the literal sentence every transcript-less summary carries.
	DegradedNote   = "Transcript not available; summary is limited."
	extractiveNote = "Automated analysis was not available; bullets are excerpts from the transcript."
	emptySection   = "No items provided."
	unknownValue   = "Unknown"
	notProvided    = "Not provided"
)

// Builder renders artifacts under a repository layout.
type Builder struct {
	layout    episode.Layout
	maxBullet int
}

// Option customizes a Builder.
type Option func(*Builder)

// WithLayout sets the summaries directory used for artifact paths.
func WithLayout(layout episode.Layout) Option {
	return func(b *Builder) { b.layout = layout }
}

// WithMaxBulletLength bounds every bullet, in runes, including the ellipsis.
func WithMaxBulletLength(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxBullet = n
		}
	}
}

// NewBuilder returns a builder with the default layout and bullet bound.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{layout: episode.DefaultLayout(), maxBullet: DefaultMaxBulletLength}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders the summary for ep. An empty transcript is treated as absent.
// When analysis carries bullets they populate the sections verbatim (bounded);
// otherwise a transcript yields an extractive summary and no transcript yields
// metadata placeholders.
func (b *Builder) Build(ep episode.Episode, id episode.Identity, transcript string, analysis *Analysis) (Artifact, error) {
	title := textutil.CollapseWhitespace(ep.Title)
	if title == "" {
		return Artifact{}, services.Wrap(services.ErrInvalidInput, "build", "title", "title is empty", nil)
	}
	if id.CanonicalID == "" {
		return Artifact{}, services.Wrap(services.ErrInvalidInput, "build", "identity", "canonical id is empty", nil)
	}

	meta := metadata{
		title:      title,
		published:  textutil.CollapseWhitespace(ep.Published),
		episodeURL: strings.TrimSpace(ep.EpisodeURL),
		audioURL:   strings.TrimSpace(ep.AudioURL),
	}
	hasTranscript := strings.TrimSpace(transcript) != ""

	var s sections
	switch {
	case !analysis.Empty():
		s = b.fromAnalysis(analysis)
		s.source = SourceAnalysis
	case hasTranscript:
		s = b.fromTranscript(transcript)
		s.source = SourceTranscript
		s.notes = append(s.notes, extractiveNote)
	default:
		s = b.fromMetadata(meta)
		s.source = SourceMetadata
	}
	if !hasTranscript {
		s.notes = append([]string{DegradedNote}, s.notes...)
	}

	return Artifact{
		Path:         b.layout.ArtifactPath(id),
		Content:      []byte(render(meta, s)),
		Title:        meta.title,
		Published:    meta.published,
		EpisodeURL:   meta.episodeURL,
		ShortSummary: append([]string(nil), s.short...),
		Degraded:     !hasTranscript,
		Source:       s.source,
	}, nil
}

type metadata struct {
	title      string
	published  string
	episodeURL string
	audioURL   string
}

type sections struct {
	short     []string
	detailed  []string
	takeaways []string
	actions   []string
	notes     []string
	source    ContentSource
}

func (b *Builder) fromAnalysis(a *Analysis) sections {
	return sections{
		short:     b.bullets(a.ShortSummary, maxShortBullets),
		detailed:  b.bullets(a.DetailedSummary, maxDetailedBullets),
		takeaways: b.bullets(a.KeyTakeaways, maxTakeaways),
		actions:   b.bullets(a.ActionItems, maxActionItems),
	}
}

func (b *Builder) fromTranscript(transcript string) sections {
	sentences := textutil.Sentences(transcript, minSentenceRunes)
	if len(sentences) == 0 {
		sentences = []string{textutil.CollapseWhitespace(transcript)}
	}
	short := b.bullets(sentences, maxShortBullets)
	var rest []string
	if len(sentences) > len(short) {
		rest = sentences[len(short):]
	}
	return sections{
		short:    short,
		detailed: b.bullets(rest, maxDetailedBullets),
	}
}

func (b *Builder) fromMetadata(meta metadata) sections {
	published := valueOr(meta.published, unknownValue)
	short := []string{
		"Episode titled: " + meta.title,
		DegradedNote,
		"Please listen to the full episode for complete details.",
		"Published: " + published,
	}
	takeaways := []string{
		"Full transcript needed for detailed takeaways.",
		"Please listen to the episode directly.",
	}
	if meta.episodeURL != "" {
		short = append(short, "Available at: "+meta.episodeURL)
		takeaways = append(takeaways, "Episode URL: "+meta.episodeURL)
	}
	return sections{
		short: b.bullets(short, maxShortBullets),
		detailed: b.bullets([]string{
			"Detailed summary requires transcript analysis.",
			"Transcript was not available at the time of processing.",
			"Please refer to the episode URL for full content.",
		}, maxDetailedBullets),
		takeaways: b.bullets(takeaways, maxTakeaways),
	}
}

// bullets collapses whitespace, drops blanks, bounds each bullet, and keeps at
// most limit entries.
func (b *Builder) bullets(values []string, limit int) []string {
	out := make([]string, 0, min(len(values), limit))
	for _, value := range values {
		if len(out) == limit {
			break
		}
		value = stripListMarker(textutil.CollapseWhitespace(value))
		if value == "" {
			continue
		}
		out = append(out, textutil.Truncate(value, b.maxBullet))
	}
	return out
}

// stripListMarker drops a leading markdown list marker so bullets are not doubled.
func stripListMarker(value string) string {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(value, marker) {
			return strings.TrimSpace(value[len(marker):])
		}
	}
	return value
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
