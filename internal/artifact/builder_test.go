package artifact_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"podsum/internal/artifact"
	"podsum/internal/episode"
	"podsum/internal/services"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func resolve(t *testing.T, ep episode.Episode) episode.Identity {
	t.Helper()
	id, err := episode.NewResolver().Resolve(ep)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	return id
}

func TestBuildDegradedScenario(t *testing.T) {
	ep := episode.Episode{Title: "Episode One", Published: "2026-02-13T10:00:00Z"}
	built, err := artifact.NewBuilder().Build(ep, resolve(t, ep), "", nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if built.Path != "summaries/2026-02-13-episode-one.md" {
		t.Fatalf("unexpected path %q", built.Path)
	}
	if built.FileName() != "2026-02-13-episode-one.md" {
		t.Fatalf("unexpected file name %q", built.FileName())
	}
	if !built.Degraded {
		t.Fatal("expected degraded artifact without transcript")
	}
	if built.Source != artifact.SourceMetadata {
		t.Fatalf("unexpected source %q", built.Source)
	}
	newGolden(t).Assert(t, "episode-one-degraded", built.Content)
}

func TestBuildAnalysisIsBoundedAndVerbatim(t *testing.T) {
	ep := episode.Episode{
		Title:      "Go Time: Concurrency",
		Published:  "Fri, 13 Feb 2026 10:00:00 +0000",
		EpisodeURL: "https://example.com/ep/42",
		AudioURL:   "https://cdn.example.com/42.mp3",
	}
	analysis := &artifact.Analysis{
		ShortSummary: []string{
			"Goroutines are cheap.",
			"   Channels   coordinate\n work. ",
			"",
			"- Select multiplexes channels.",
			"Context carries cancellation.",
			"Errgroup bounds concurrency.",
			"Sixth bullet is dropped.",
		},
		DetailedSummary: []string{"Intro to the scheduler.", "Deep dive into channel semantics."},
		ActionItems:     []string{"Read the Go memory model document end to end this week and take notes"},
	}
	builder := artifact.NewBuilder(artifact.WithMaxBulletLength(60))
	built, err := builder.Build(ep, resolve(t, ep), "full transcript text", analysis)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if built.Degraded {
		t.Fatal("expected non-degraded artifact when transcript is present")
	}
	if len(built.ShortSummary) != 5 {
		t.Fatalf("expected short summary capped at 5, got %d", len(built.ShortSummary))
	}
	newGolden(t).Assert(t, "analysis-bounded", built.Content)
}

func TestBuildTranscriptWithoutAnalysisIsExtractive(t *testing.T) {
	ep := episode.Episode{Title: "Testing in Go", EpisodeURL: "https://example.com/testing"}
	transcript := "Welcome back to the show everyone. Today we are talking about testing in Go. Short one. " +
		"Table driven tests keep cases readable.\nGolden files capture full outputs. " +
		"Helpers should call t.Helper first. Run the suite with the race detector."
	built, err := artifact.NewBuilder().Build(ep, episode.Identity{CanonicalID: "2026-02-13-testing-in-go"}, transcript, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if built.Source != artifact.SourceTranscript {
		t.Fatalf("unexpected source %q", built.Source)
	}
	newGolden(t).Assert(t, "transcript-extractive", built.Content)
}

func TestBuildKeepsDegradedNoteWhenAnalysisHasNoTranscript(t *testing.T) {
	ep := episode.Episode{Title: "Show Notes Only", Published: "2026-02-13"}
	analysis := &artifact.Analysis{ShortSummary: []string{"Generated from show notes."}}
	built, err := artifact.NewBuilder().Build(ep, resolve(t, ep), "  \n ", analysis)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	content := string(built.Content)
	if !strings.Contains(content, "> **Note:** "+artifact.DegradedNote) {
		t.Fatalf("expected degraded note, got:\n%s", content)
	}
	if !strings.Contains(content, "- Generated from show notes.") {
		t.Fatalf("expected analysis bullet, got:\n%s", content)
	}
	if strings.Contains(content, "## Action Items") {
		t.Fatalf("action items section should be omitted when empty:\n%s", content)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	ep := episode.Episode{Title: "Repeatable", Published: "2026-02-13T10:00:00Z", EpisodeURL: "https://example.com/r"}
	id := resolve(t, ep)
	analysis := &artifact.Analysis{KeyTakeaways: []string{"one", "two"}, ActionItems: []string{"act"}}
	builder := artifact.NewBuilder()
	first, err := builder.Build(ep, id, "Some transcript sentence that is long enough.", analysis)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := builder.Build(ep, id, "Some transcript sentence that is long enough.", analysis)
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}
		if !bytes.Equal(first.Content, next.Content) {
			t.Fatalf("content differs between builds:\n%s\n---\n%s", first.Content, next.Content)
		}
	}
	if !bytes.HasSuffix(first.Content, []byte("\n")) || bytes.HasSuffix(first.Content, []byte("\n\n")) {
		t.Fatalf("expected exactly one trailing newline")
	}
}

func TestBuildRejectsMissingTitleOrIdentity(t *testing.T) {
	builder := artifact.NewBuilder()
	if _, err := builder.Build(episode.Episode{Title: " "}, episode.Identity{CanonicalID: "x"}, "", nil); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank title, got %v", err)
	}
	if _, err := builder.Build(episode.Episode{Title: "ok"}, episode.Identity{}, "", nil); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank identity, got %v", err)
	}
}

func TestBuildHonoursLayout(t *testing.T) {
	ep := episode.Episode{Title: "Layout", Published: "2026-02-13"}
	builder := artifact.NewBuilder(artifact.WithLayout(episode.Layout{SummariesDir: "notes"}))
	built, err := builder.Build(ep, resolve(t, ep), "", nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if built.Path != "notes/2026-02-13-layout.md" {
		t.Fatalf("unexpected path %q", built.Path)
	}
}
