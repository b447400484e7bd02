package episode_test

import (
	"errors"
	"testing"

	"podsum/internal/episode"
	"podsum/internal/services"
)

func TestParseEventToleratesExtraFields(t *testing.T) {
	payload := []byte(`{"taskType":"podcast_summary","source":"rss","rssUrl":"https://example.com/feed","title":" Episode One ","published":"2026-02-13T10:00:00Z","audioUrl":"https://cdn.example.com/1.mp3"}`)
	event, err := episode.ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent returned error: %v", err)
	}
	ep := event.Episode()
	if ep.Title != "Episode One" {
		t.Fatalf("expected trimmed title, got %q", ep.Title)
	}
	if ep.AudioURL != "https://cdn.example.com/1.mp3" {
		t.Fatalf("unexpected audio url %q", ep.AudioURL)
	}
	if event.Source != "rss" {
		t.Fatalf("expected source to be kept, got %q", event.Source)
	}
}

func TestParseEventRejectsMissingTitle(t *testing.T) {
	for _, payload := range []string{`{"published":"2026-02-13"}`, `{"title":"   "}`, `not json`, `[]`} {
		if _, err := episode.ParseEvent([]byte(payload)); !errors.Is(err, services.ErrInvalidInput) {
			t.Fatalf("ParseEvent(%s): expected ErrInvalidInput, got %v", payload, err)
		}
	}
}

func TestLayoutOverrides(t *testing.T) {
	id := episode.Identity{DateKey: "2026-02-13", Slug: "episode-one", CanonicalID: "2026-02-13-episode-one"}
	layout := episode.Layout{SummariesDir: "notes/podcasts", BranchPrefix: "bot/"}
	if got := layout.ArtifactPath(id); got != "notes/podcasts/2026-02-13-episode-one.md" {
		t.Fatalf("unexpected artifact path %q", got)
	}
	if got := layout.BranchName(id); got != "bot/2026-02-13-episode-one" {
		t.Fatalf("unexpected branch %q", got)
	}
}
