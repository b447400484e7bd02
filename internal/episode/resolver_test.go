package episode_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"podsum/internal/episode"
	"podsum/internal/services"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
}

func TestResolveScenarioEpisodeOne(t *testing.T) {
	resolver := episode.NewResolver(episode.WithClock(fixedClock))
	id, err := resolver.Resolve(episode.Episode{Title: "Episode One", Published: "2026-02-13T10:00:00Z"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id.CanonicalID != "2026-02-13-episode-one" {
		t.Fatalf("unexpected canonical id %q", id.CanonicalID)
	}
	if id.ArtifactPath() != "summaries/2026-02-13-episode-one.md" {
		t.Fatalf("unexpected artifact path %q", id.ArtifactPath())
	}
	if id.BranchName() != "ai/podcast-2026-02-13-episode-one" {
		t.Fatalf("unexpected branch %q", id.BranchName())
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	resolver := episode.NewResolver()
	ep := episode.Episode{Title: "  The Go Show: Generics & You  ", Published: "Fri, 13 Feb 2026 10:00:00 +0000"}
	first, err := resolver.Resolve(ep)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := resolver.Resolve(ep)
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if next != first {
			t.Fatalf("identity changed between calls: %+v vs %+v", first, next)
		}
	}
	if first.CanonicalID != "2026-02-13-the-go-show-generics-you" {
		t.Fatalf("unexpected canonical id %q", first.CanonicalID)
	}
}

func TestResolveDateKeyUsesUTC(t *testing.T) {
	resolver := episode.NewResolver()
	id, err := resolver.Resolve(episode.Episode{Title: "Late Night", Published: "2026-02-13T22:30:00-05:00"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id.DateKey != "2026-02-14" {
		t.Fatalf("expected UTC date 2026-02-14, got %q", id.DateKey)
	}
}

func TestResolveFallsBackToClockForMissingOrBadDates(t *testing.T) {
	resolver := episode.NewResolver(episode.WithClock(fixedClock))
	for _, published := range []string{"", "not a date", "   "} {
		id, err := resolver.Resolve(episode.Episode{Title: "Undated", Published: published})
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", published, err)
		}
		if id.DateKey != "2026-03-02" {
			t.Fatalf("Resolve(%q): expected clock UTC date 2026-03-02, got %q", published, id.DateKey)
		}
	}
}

func TestResolveRejectsInvalidTitles(t *testing.T) {
	resolver := episode.NewResolver()
	for _, title := range []string{"", "   ", "!!! ---"} {
		_, err := resolver.Resolve(episode.Episode{Title: title, Published: "2026-02-13"})
		if !errors.Is(err, services.ErrInvalidInput) {
			t.Fatalf("Resolve(%q): expected ErrInvalidInput, got %v", title, err)
		}
	}
}

func TestResolveNonLatinTitleUsesHashedSlug(t *testing.T) {
	resolver := episode.NewResolver()
	first, err := resolver.Resolve(episode.Episode{Title: "日本語のポッドキャスト", Published: "2026-02-13"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !strings.HasPrefix(first.Slug, "episode-") || len(first.Slug) != len("episode-")+10 {
		t.Fatalf("unexpected fallback slug %q", first.Slug)
	}
	other, err := resolver.Resolve(episode.Episode{Title: "别的节目", Published: "2026-02-13"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if other.Slug == first.Slug {
		t.Fatalf("distinct non-Latin titles should not collide: %q", other.Slug)
	}
}

func TestResolveCapsSlugLength(t *testing.T) {
	resolver := episode.NewResolver(episode.WithMaxSlugLength(20))
	id, err := resolver.Resolve(episode.Episode{Title: "A Very Long Episode Title About Many Things", Published: "2026-02-13"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id.Slug != "a-very-long-episode" {
		t.Fatalf("unexpected slug %q", id.Slug)
	}
}

func TestResolveURLDisambiguationStaysWithinSlugCap(t *testing.T) {
	title := strings.Repeat("extraordinarily long episode title ", 4)
	for _, limit := range []int{episode.DefaultMaxSlugLength, 20} {
		resolver := episode.NewResolver(episode.WithURLDisambiguation(true), episode.WithMaxSlugLength(limit))
		id, err := resolver.Resolve(episode.Episode{Title: title, Published: "2026-02-13", EpisodeURL: "https://example.com/ep/1"})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if len(id.Slug) > limit {
			t.Fatalf("slug %q is %d chars, cap is %d", id.Slug, len(id.Slug), limit)
		}
		if !strings.HasPrefix(id.Slug, "extraordinarily-") || strings.Contains(id.Slug, "--") {
			t.Fatalf("unexpected slug %q", id.Slug)
		}
	}
}

func TestResolveSameTitleAndDateCollide(t *testing.T) {
	resolver := episode.NewResolver()
	a, _ := resolver.Resolve(episode.Episode{Title: "Weekly Roundup", Published: "2026-02-13T08:00:00Z", EpisodeURL: "https://example.com/a"})
	b, _ := resolver.Resolve(episode.Episode{Title: "weekly   roundup!", Published: "2026-02-13T20:00:00Z", EpisodeURL: "https://example.com/b"})
	if a.CanonicalID != b.CanonicalID {
		t.Fatalf("expected dedup collision, got %q and %q", a.CanonicalID, b.CanonicalID)
	}

	disambiguating := episode.NewResolver(episode.WithURLDisambiguation(true))
	c, _ := disambiguating.Resolve(episode.Episode{Title: "Weekly Roundup", Published: "2026-02-13", EpisodeURL: "https://example.com/a"})
	d, _ := disambiguating.Resolve(episode.Episode{Title: "Weekly Roundup", Published: "2026-02-13", EpisodeURL: "https://example.com/b"})
	if c.CanonicalID == d.CanonicalID {
		t.Fatalf("expected URL disambiguation to separate ids, both %q", c.CanonicalID)
	}
	if !strings.HasPrefix(c.CanonicalID, "2026-02-13-weekly-roundup-") {
		t.Fatalf("unexpected disambiguated id %q", c.CanonicalID)
	}
}
