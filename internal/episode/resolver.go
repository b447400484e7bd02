package episode

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"podsum/internal/services"
	"podsum/internal/textutil"
)

const (
	// DefaultMaxSlugLength caps slugs so branch names and file names stay short.
	DefaultMaxSlugLength = 60
	dateKeyLayout        = "2006-01-02"

	// urlSuffixLen is the "-" plus six hex digits added by URL disambiguation.
	urlSuffixLen = 7
)

// Resolver derives identities from episodes.
type Resolver struct {
	maxSlug           int
	disambiguateByURL bool
	now               func() time.Time
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithMaxSlugLength overrides the slug length cap.
func WithMaxSlugLength(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSlug = n
		}
	}
}

// WithURLDisambiguation appends a short hash of the episode URL to the slug so
// distinct episodes that share a title and date stay distinct.
func WithURLDisambiguation(enabled bool) Option {
	return func(r *Resolver) {
		r.disambiguateByURL = enabled
	}
}

// WithClock replaces the clock used when the publication date is missing or unparseable.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver constructs a resolver with the default slug policy.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{maxSlug: DefaultMaxSlugLength, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve derives the canonical identity for ep. It fails with
// services.ErrInvalidInput when the title is blank or contains no letters or
// digits. A missing or unparseable publication date falls back to the
// resolver's current UTC date.
func (r *Resolver) Resolve(ep Episode) (Identity, error) {
	title := strings.TrimSpace(ep.Title)
	if title == "" {
		return Identity{}, services.Wrap(services.ErrInvalidInput, "resolve", "title", "title is empty", nil)
	}
	if !textutil.HasLetterOrDigit(title) {
		return Identity{}, services.Wrap(services.ErrInvalidInput, "resolve", "title", "title has no letters or digits", nil)
	}

	var slug string
	if u := strings.TrimSpace(ep.EpisodeURL); r.disambiguateByURL && u != "" {
		// The suffix counts against the cap.
		slug = r.slug(title, max(r.maxSlug-urlSuffixLen, 1)) + "-" + shortHash(u, urlSuffixLen-1)
	} else {
		slug = r.slug(title, r.maxSlug)
	}

	dateKey := r.dateKey(ep.Published)
	return Identity{
		DateKey:     dateKey,
		Slug:        slug,
		CanonicalID: dateKey + "-" + slug,
	}, nil
}

func (r *Resolver) slug(title string, maxLen int) string {
	if slug := textutil.Slugify(title, maxLen); slug != "" {
		return slug
	}
	// Titles written entirely in non-Latin scripts fold to nothing.
	return "episode-" + shortHash(title, 10)
}

func (r *Resolver) dateKey(published string) string {
	if t, ok := ParsePublished(published); ok {
		return t.Format(dateKeyLayout)
	}
	return r.now().UTC().Format(dateKeyLayout)
}

// ParsePublished parses ISO-8601, RFC-822/1123, and the other common feed date
// formats, returning the instant in UTC.
func ParsePublished(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func shortHash(value string, n int) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:n]
}
