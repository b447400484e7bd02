package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/mmcdole/gofeed"

	"podsum/internal/episode"
	"podsum/internal/logging"
	"podsum/internal/services"
)

const (
	defaultRequestTimeout = 30 * time.Second
	taskType              = "podcast_summary"
	sourceName            = "rss"
)

// ErrLocked reports another poller holding the cursor lock.
var ErrLocked = errors.New("feed cursor is locked by another poller")

// Item is a feed entry ready for the pipeline.
type Item struct {
	ID    string
	Event episode.Event
}

// Handler processes one feed item. A nil error advances the cursor past it.
type Handler func(ctx context.Context, item Item) error

// Stats summarizes one poll.
type Stats struct {
	Fetched   int
	Processed int
	Failed    int
	Duration  time.Duration
}

// Poller reads a feed and hands new items to a Handler.
type Poller struct {
	url        string
	cursorPath string
	maxItems   int
	parser     *gofeed.Parser
	lock       *flock.Flock
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Poller.
type Option func(*Poller)

// WithMaxItems bounds how many new items one poll processes.
func WithMaxItems(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxItems = n
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(p *Poller) {
		if client != nil {
			p.parser.Client = client
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPoller constructs a poller for feedURL that stores its cursor at cursorPath.
func NewPoller(feedURL, cursorPath string, opts ...Option) *Poller {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: defaultRequestTimeout}
	p := &Poller{
		url:        strings.TrimSpace(feedURL),
		cursorPath: cursorPath,
		maxItems:   1,
		parser:     parser,
		lock:       flock.New(cursorPath + ".lock"),
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "feed")
	return p
}

// Fetch parses the feed and returns its items newest first.
func (p *Poller) Fetch(ctx context.Context) ([]Item, error) {
	if p.url == "" {
		return nil, services.Wrap(services.ErrConfiguration, "feed", "fetch", "feed url is not configured (set feed.url or RSS_URL)", nil)
	}
	parsed, err := p.parser.ParseURLWithContext(p.url, ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "feed", "fetch", p.url, err)
	}
	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if item, ok := p.convert(entry); ok {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return publishedAt(items[i]).After(publishedAt(items[j]))
	})
	return items, nil
}

// Pending returns the items newer than the cursor, oldest first, bounded by
// the configured maximum. Once a cursor exists, items past the bound are
// offered on later polls.
func (p *Poller) Pending(ctx context.Context) ([]Item, error) {
	items, err := p.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := LoadCursor(p.cursorPath)
	if err != nil {
		return nil, err
	}
	var fresh []Item
	for _, item := range items {
		if cursor.LastGUID != "" && item.ID == cursor.LastGUID {
			break
		}
		fresh = append(fresh, item)
	}
	// Without a cursor start from the newest items; with one, keep the oldest
	// so the cursor walks forward through a backlog.
	if cursor.LastGUID == "" && len(fresh) > p.maxItems {
		fresh = fresh[:p.maxItems]
	}
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}
	if len(fresh) > p.maxItems {
		fresh = fresh[:p.maxItems]
	}
	return fresh, nil
}

// Run locks the cursor, processes pending items in order, and advances the
// cursor after each success. Processing stops at the first failure so the
// failed item is offered again on the next poll.
func (p *Poller) Run(ctx context.Context, handle Handler) (Stats, error) {
	started := p.now()
	var stats Stats
	locked, err := p.lock.TryLock()
	if err != nil {
		return stats, fmt.Errorf("acquire cursor lock: %w", err)
	}
	if !locked {
		return stats, ErrLocked
	}
	defer func() {
		if err := p.lock.Unlock(); err != nil {
			p.logger.Warn("failed to release cursor lock", logging.Error(err))
		}
	}()

	items, err := p.Pending(ctx)
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(items)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("feed polled", logging.String("url", p.url), logging.Int("new_items", len(items)))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := handle(ctx, item); err != nil {
			stats.Failed++
			stats.Duration = p.now().Sub(started)
			return stats, fmt.Errorf("process %q: %w", item.Event.Title, err)
		}
		stats.Processed++
		if err := SaveCursor(p.cursorPath, Cursor{LastGUID: item.ID, UpdatedAt: p.now().UTC()}); err != nil {
			return stats, err
		}
	}
	stats.Duration = p.now().Sub(started)
	return stats, nil
}

func (p *Poller) convert(entry *gofeed.Item) (Item, bool) {
	if entry == nil || strings.TrimSpace(entry.Title) == "" {
		return Item{}, false
	}
	id := firstNonEmpty(entry.GUID, entry.Link, entry.Title)
	published := strings.TrimSpace(entry.Published)
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC().Format(time.RFC3339)
	}
	return Item{
		ID: id,
		Event: episode.Event{
			Title:      strings.TrimSpace(entry.Title),
			Published:  published,
			EpisodeURL: strings.TrimSpace(entry.Link),
			AudioURL:   audioEnclosure(entry.Enclosures),
			TaskType:   taskType,
			Source:     sourceName,
			RSSURL:     p.url,
		},
	}, true
}

func audioEnclosure(enclosures []*gofeed.Enclosure) string {
	var fallback string
	for _, enc := range enclosures {
		if enc == nil || strings.TrimSpace(enc.URL) == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "audio/") {
			return strings.TrimSpace(enc.URL)
		}
		if fallback == "" {
			fallback = strings.TrimSpace(enc.URL)
		}
	}
	return fallback
}

func publishedAt(item Item) time.Time {
	if t, ok := episode.ParsePublished(item.Event.Published); ok {
		return t
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
