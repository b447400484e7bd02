package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"podsum/internal/logging"
	"podsum/internal/services"
)

// DefaultStaleAfter is how long a pending entry blocks other runs before it is
// considered abandoned by a crashed run.
const DefaultStaleAfter = time.Hour

// Ledger applies entry transitions over a Store.
type Ledger struct {
	store      Store
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithStaleAfter overrides how long pending entries are honoured.
func WithStaleAfter(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.staleAfter = d
		}
	}
}

// WithClock replaces the ledger clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New constructs a ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, staleAfter: DefaultStaleAfter, now: time.Now, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.NewComponentLogger(l.logger, "ledger")
	return l
}

// Lookup returns the entry for canonicalID or ErrNotFound.
func (l *Ledger) Lookup(ctx context.Context, canonicalID string) (Entry, error) {
	entry, _, err := l.load(ctx, canonicalID)
	return entry, err
}

// Reserve transitions canonicalID to pending for the calling run. Absent and
// failed entries are reserved; published entries always yield
// ErrAlreadyExists; pending entries yield ErrAlreadyExists until they are older
// than the stale threshold. A lost compare-and-swap yields ErrAlreadyExists
// only when the re-read entry blocks this run; otherwise the claim is retried
// once and then reported as a retryable services.ErrConflict.
func (l *Ledger) Reserve(ctx context.Context, canonicalID, branch string) (*Reservation, error) {
	if err := validateKey(canonicalID); err != nil {
		return nil, err
	}
	res, err := l.reserve(ctx, canonicalID, branch)
	if errors.Is(err, errContended) {
		l.logger.Info("ledger write rejected without a blocking entry, retrying",
			logging.String(logging.FieldCanonicalID, canonicalID),
			logging.Error(err),
		)
		res, err = l.reserve(ctx, canonicalID, branch)
	}
	if errors.Is(err, errContended) {
		return nil, services.Wrap(services.ErrConflict, "ledger", "reserve", canonicalID, err)
	}
	return res, err
}

func (l *Ledger) reserve(ctx context.Context, canonicalID, branch string) (*Reservation, error) {
	runID, _ := services.RunIDFromContext(ctx)
	now := l.now().UTC()

	current, version, err := l.load(ctx, canonicalID)
	switch {
	case errors.Is(err, ErrNotFound):
		entry := Entry{
			CanonicalID: canonicalID,
			Status:      StatusPending,
			Branch:      branch,
			RunID:       runID,
			Attempts:    1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return l.claim(ctx, entry, "", false, now)
	case err != nil:
		return nil, err
	}

	switch current.Status {
	case StatusPublished:
		return nil, fmt.Errorf("%w: %s is published", ErrAlreadyExists, canonicalID)
	case StatusPending:
		age := now.Sub(current.UpdatedAt)
		if runID != "" && current.RunID == runID {
			// A write reported as rejected that nevertheless landed.
			break
		}
		if age < l.staleAfter {
			return nil, fmt.Errorf("%w: %s is pending for run %s", ErrAlreadyExists, canonicalID, current.RunID)
		}
		l.logger.Warn("reclaiming stale pending entry",
			logging.String(logging.FieldCanonicalID, canonicalID),
			logging.String("previous_run_id", current.RunID),
			logging.Duration("age", age),
		)
	case StatusFailed:
	default:
		return nil, fmt.Errorf("ledger entry %s has unknown status %q", canonicalID, current.Status)
	}

	next := current
	next.Status = StatusPending
	next.Branch = branch
	next.RunID = runID
	next.Reason = ""
	next.Attempts++
	next.UpdatedAt = now
	return l.claim(ctx, next, version, true, now)
}

func (l *Ledger) claim(ctx context.Context, entry Entry, expected string, reclaimed bool, now time.Time) (*Reservation, error) {
	version, err := l.save(ctx, entry, expected)
	if errors.Is(err, ErrVersionMismatch) {
		current, _, lookupErr := l.load(ctx, entry.CanonicalID)
		if lookupErr == nil && l.blocks(current, entry.RunID, now) {
			return nil, fmt.Errorf("%w: %s is %s (run %s)", ErrAlreadyExists, entry.CanonicalID, current.Status, current.RunID)
		}
		return nil, fmt.Errorf("%w: %s: %v", errContended, entry.CanonicalID, err)
	}
	if err != nil {
		return nil, err
	}
	return &Reservation{
		CanonicalID: entry.CanonicalID,
		Branch:      entry.Branch,
		RunID:       entry.RunID,
		Reclaimed:   reclaimed,
		entry:       entry,
		version:     version,
	}, nil
}

// blocks reports whether current keeps runID from processing the episode.
func (l *Ledger) blocks(current Entry, runID string, now time.Time) bool {
	switch current.Status {
	case StatusPublished:
		return true
	case StatusPending:
		if runID != "" && current.RunID == runID {
			return false
		}
		return now.Sub(current.UpdatedAt) < l.staleAfter
	default:
		return false
	}
}

// Commit transitions a reserved entry to published. A publication without a
// pull request reference is rejected so no entry is marked published
// without proof.
func (l *Ledger) Commit(ctx context.Context, res *Reservation, pub Publication) (Entry, error) {
	if res == nil {
		return Entry{}, errors.New("commit: nil reservation")
	}
	if pub.PullRequest.Number <= 0 && strings.TrimSpace(pub.PullRequest.URL) == "" {
		return Entry{}, services.Wrap(services.ErrInvalidInput, "ledger", "commit", "pull request reference is required", nil)
	}
	entry := res.entry
	entry.Status = StatusPublished
	if pub.Branch != "" {
		entry.Branch = pub.Branch
	}
	ref := pub.PullRequest
	entry.PullRequest = &ref
	entry.Reason = ""
	entry.UpdatedAt = l.now().UTC()
	return l.transition(ctx, res, entry)
}

// Fail transitions a reserved entry to failed and records reason. The entry is
// kept so a later run can retry it.
func (l *Ledger) Fail(ctx context.Context, res *Reservation, reason string) (Entry, error) {
	if res == nil {
		return Entry{}, errors.New("fail: nil reservation")
	}
	entry := res.entry
	entry.Status = StatusFailed
	entry.Reason = strings.TrimSpace(reason)
	entry.UpdatedAt = l.now().UTC()
	return l.transition(ctx, res, entry)
}

func (l *Ledger) transition(ctx context.Context, res *Reservation, entry Entry) (Entry, error) {
	version, err := l.save(ctx, entry, res.version)
	if errors.Is(err, ErrVersionMismatch) {
		return Entry{}, fmt.Errorf("%w: %s", ErrReservationLost, res.CanonicalID)
	}
	if err != nil {
		return Entry{}, err
	}
	res.entry = entry
	res.version = version
	return entry, nil
}

// List returns every entry sorted by canonical ID.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	keys, err := l.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger keys: %w", err)
	}
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entry, _, err := l.load(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *Ledger) load(ctx context.Context, key string) (Entry, string, error) {
	raw, version, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Entry{}, "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Entry{}, "", fmt.Errorf("read ledger entry %s: %w", key, err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, "", fmt.Errorf("decode ledger entry %s: %w", key, err)
	}
	if entry.CanonicalID == "" {
		entry.CanonicalID = key
	}
	return entry, version, nil
}

func (l *Ledger) save(ctx context.Context, entry Entry, expected string) (string, error) {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode ledger entry: %w", err)
	}
	data = append(data, '\n')
	version, err := l.store.Put(ctx, entry.CanonicalID, data, expected)
	if err != nil {
		if errors.Is(err, ErrVersionMismatch) {
			return "", err
		}
		return "", fmt.Errorf("write ledger entry %s: %w", entry.CanonicalID, err)
	}
	return version, nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "/\\ ") {
		return services.Wrap(services.ErrInvalidInput, "ledger", "key", fmt.Sprintf("invalid canonical id %q", key), nil)
	}
	return nil
}
