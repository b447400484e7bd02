package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"podsum/internal/artifact"
	"podsum/internal/episode"
	"podsum/internal/ledger"
	"podsum/internal/logging"
	"podsum/internal/notifications"
	"podsum/internal/publisher"
	"podsum/internal/remote"
	"podsum/internal/services"
	"podsum/internal/transcript"
)

const (
	defaultPublishTimeout = 60 * time.Second
	defaultMaxAttempts    = 2
	defaultRetryBackoff   = 2 * time.Second
	maxRetryBackoff       = 30 * time.Second
	ledgerCleanupTimeout  = 15 * time.Second
)

// State is the pipeline position of a run.
type State string

const (
	StateStart           State = "start"
	StateResolved        State = "resolved"
	StateReserved        State = "reserved"
	StateBuilt           State = "built"
	StatePublished       State = "published"
	StateDone            State = "done"
	StateAborted         State = "aborted"
	StateFailedRetryable State = "failed_retryable"
	StateFailed          State = "failed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateAborted, StateFailedRetryable, StateFailed:
		return true
	default:
		return false
	}
}

// Outcome describes how a run ended.
type Outcome struct {
	State    State
	RunID    string
	Identity episode.Identity
	// ArtifactPath is the repository path of the summary under the configured layout.
	ArtifactPath string
	// Branch and PullRequest are set once the publisher confirmed a pull request.
	Branch      string
	PullRequest remote.PullRequest
	// Existing is true when the pull request came from an earlier or concurrent run.
	Existing bool
	Degraded bool
	Source   artifact.ContentSource
	// PublishAttempts counts publisher invocations, including retries.
	PublishAttempts int
	// Reason explains aborted and failed outcomes.
	Reason   string
	Duration time.Duration
}

// Analyzer produces structured summary content from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, ep episode.Episode, transcript string) (*artifact.Analysis, error)
}

// Publisher proposes an artifact to the remote repository.
type Publisher interface {
	Publish(ctx context.Context, req publisher.Request) (publisher.Result, error)
}

// Pipeline coordinates the resolver, ledger, builder, and publisher.
type Pipeline struct {
	resolver  *episode.Resolver
	layout    episode.Layout
	builder   *artifact.Builder
	ledger    *ledger.Ledger
	publisher Publisher

	transcripts transcript.Source
	analyzer    Analyzer
	notifier    notifications.Service
	logger      *slog.Logger

	publishTimeout time.Duration
	maxAttempts    int
	backoff        services.Backoff
	sleep          func(context.Context, time.Duration) error
	newRunID       func() string
	now            func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLayout sets the branch and summaries layout. It must match the layout
// given to the builder and publisher.
func WithLayout(layout episode.Layout) Option {
	return func(p *Pipeline) { p.layout = layout }
}

// WithTranscriptSource attaches an optional transcript source.
func WithTranscriptSource(src transcript.Source) Option {
	return func(p *Pipeline) { p.transcripts = src }
}

// WithAnalyzer attaches an optional structured analysis source.
func WithAnalyzer(a Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

func WithNotifier(n notifications.Service) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.notifier = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPublishTimeout bounds each publish attempt.
func WithPublishTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.publishTimeout = d
		}
	}
}

// WithMaxPublishAttempts bounds attempts for network failures. Conflicts are
// retried at most once regardless.
func WithMaxPublishAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the first retry delay; later delays double.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.backoff.Base = d
		}
	}
}

// WithSleeper replaces the retry sleep, mainly for tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Pipeline) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithRunIDGenerator replaces the UUID run ID source.
func WithRunIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		if gen != nil {
			p.newRunID = gen
		}
	}
}

// New constructs a pipeline. Resolver, builder, ledger, and publisher are required.
func New(resolver *episode.Resolver, builder *artifact.Builder, l *ledger.Ledger, pub Publisher, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:       resolver,
		layout:         episode.DefaultLayout(),
		builder:        builder,
		ledger:         l,
		publisher:      pub,
		notifier:       notifications.NewService(nil),
		logger:         logging.NewNop(),
		publishTimeout: defaultPublishTimeout,
		maxAttempts:    defaultMaxAttempts,
		backoff:        services.Backoff{Base: defaultRetryBackoff, Max: maxRetryBackoff},
		sleep:          services.Sleep,
		newRunID:       uuid.NewString,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	return p
}
