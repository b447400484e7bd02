package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"podsum/internal/artifact"
	"podsum/internal/config"
	"podsum/internal/episode"
	"podsum/internal/feed"
	"podsum/internal/ledger"
	"podsum/internal/logging"
	"podsum/internal/notifications"
	"podsum/internal/pipeline"
	"podsum/internal/publisher"
	"podsum/internal/remote"
	"podsum/internal/services"
	"podsum/internal/services/github"
	"podsum/internal/services/llm"
	"podsum/internal/services/whisper"
	"podsum/internal/transcript"
	"podsum/internal/webhook"
)

// App holds the wired components for one command invocation.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Remote   remote.Remote
	Ledger   *ledger.Ledger
	Notifier notifications.Service
	Pipeline *pipeline.Pipeline
	// DryRun is true when publishing targets a throwaway in-memory repository.
	DryRun bool

	closers []func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	remote     remote.Remote
	dryRun     bool
	notifier   notifications.Service
	httpClient *http.Client
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRemote overrides the configured repository provider.
func WithRemote(r remote.Remote) Option {
	return func(o *options) { o.remote = r }
}

// WithDryRun publishes to an in-memory repository and keeps the ledger there
// too, so nothing durable is touched.
func WithDryRun(enabled bool) Option {
	return func(o *options) { o.dryRun = enabled }
}

func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// WithHTTPClient sets the client used by transcript sources and the analysis client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "app", "init", "configuration is required", nil)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	a := &App{Config: cfg, Logger: logger, DryRun: o.dryRun}
	var err error
	if a.Remote, err = a.buildRemote(o); err != nil {
		return nil, err
	}
	if a.Ledger, err = a.buildLedger(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Notifier = o.notifier
	if a.Notifier == nil {
		a.Notifier = notifications.NewService(cfg)
	}

	layout := episode.Layout{SummariesDir: cfg.Repository.SummariesDir, BranchPrefix: cfg.Repository.BranchPrefix}
	resolver := episode.NewResolver(
		episode.WithMaxSlugLength(cfg.Identity.MaxSlugLength),
		episode.WithURLDisambiguation(cfg.Identity.DisambiguateByURL),
	)
	builder := artifact.NewBuilder(
		artifact.WithLayout(layout),
		artifact.WithMaxBulletLength(cfg.Artifact.MaxBulletLength),
	)
	pub := publisher.New(a.Remote,
		publisher.WithLayout(layout),
		publisher.WithAuthor(a.signature()),
		publisher.WithBaseBranch(cfg.Repository.DefaultBranch),
		publisher.WithLogger(logger),
	)

	pipelineOpts := []pipeline.Option{
		pipeline.WithLayout(layout),
		pipeline.WithLogger(logger),
		pipeline.WithNotifier(a.Notifier),
		pipeline.WithPublishTimeout(cfg.PublishTimeout()),
		pipeline.WithMaxPublishAttempts(cfg.Workflow.MaxPublishAttempts),
		pipeline.WithRetryBackoff(cfg.RetryBackoff()),
	}
	if chain := a.buildTranscripts(o); chain.Len() > 0 {
		pipelineOpts = append(pipelineOpts, pipeline.WithTranscriptSource(chain))
	}
	if analyzer := a.buildAnalyzer(o); analyzer != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithAnalyzer(analyzer))
	}
	a.Pipeline = pipeline.New(resolver, builder, a.Ledger, pub, pipelineOpts...)
	return a, nil
}

// Close releases ledger connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Poller returns a feed poller configured from the feed section.
func (a *App) Poller() *feed.Poller {
	cfg := a.Config.Feed
	return feed.NewPoller(cfg.URL, cfg.CursorPath,
		feed.WithMaxItems(cfg.MaxItems),
		feed.WithHTTPClient(&http.Client{Timeout: seconds(cfg.RequestTimeout)}),
		feed.WithLogger(a.Logger),
	)
}

// Webhook returns the inbound listener bound to the pipeline.
func (a *App) Webhook() *webhook.Server {
	cfg := a.Config.Webhook
	return webhook.New(cfg.Bind, a.Pipeline,
		webhook.WithMaxBodyBytes(cfg.MaxBodyBytes),
		webhook.WithRequestTimeout(seconds(cfg.RequestTimeout)),
		webhook.WithLogger(a.Logger),
	)
}

func (a *App) buildRemote(o options) (remote.Remote, error) {
	if o.remote != nil {
		return o.remote, nil
	}
	cfg := a.Config.Repository
	if o.dryRun || cfg.Provider == "memory" {
		branch := cfg.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		return remote.NewMemory(branch), nil
	}
	if err := a.Config.RequireRemote(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "app", "remote", "", err)
	}
	return github.New(github.Config{
		Owner:   cfg.Owner,
		Name:    cfg.Name,
		Token:   cfg.Token,
		BaseURL: cfg.APIBaseURL,
		Timeout: a.Config.RepositoryTimeout(),
	}, github.WithLogger(a.Logger))
}

func (a *App) buildLedger(ctx context.Context) (*ledger.Ledger, error) {
	cfg := a.Config.Ledger
	var store ledger.Store
	backend := cfg.Backend
	if a.DryRun {
		backend = "remote"
	}
	switch backend {
	case "remote":
		store = ledger.NewRemoteStore(a.Remote, cfg.Branch, cfg.Dir, a.signature())
	case "sqlite":
		sqlStore, err := ledger.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlStore.Close)
		store = sqlStore
	case "postgres":
		sqlStore, err := ledger.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlStore.Close)
		store = sqlStore
	default:
		return nil, services.Wrap(services.ErrConfiguration, "app", "ledger", fmt.Sprintf("unsupported ledger backend %q", backend), nil)
	}
	return ledger.New(store,
		ledger.WithStaleAfter(a.Config.StalePendingAfter()),
		ledger.WithLogger(a.Logger),
	), nil
}

func (a *App) buildTranscripts(o options) *transcript.Chain {
	cfg := a.Config.Transcription
	chain := transcript.NewChain(a.Logger)
	client := o.httpClient
	if client == nil {
		client = &http.Client{Timeout: seconds(cfg.DownloadTimeout)}
	}
	if cfg.PageLookup {
		chain.Add("page", transcript.NewPageSource(
			transcript.WithPageHTTPClient(client),
			transcript.WithPageLogger(a.Logger),
		))
	}
	if cfg.Enabled {
		svc := whisper.NewService(whisper.Config{
			Binary:  cfg.WhisperBinary,
			Model:   cfg.WhisperModel,
			Timeout: seconds(cfg.TimeoutSeconds),
		})
		if err := svc.Available(); err != nil {
			logging.Event(a.Logger, slog.LevelWarn, "audio transcription disabled", "transcription_unavailable",
				"install whisper or set transcription.whisper_binary", logging.Error(err))
		} else {
			chain.Add("audio", transcript.NewAudioSource(svc,
				transcript.WithAudioHTTPClient(client),
				transcript.WithWorkDir(a.Config.Paths.WorkDir),
				transcript.WithMaxAudioBytes(int64(cfg.MaxAudioMiB)<<20),
				transcript.WithAudioLogger(a.Logger),
			))
		}
	}
	return chain
}

func (a *App) buildAnalyzer(o options) pipeline.Analyzer {
	cfg := a.Config.LLM
	if !cfg.Enabled {
		return nil
	}
	if cfg.APIKey == "" {
		logging.Event(a.Logger, slog.LevelWarn, "analysis disabled: llm.api_key is empty", "analysis_unavailable",
			"set OPENROUTER_API_KEY or llm.api_key")
		return nil
	}
	settings := a.Config.GetLLM()
	var llmOpts []llm.Option
	if o.httpClient != nil {
		llmOpts = append(llmOpts, llm.WithHTTPClient(o.httpClient))
	}
	return llm.NewClient(llm.Config{
		APIKey:             settings.APIKey,
		BaseURL:            settings.BaseURL,
		Model:              settings.Model,
		Referer:            settings.Referer,
		Title:              settings.Title,
		TimeoutSeconds:     settings.TimeoutSeconds,
		MaxTranscriptChars: cfg.MaxTranscript,
	}, llmOpts...)
}

func (a *App) signature() remote.Signature {
	return remote.Signature{Name: a.Config.Repository.CommitterName, Email: a.Config.Repository.CommitterEmail}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
