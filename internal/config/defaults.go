package config

const (
	defaultStateDir              = "~/.local/share/podsum"
	defaultLogDir                = "~/.local/share/podsum/logs"
	defaultWorkDir               = "~/.cache/podsum/work"
	defaultRepositoryProvider    = "github"
	defaultGitHubAPIBaseURL      = "https://api.github.com/"
	defaultSummariesDir          = "summaries"
	defaultBranchPrefix          = "ai/podcast-"
	defaultCommitterName         = "Podcast Summary Bot"
	defaultCommitterEmail        = "bot@podcast-summary.local"
	defaultRepositoryTimeout     = 30
	defaultLedgerBackend         = "remote"
	defaultLedgerBranch          = "podcast-ledger"
	defaultLedgerDir             = "ledger"
	defaultLedgerSQLitePath      = "~/.local/share/podsum/ledger.db"
	defaultStalePendingMinutes   = 60
	defaultMaxSlugLength         = 60
	defaultMaxBulletLength       = 280
	defaultFeedMaxItems          = 1
	defaultFeedCursorPath        = "~/.local/share/podsum/podcast_state.json"
	defaultFeedRequestTimeout    = 30
	defaultWebhookBind           = "127.0.0.1:8787"
	defaultWebhookMaxBodyBytes   = 64 * 1024
	defaultWebhookRequestTimeout = 300
	defaultWhisperBinary         = "whisper"
	defaultWhisperModel          = "base"
	defaultTranscriptionTimeout  = 600
	defaultDownloadTimeout       = 60
	defaultMaxAudioMiB           = 512
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/podsum/podsum"
	defaultLLMTitle              = "Podcast Summary Agent"
	defaultLLMTimeoutSeconds     = 60
	defaultLLMMaxTranscript      = 60000
	defaultNotifyRequestTimeout  = 10
	defaultPublishTimeoutSeconds = 60
	defaultMaxPublishAttempts    = 2
	defaultRetryBackoffSeconds   = 2
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
		},
		Repository: Repository{
			Provider:       defaultRepositoryProvider,
			APIBaseURL:     defaultGitHubAPIBaseURL,
			SummariesDir:   defaultSummariesDir,
			BranchPrefix:   defaultBranchPrefix,
			CommitterName:  defaultCommitterName,
			CommitterEmail: defaultCommitterEmail,
			RequestTimeout: defaultRepositoryTimeout,
		},
		Ledger: Ledger{
			Backend:             defaultLedgerBackend,
			Branch:              defaultLedgerBranch,
			Dir:                 defaultLedgerDir,
			SQLitePath:          defaultLedgerSQLitePath,
			StalePendingMinutes: defaultStalePendingMinutes,
		},
		Identity: Identity{
			MaxSlugLength: defaultMaxSlugLength,
		},
		Artifact: Artifact{
			MaxBulletLength: defaultMaxBulletLength,
		},
		Feed: Feed{
			MaxItems:       defaultFeedMaxItems,
			CursorPath:     defaultFeedCursorPath,
			RequestTimeout: defaultFeedRequestTimeout,
		},
		Webhook: Webhook{
			Bind:           defaultWebhookBind,
			MaxBodyBytes:   defaultWebhookMaxBodyBytes,
			RequestTimeout: defaultWebhookRequestTimeout,
		},
		Transcription: Transcription{
			Enabled:         true,
			WhisperBinary:   defaultWhisperBinary,
			WhisperModel:    defaultWhisperModel,
			TimeoutSeconds:  defaultTranscriptionTimeout,
			DownloadTimeout: defaultDownloadTimeout,
			MaxAudioMiB:     defaultMaxAudioMiB,
			PageLookup:      true,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxTranscript:  defaultLLMMaxTranscript,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Published:      true,
			Errors:         true,
		},
		Workflow: Workflow{
			PublishTimeoutSeconds: defaultPublishTimeoutSeconds,
			MaxPublishAttempts:    defaultMaxPublishAttempts,
			RetryBackoffSeconds:   defaultRetryBackoffSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
