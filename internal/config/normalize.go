package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRepository()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	if err := c.normalizeFeed(); err != nil {
		return err
	}
	c.normalizeWebhook()
	c.normalizeTranscription()
	c.normalizeLLM()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRepository() {
	repo := &c.Repository
	repo.Provider = strings.ToLower(strings.TrimSpace(repo.Provider))
	if repo.Provider == "" {
		repo.Provider = defaultRepositoryProvider
	}
	repo.Owner = strings.TrimSpace(repo.Owner)
	repo.Name = strings.TrimSpace(repo.Name)
	if repo.Owner == "" && repo.Name == "" {
		// GitHub Actions exposes the current repository as owner/name.
		if value, ok := os.LookupEnv("GITHUB_REPOSITORY"); ok {
			if owner, name, found := strings.Cut(strings.TrimSpace(value), "/"); found {
				repo.Owner = owner
				repo.Name = name
			}
		}
	}
	repo.Token = strings.TrimSpace(repo.Token)
	if repo.Token == "" {
		if value, ok := os.LookupEnv("GITHUB_TOKEN"); ok {
			repo.Token = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GH_TOKEN"); ok {
			repo.Token = strings.TrimSpace(value)
		}
	}
	repo.APIBaseURL = strings.TrimSpace(repo.APIBaseURL)
	if repo.APIBaseURL == "" {
		repo.APIBaseURL = defaultGitHubAPIBaseURL
	}
	if !strings.HasSuffix(repo.APIBaseURL, "/") {
		repo.APIBaseURL += "/"
	}
	repo.DefaultBranch = strings.TrimSpace(repo.DefaultBranch)
	repo.SummariesDir = strings.Trim(strings.TrimSpace(repo.SummariesDir), "/")
	if repo.SummariesDir == "" {
		repo.SummariesDir = defaultSummariesDir
	}
	repo.BranchPrefix = strings.TrimSpace(repo.BranchPrefix)
	if repo.BranchPrefix == "" {
		repo.BranchPrefix = defaultBranchPrefix
	}
	repo.CommitterName = strings.TrimSpace(repo.CommitterName)
	if repo.CommitterName == "" {
		repo.CommitterName = defaultCommitterName
	}
	repo.CommitterEmail = strings.TrimSpace(repo.CommitterEmail)
	if repo.CommitterEmail == "" {
		repo.CommitterEmail = defaultCommitterEmail
	}
}

func (c *Config) normalizeLedger() error {
	ledger := &c.Ledger
	ledger.Backend = strings.ToLower(strings.TrimSpace(ledger.Backend))
	if ledger.Backend == "" {
		ledger.Backend = defaultLedgerBackend
	}
	ledger.Branch = strings.TrimSpace(ledger.Branch)
	if ledger.Branch == "" {
		ledger.Branch = defaultLedgerBranch
	}
	ledger.Dir = strings.Trim(strings.TrimSpace(ledger.Dir), "/")
	if ledger.Dir == "" {
		ledger.Dir = defaultLedgerDir
	}
	if strings.TrimSpace(ledger.SQLitePath) == "" {
		ledger.SQLitePath = defaultLedgerSQLitePath
	}
	var err error
	if ledger.SQLitePath, err = expandPath(ledger.SQLitePath); err != nil {
		return fmt.Errorf("ledger.sqlite_path: %w", err)
	}
	ledger.PostgresDSN = strings.TrimSpace(ledger.PostgresDSN)
	if ledger.PostgresDSN == "" {
		if value, ok := os.LookupEnv("PODSUM_POSTGRES_DSN"); ok {
			ledger.PostgresDSN = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeFeed() error {
	c.Feed.URL = strings.TrimSpace(c.Feed.URL)
	if c.Feed.URL == "" {
		if value, ok := os.LookupEnv("RSS_URL"); ok {
			c.Feed.URL = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Feed.CursorPath) == "" {
		c.Feed.CursorPath = defaultFeedCursorPath
	}
	var err error
	if c.Feed.CursorPath, err = expandPath(c.Feed.CursorPath); err != nil {
		return fmt.Errorf("feed.cursor_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWebhook() {
	c.Webhook.Bind = strings.TrimSpace(c.Webhook.Bind)
	if c.Webhook.Bind == "" {
		c.Webhook.Bind = defaultWebhookBind
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		c.Webhook.MaxBodyBytes = defaultWebhookMaxBodyBytes
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.WhisperBinary = strings.TrimSpace(c.Transcription.WhisperBinary)
	if c.Transcription.WhisperBinary == "" {
		c.Transcription.WhisperBinary = defaultWhisperBinary
	}
	c.Transcription.WhisperModel = strings.TrimSpace(c.Transcription.WhisperModel)
	if c.Transcription.WhisperModel == "" {
		c.Transcription.WhisperModel = defaultWhisperModel
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.MaxTranscript <= 0 {
		c.LLM.MaxTranscript = defaultLLMMaxTranscript
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
