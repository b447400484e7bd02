package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRepository(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validatePolicies(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRepository() error {
	switch c.Repository.Provider {
	case "github", "memory":
	default:
		return fmt.Errorf("repository.provider: unsupported value %q (expected github or memory)", c.Repository.Provider)
	}
	if strings.ContainsAny(c.Repository.BranchPrefix, " ~^:?*[\\") {
		return fmt.Errorf("repository.branch_prefix %q is not a valid ref prefix", c.Repository.BranchPrefix)
	}
	return nil
}

// RequireRemote reports whether the remote repository coordinates and credentials
// are present. Commands that only inspect local state skip this check.
func (c *Config) RequireRemote() error {
	if c.Repository.Provider != "github" {
		return nil
	}
	if c.Repository.Owner == "" || c.Repository.Name == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/podsum/config.toml"
		}
		return fmt.Errorf("repository.owner and repository.name are required. Set GITHUB_REPOSITORY=owner/name or edit %s (create with 'podsum config init')", defaultPath)
	}
	if c.Repository.Token == "" {
		return errors.New("repository.token is required. Set GITHUB_TOKEN or repository.token")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case "remote":
	case "sqlite":
		if strings.TrimSpace(c.Ledger.SQLitePath) == "" {
			return errors.New("ledger.sqlite_path must be set when ledger.backend is sqlite")
		}
	case "postgres":
		if c.Ledger.PostgresDSN == "" {
			return errors.New("ledger.postgres_dsn must be set when ledger.backend is postgres (or set PODSUM_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("ledger.backend: unsupported value %q (expected remote, sqlite, or postgres)", c.Ledger.Backend)
	}
	if c.Ledger.Backend == "remote" && c.Ledger.Branch == c.Repository.DefaultBranch {
		return errors.New("ledger.branch must differ from repository.default_branch")
	}
	return nil
}

func (c *Config) validatePolicies() error {
	if err := ensurePositiveMap(map[string]int{
		"identity.max_slug_length":         c.Identity.MaxSlugLength,
		"artifact.max_bullet_length":       c.Artifact.MaxBulletLength,
		"feed.max_items":                   c.Feed.MaxItems,
		"feed.request_timeout":             c.Feed.RequestTimeout,
		"webhook.request_timeout":          c.Webhook.RequestTimeout,
		"transcription.timeout_seconds":    c.Transcription.TimeoutSeconds,
		"transcription.download_timeout":   c.Transcription.DownloadTimeout,
		"transcription.max_audio_mib":      c.Transcription.MaxAudioMiB,
		"notifications.request_timeout":    c.Notifications.RequestTimeout,
		"repository.request_timeout":       c.Repository.RequestTimeout,
		"ledger.stale_pending_minutes":     c.Ledger.StalePendingMinutes,
		"workflow.publish_timeout_seconds": c.Workflow.PublishTimeoutSeconds,
		"workflow.max_publish_attempts":    c.Workflow.MaxPublishAttempts,
		"llm.timeout_seconds":              c.LLM.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.RetryBackoffSeconds < 0 {
		return errors.New("workflow.retry_backoff_seconds must not be negative")
	}
	if c.Identity.MaxSlugLength < 8 {
		return errors.New("identity.max_slug_length must be at least 8")
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required when llm.enabled is true (or set OPENROUTER_API_KEY)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
