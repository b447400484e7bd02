package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"podsum/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directories used by the CLI and the listener.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
}

// Repository describes the remote repository summaries are proposed to.
type Repository struct {
	// Provider selects the remote implementation: "github" or "memory".
	Provider       string `toml:"provider"`
	Owner          string `toml:"owner"`
	Name           string `toml:"name"`
	Token          string `toml:"token"`
	APIBaseURL     string `toml:"api_base_url"`
	DefaultBranch  string `toml:"default_branch"`
	SummariesDir   string `toml:"summaries_dir"`
	BranchPrefix   string `toml:"branch_prefix"`
	CommitterName  string `toml:"committer_name"`
	CommitterEmail string `toml:"committer_email"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Ledger selects and configures the processing ledger backend.
type Ledger struct {
	// Backend is one of "remote", "sqlite", or "postgres".
	Backend             string `toml:"backend"`
	Branch              string `toml:"branch"`
	Dir                 string `toml:"dir"`
	SQLitePath          string `toml:"sqlite_path"`
	PostgresDSN         string `toml:"postgres_dsn"`
	StalePendingMinutes int    `toml:"stale_pending_minutes"`
}

// Identity tunes canonical ID derivation.
type Identity struct {
	MaxSlugLength     int  `toml:"max_slug_length"`
	DisambiguateByURL bool `toml:"disambiguate_by_url"`
}

// Artifact bounds generated summary documents.
type Artifact struct {
	MaxBulletLength int `toml:"max_bullet_length"`
}

// Feed configures the RSS poller.
type Feed struct {
	URL            string `toml:"url"`
	MaxItems       int    `toml:"max_items"`
	CursorPath     string `toml:"cursor_path"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Webhook configures the inbound episode listener.
type Webhook struct {
	Bind           string `toml:"bind"`
	MaxBodyBytes   int64  `toml:"max_body_bytes"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Transcription configures the optional transcript sources.
type Transcription struct {
	Enabled         bool   `toml:"enabled"`
	WhisperBinary   string `toml:"whisper_binary"`
	WhisperModel    string `toml:"whisper_model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	DownloadTimeout int    `toml:"download_timeout"`
	MaxAudioMiB     int    `toml:"max_audio_mib"`
	PageLookup      bool   `toml:"page_lookup"`
}

// LLM contains connection settings for the structured analysis source.
type LLM struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxTranscript  int    `toml:"max_transcript_chars"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Published      bool   `toml:"published"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains publish timing and retry policy.
type Workflow struct {
	PublishTimeoutSeconds int `toml:"publish_timeout_seconds"`
	MaxPublishAttempts    int `toml:"max_publish_attempts"`
	RetryBackoffSeconds   int `toml:"retry_backoff_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podsum.
//
// Configuration sections by subsystem:
//   - Paths: local state, logs, and scratch space
//   - Repository: remote repository and branch conventions
//   - Ledger: processing ledger backend
//   - Identity / Artifact: canonical ID and document policies
//   - Feed / Webhook: inbound episode sources
//   - Transcription / LLM: optional content collaborators
//   - Notifications: ntfy push settings
//   - Workflow: publish timeouts and retries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Repository    Repository    `toml:"repository"`
	Ledger        Ledger        `toml:"ledger"`
	Identity      Identity      `toml:"identity"`
	Artifact      Artifact      `toml:"artifact"`
	Feed          Feed          `toml:"feed"`
	Webhook       Webhook       `toml:"webhook"`
	Transcription Transcription `toml:"transcription"`
	LLM           LLM           `toml:"llm"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podsum/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podsum.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories the CLI writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PublishTimeout returns the per-attempt publish deadline.
func (c *Config) PublishTimeout() time.Duration {
	return time.Duration(c.Workflow.PublishTimeoutSeconds) * time.Second
}

// RetryBackoff returns the base delay between publish retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Workflow.RetryBackoffSeconds) * time.Second
}

// StalePendingAfter returns how long a pending ledger entry is honoured before
// another run may reclaim it.
func (c *Config) StalePendingAfter() time.Duration {
	return time.Duration(c.Ledger.StalePendingMinutes) * time.Minute
}

// RepositoryTimeout returns the HTTP timeout for remote repository calls.
func (c *Config) RepositoryTimeout() time.Duration {
	return time.Duration(c.Repository.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the LLM settings handed to the analysis client.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the trimmed LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
