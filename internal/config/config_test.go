package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podsum/internal/config"
)

func clearRemoteEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GITHUB_TOKEN", "GH_TOKEN", "GITHUB_REPOSITORY", "RSS_URL", "OPENROUTER_API_KEY", "PODSUM_POSTGRES_DSN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigUsesEnvFallbacksAndExpandsPaths(t *testing.T) {
	clearRemoteEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("GITHUB_REPOSITORY", "octo/summaries")
	t.Setenv("RSS_URL", "https://example.com/feed.xml")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "podsum")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Repository.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.Repository.Token)
	}
	if cfg.Repository.Owner != "octo" || cfg.Repository.Name != "summaries" {
		t.Fatalf("expected owner/name from GITHUB_REPOSITORY, got %q/%q", cfg.Repository.Owner, cfg.Repository.Name)
	}
	if cfg.Feed.URL != "https://example.com/feed.xml" {
		t.Fatalf("expected feed url from env, got %q", cfg.Feed.URL)
	}
	if cfg.Ledger.Backend != "remote" {
		t.Fatalf("expected remote ledger by default, got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.SQLitePath != filepath.Join(wantState, "ledger.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Ledger.SQLitePath)
	}
	if cfg.Workflow.MaxPublishAttempts != 2 {
		t.Fatalf("expected 2 publish attempts, got %d", cfg.Workflow.MaxPublishAttempts)
	}
	if err := cfg.RequireRemote(); err != nil {
		t.Fatalf("RequireRemote returned error: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.WorkDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearRemoteEnv(t)
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "podsum.toml")

	type payload struct {
		Repository struct {
			Owner        string `toml:"owner"`
			Name         string `toml:"name"`
			Token        string `toml:"token"`
			APIBaseURL   string `toml:"api_base_url"`
			SummariesDir string `toml:"summaries_dir"`
		} `toml:"repository"`
		Ledger struct {
			Backend string `toml:"backend"`
		} `toml:"ledger"`
		Workflow struct {
			MaxPublishAttempts int `toml:"max_publish_attempts"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Repository.Owner = "acme"
	custom.Repository.Name = "notes"
	custom.Repository.Token = "file-token"
	custom.Repository.APIBaseURL = "https://ghe.example.com/api/v3"
	custom.Repository.SummariesDir = "/episodes/"
	custom.Ledger.Backend = "SQLite"
	custom.Workflow.MaxPublishAttempts = 4
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}
	t.Setenv("GITHUB_TOKEN", "env-token")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Repository.Token != "file-token" {
		t.Fatalf("expected file token to win over env fallback, got %q", cfg.Repository.Token)
	}
	if cfg.Repository.APIBaseURL != "https://ghe.example.com/api/v3/" {
		t.Fatalf("expected trailing slash on api base url, got %q", cfg.Repository.APIBaseURL)
	}
	if cfg.Repository.SummariesDir != "episodes" {
		t.Fatalf("expected summaries dir trimmed, got %q", cfg.Repository.SummariesDir)
	}
	if cfg.Ledger.Backend != "sqlite" {
		t.Fatalf("expected backend lowercased, got %q", cfg.Ledger.Backend)
	}
	if cfg.Workflow.MaxPublishAttempts != 4 {
		t.Fatalf("expected 4 publish attempts, got %d", cfg.Workflow.MaxPublishAttempts)
	}
}

func TestRequireRemoteReportsMissingCoordinates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireRemote(); err == nil || !strings.Contains(err.Error(), "repository.owner") {
		t.Fatalf("expected owner error, got %v", err)
	}
	cfg.Repository.Owner = "acme"
	cfg.Repository.Name = "notes"
	if err := cfg.RequireRemote(); err == nil || !strings.Contains(err.Error(), "repository.token") {
		t.Fatalf("expected token error, got %v", err)
	}
	cfg.Repository.Provider = "memory"
	cfg.Repository.Owner = ""
	if err := cfg.RequireRemote(); err != nil {
		t.Fatalf("memory provider should not require remote settings: %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your-summaries-repo") {
		t.Fatalf("sample config missing placeholder repository: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Ledger.Branch != "podcast-ledger" {
		t.Fatalf("unexpected ledger branch in sample: %q", cfg.Ledger.Branch)
	}
	if cfg.Artifact.MaxBulletLength != config.Default().Artifact.MaxBulletLength {
		t.Fatalf("sample bullet length drifted from defaults: %d", cfg.Artifact.MaxBulletLength)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg = config.Default()
	cfg.Workflow.PublishTimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive publish timeout")
	}

	cfg = config.Default()
	cfg.Ledger.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported ledger backend")
	}

	cfg = config.Default()
	cfg.Ledger.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when postgres backend has no DSN")
	}

	cfg = config.Default()
	cfg.Repository.DefaultBranch = "podcast-ledger"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when ledger branch equals default branch")
	}

	cfg = config.Default()
	cfg.LLM.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when llm enabled without API key")
	}

	cfg = config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}
