package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"podsum/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It selects the in-memory repository provider and a sqlite ledger, so no
// test touches the network unless an option says so.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Repository.Provider = "memory"
	cfgVal.Repository.Owner = "acme"
	cfgVal.Repository.Name = "notes"
	cfgVal.Repository.DefaultBranch = "main"
	cfgVal.Ledger.Backend = "sqlite"
	cfgVal.Ledger.SQLitePath = filepath.Join(base, "state", "ledger.db")
	cfgVal.Feed.CursorPath = filepath.Join(base, "state", "podcast_state.json")
	cfgVal.Webhook.Bind = "127.0.0.1:0"
	cfgVal.Workflow.RetryBackoffSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGitHub points the repository at a GitHub-compatible API, typically an
// httptest server.
func WithGitHub(baseURL, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Repository.Provider = "github"
		b.cfg.Repository.APIBaseURL = baseURL
		b.cfg.Repository.Token = token
	}
}

// WithLedgerBackend overrides the ledger backend.
func WithLedgerBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Backend = backend
	}
}

// WithFeedURL sets the RSS feed URL.
func WithFeedURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feed.URL = url
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the whisper binary is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"whisper"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
