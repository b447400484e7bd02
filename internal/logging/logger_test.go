package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podsum/internal/config"
	"podsum/internal/logging"
	"podsum/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (string, func() string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "podsum.log")
	logger, err := logging.New(logging.Options{Format: format, Level: level, OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	read := func() string {
		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(content)
	}
	ctx := services.WithRunID(context.Background(), "0123456789abcdef")
	ctx = services.WithCanonicalID(ctx, "2026-02-13-episode-one")
	ctx = services.WithStage(ctx, "publish")
	component := logging.NewComponentLogger(logging.WithContext(ctx, logger), "pipeline")
	component.Info("published summary", logging.Branch("ai/podcast-2026-02-13-episode-one"), logging.Int("attempt", 1))
	return logPath, read
}

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "podsum.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestConsoleHandlerLiftsContextIntoHeader(t *testing.T) {
	_, read := newFileLogger(t, "console", "info")
	content := read()
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected header plus fields, got %q", content)
	}
	header := lines[0]
	for _, fragment := range []string{"INFO", "[01234567]", "[2026-02-13-episode-one]", "pipeline: published summary"} {
		if !strings.Contains(header, fragment) {
			t.Fatalf("expected %q in header %q", fragment, header)
		}
	}
	if strings.Contains(header, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", header)
	}
	if !strings.Contains(content, "    - branch: ai/podcast-2026-02-13-episode-one") {
		t.Fatalf("expected branch field, got %q", content)
	}
	if !strings.Contains(content, "    - stage: publish") {
		t.Fatalf("expected stage field, got %q", content)
	}
}

func TestJSONHandlerEmitsStructuredFields(t *testing.T) {
	_, read := newFileLogger(t, "json", "info")
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level %v", record["level"])
	}
	if record[logging.FieldRunID] != "0123456789abcdef" {
		t.Fatalf("unexpected run id %v", record[logging.FieldRunID])
	}
	if record[logging.FieldComponent] != "pipeline" {
		t.Fatalf("unexpected component %v", record[logging.FieldComponent])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logging.Event(logger, slog.LevelWarn, "visible", "transcript_unavailable", "", logging.Error(errors.New("no whisper")))
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("info record should be filtered: %q", content)
	}
	for _, fragment := range []string{"visible", "event_type: transcript_unavailable", "error_hint:", "error: no whisper"} {
		if !strings.Contains(string(content), fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
