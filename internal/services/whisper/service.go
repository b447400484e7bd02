package whisper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"podsum/internal/services"
)

const (
	DefaultBinary = "whisper"
	DefaultModel  = "base"
	OutputFormat  = "txt"
	stageName     = "whisper"
)

// Config captures runtime settings for the whisper CLI.
type Config struct {
	Binary  string
	Model   string
	Timeout time.Duration
}

// CommandRunner executes name with args. Tests substitute it.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service provides transcription through the whisper CLI.
type Service struct {
	cfg           Config
	commandRunner CommandRunner
	lookPath      func(string) (string, error)
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultBinary
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg, lookPath: exec.LookPath}
}

// WithCommandRunner sets a custom command runner.
func (s *Service) WithCommandRunner(runner CommandRunner) *Service {
	s.commandRunner = runner
	return s
}

// WithLookPath overrides binary discovery.
func (s *Service) WithLookPath(lookPath func(string) (string, error)) *Service {
	if lookPath != nil {
		s.lookPath = lookPath
	}
	return s
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Available reports whether the whisper binary can be executed.
func (s *Service) Available() error {
	if _, err := s.lookPath(s.cfg.Binary); err != nil {
		return services.Wrap(services.ErrUnavailable, stageName, "lookup", fmt.Sprintf("%s not found on PATH", s.cfg.Binary), err)
	}
	return nil
}

// TranscribeFile transcribes source into outputDir and returns the text of
// the generated <basename>.txt file.
func (s *Service) TranscribeFile(ctx context.Context, source, outputDir string) (string, error) {
	if source == "" {
		return "", services.Wrap(services.ErrInvalidInput, stageName, "transcribe", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("whisper: ensure output dir: %w", err)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	args := s.buildArgs(source, outputDir)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "transcribe", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	data, err := os.ReadFile(filepath.Join(outputDir, baseName+"."+OutputFormat))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "read transcript", "", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Service) buildArgs(source, outputDir string) []string {
	return []string{
		source,
		"--model", s.cfg.Model,
		"--output_format", OutputFormat,
		"--output_dir", outputDir,
	}
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
