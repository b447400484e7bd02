package transcript

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"podsum/internal/episode"
	"podsum/internal/logging"
)

const defaultDownloadTimeout = 60 * time.Second

// Transcriber turns a local audio file into text.
type Transcriber interface {
	Available() error
	TranscribeFile(ctx context.Context, source, outputDir string) (string, error)
}

// AudioSource downloads the episode audio into a scratch directory and
// transcribes it. The scratch directory is removed afterwards.
type AudioSource struct {
	transcriber Transcriber
	client      *http.Client
	workDir     string
	maxBytes    int64
	logger      *slog.Logger
}

// AudioOption customizes an AudioSource.
type AudioOption func(*AudioSource)

func WithAudioHTTPClient(client *http.Client) AudioOption {
	return func(s *AudioSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithWorkDir sets the parent of per-download scratch directories.
func WithWorkDir(dir string) AudioOption {
	return func(s *AudioSource) { s.workDir = dir }
}

// WithMaxAudioBytes bounds the download size. Zero disables the limit.
func WithMaxAudioBytes(n int64) AudioOption {
	return func(s *AudioSource) { s.maxBytes = n }
}

func WithAudioLogger(logger *slog.Logger) AudioOption {
	return func(s *AudioSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAudioSource constructs an AudioSource around transcriber.
func NewAudioSource(transcriber Transcriber, opts ...AudioOption) *AudioSource {
	s := &AudioSource{
		transcriber: transcriber,
		client:      &http.Client{Timeout: defaultDownloadTimeout},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "transcript-audio")
	return s
}

func (s *AudioSource) Transcript(ctx context.Context, ep episode.Episode) (string, bool, error) {
	if ep.AudioURL == "" || s.transcriber == nil {
		return "", false, nil
	}
	logger := logging.WithContext(ctx, s.logger)
	if err := s.transcriber.Available(); err != nil {
		logger.Debug("transcriber unavailable", logging.Error(err))
		return "", false, nil
	}

	if s.workDir != "" {
		if err := os.MkdirAll(s.workDir, 0o755); err != nil {
			return "", false, fmt.Errorf("create work dir: %w", err)
		}
	}
	scratch, err := os.MkdirTemp(s.workDir, "podsum-audio-")
	if err != nil {
		return "", false, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	audioPath := filepath.Join(scratch, "episode"+audioExtension(ep.AudioURL))
	started := time.Now()
	written, err := s.download(ctx, ep.AudioURL, audioPath)
	if err != nil {
		return "", false, err
	}
	logger.Info("audio downloaded",
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(started)),
	)

	text, err := s.transcriber.TranscribeFile(ctx, audioPath, scratch)
	if err != nil {
		return "", false, err
	}
	return text, strings.TrimSpace(text) != "", nil
}

func (s *AudioSource) download(ctx context.Context, source, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return 0, fmt.Errorf("download audio: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download audio: unexpected status %d", resp.StatusCode)
	}
	if s.maxBytes > 0 && resp.ContentLength > s.maxBytes {
		return 0, fmt.Errorf("download audio: %d bytes exceeds limit of %d", resp.ContentLength, s.maxBytes)
	}

	file, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create audio file: %w", err)
	}
	var reader io.Reader = resp.Body
	if s.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, s.maxBytes+1)
	}
	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("write audio file: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		return written, fmt.Errorf("download audio: body exceeds limit of %d bytes", s.maxBytes)
	}
	return written, nil
}

func audioExtension(source string) string {
	parsed, err := url.Parse(source)
	if err != nil {
		return ".mp3"
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	switch ext {
	case ".mp3", ".m4a", ".aac", ".ogg", ".opus", ".wav", ".flac":
		return ext
	default:
		return ".mp3"
	}
}
