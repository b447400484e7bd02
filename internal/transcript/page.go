package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"podsum/internal/episode"
	"podsum/internal/logging"
	"podsum/internal/textutil"
)

const (
	defaultPageTimeout  = 30 * time.Second
	defaultPageMaxBytes = 16 << 20
)

// PageSource fetches the episode page and follows its transcript link.
type PageSource struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// PageOption customizes a PageSource.
type PageOption func(*PageSource)

func WithPageHTTPClient(client *http.Client) PageOption {
	return func(s *PageSource) {
		if client != nil {
			s.client = client
		}
	}
}

func WithPageMaxBytes(n int64) PageOption {
	return func(s *PageSource) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func WithPageLogger(logger *slog.Logger) PageOption {
	return func(s *PageSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPageSource constructs a PageSource.
func NewPageSource(opts ...PageOption) *PageSource {
	s := &PageSource{
		client:   &http.Client{Timeout: defaultPageTimeout},
		maxBytes: defaultPageMaxBytes,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "transcript-page")
	return s
}

func (s *PageSource) Transcript(ctx context.Context, ep episode.Episode) (string, bool, error) {
	if ep.EpisodeURL == "" {
		return "", false, nil
	}
	base, err := url.Parse(ep.EpisodeURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return "", false, nil
	}

	page, _, err := s.fetch(ctx, ep.EpisodeURL)
	if err != nil {
		return "", false, err
	}
	link, err := FindTranscriptURL(bytes.NewReader(page), base)
	if errors.Is(err, ErrNoTranscriptLink) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("parse episode page: %w", err)
	}
	logging.WithContext(ctx, s.logger).Debug("transcript link found", logging.String("url", link))

	body, contentType, err := s.fetch(ctx, link)
	if err != nil {
		return "", false, err
	}
	text, err := decodeDocument(link, contentType, body)
	if err != nil {
		return "", false, err
	}
	text = textutil.CollapseWhitespace(text)
	return text, text != "", nil
}

func (s *PageSource) fetch(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", target, err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, "", fmt.Errorf("fetch %s: body exceeds %d bytes", target, s.maxBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func decodeDocument(link, contentType string, body []byte) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	ext := ""
	if parsed, err := url.Parse(link); err == nil {
		ext = strings.ToLower(path.Ext(parsed.Path))
	}
	switch {
	case mediaType == "application/pdf" || ext == ".pdf":
		return ExtractPDFText(body)
	case mediaType == "text/plain" || ext == ".txt":
		return string(body), nil
	case mediaType == "text/html" || mediaType == "":
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		doc.Find("script, style, nav, header, footer").Remove()
		return doc.Find("body").Text(), nil
	default:
		return "", fmt.Errorf("unsupported transcript type %q", mediaType)
	}
}
