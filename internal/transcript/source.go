package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"podsum/internal/episode"
	"podsum/internal/logging"
)

// Source produces a transcript for an episode. ok is false when the source has
// nothing to offer; err reports a source that tried and failed.
type Source interface {
	Transcript(ctx context.Context, ep episode.Episode) (text string, ok bool, err error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, ep episode.Episode) (string, bool, error)

func (f SourceFunc) Transcript(ctx context.Context, ep episode.Episode) (string, bool, error) {
	return f(ctx, ep)
}

type namedSource struct {
	name   string
	source Source
}

// Chain tries sources in order.
type Chain struct {
	sources []namedSource
	logger  *slog.Logger
}

// NewChain returns an empty chain.
func NewChain(logger *slog.Logger) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chain{logger: logging.NewComponentLogger(logger, "transcript")}
}

// Add appends a source under name. Nil sources are ignored.
func (c *Chain) Add(name string, source Source) *Chain {
	if source != nil {
		c.sources = append(c.sources, namedSource{name: name, source: source})
	}
	return c
}

// Len returns the number of configured sources.
func (c *Chain) Len() int {
	return len(c.sources)
}

// Transcript returns the first non-empty transcript. When every source comes up
// empty, the joined source errors are returned with ok=false so callers can log
// them; the absence of a transcript is not itself an error.
func (c *Chain) Transcript(ctx context.Context, ep episode.Episode) (string, bool, error) {
	logger := logging.WithContext(ctx, c.logger)
	var errs []error
	for _, s := range c.sources {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		text, ok, err := s.source.Transcript(ctx, ep)
		if err != nil {
			logger.Warn("transcript source failed",
				logging.String("source", s.name),
				logging.Error(err),
				logging.String(logging.FieldEventType, "transcript_source_failed"),
				logging.String(logging.FieldErrorHint, "summary falls back to the next source or to metadata"),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		text = strings.TrimSpace(text)
		if ok && text != "" {
			logger.Info("transcript found",
				logging.String("source", s.name),
				logging.Int("chars", len(text)),
			)
			return text, true, nil
		}
		logger.Debug("transcript source had nothing", logging.String("source", s.name))
	}
	return "", false, errors.Join(errs...)
}
