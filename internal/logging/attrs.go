package logging

import (
	"context"
	"log/slog"
	"time"

	"podsum/internal/services"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// ErrorKind records the failure class of err ("network", "conflict", ...).
func ErrorKind(err error) Attr {
	return slog.String(FieldErrorKind, services.Kind(err))
}

// Branch records the head branch an episode is published on.
func Branch(name string) Attr {
	return slog.String(FieldBranch, name)
}

// PullRequest groups a pull request's number and URL under one key.
func PullRequest(number int, url string) Attr {
	return slog.Group(FieldPullRequest, slog.Int("number", number), slog.String("url", url))
}

// Args converts attrs into the variadic form slog.Logger methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// Event logs msg at level, stamping event_type and error_hint unless attrs
// already carry them. An empty hint falls back to a generic one for warnings
// and errors.
func Event(logger *slog.Logger, level slog.Level, msg, eventType, hint string, attrs ...Attr) {
	if logger == nil {
		return
	}
	var haveType, haveHint bool
	for _, a := range attrs {
		switch a.Key {
		case FieldEventType:
			haveType = true
		case FieldErrorHint:
			haveHint = true
		}
	}
	if !haveType && eventType != "" {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !haveHint {
		if hint == "" && level >= slog.LevelWarn {
			hint = "check logs for details"
		}
		if hint != "" {
			attrs = append(attrs, String(FieldErrorHint, hint))
		}
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
