package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podsum/internal/config"
)

const userAgent = "podsum/0.1.0"

// Service defines the notification surface used by the pipeline and the poller.
type Service interface {
	NotifyPublished(ctx context.Context, title, pullRequestURL string, existing bool) error
	NotifyFailed(ctx context.Context, title string, err error) error
	NotifyPollCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		published: cfg.Notifications.Published,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	published bool
	errors    bool
}

func (n *ntfyService) NotifyPublished(ctx context.Context, title, pullRequestURL string, existing bool) error {
	if !n.published {
		return nil
	}
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("📝 Summary proposed: %s", title)
	if existing {
		message = fmt.Sprintf("Summary already proposed: %s", title)
	}
	if pullRequestURL != "" {
		message += "\n" + pullRequestURL
	}
	return n.send(ctx, payload{
		title:   "podsum - Summary Published",
		message: message,
		tags:    []string{"podsum", "summary", "published"},
		click:   pullRequestURL,
	})
}

func (n *ntfyService) NotifyFailed(ctx context.Context, title string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Summary failed")
	if title = strings.TrimSpace(title); title != "" {
		builder.WriteString(" for ")
		builder.WriteString(title)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "podsum - Error",
		message:  builder.String(),
		tags:     []string{"podsum", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyPollCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if processed == 0 && failed == 0 {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	title := "podsum - Poll Complete"
	message := fmt.Sprintf("Feed poll complete: %d episodes processed in %s", processed, duration)
	if failed > 0 {
		if !n.errors {
			return nil
		}
		title = "podsum - Poll Complete (with errors)"
		message = fmt.Sprintf("Feed poll complete: %d succeeded, %d failed in %s", processed, failed, duration)
	} else if !n.published {
		return nil
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"podsum", "feed", "completed"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "podsum - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"podsum", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	if data.click != "" {
		req.Header.Set("Click", data.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyPublished(context.Context, string, string, bool) error        { return nil }
func (noopService) NotifyFailed(context.Context, string, error) error                  { return nil }
func (noopService) NotifyPollCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
