package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"podsum/internal/config"
	"podsum/internal/feed"
	"podsum/internal/ledger"
	"podsum/internal/remote"
	"podsum/internal/services"
	"podsum/internal/services/llm"
	"podsum/internal/services/whisper"
)

const remoteCheckTimeout = 10 * time.Second

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckRemote resolves the default branch and its head commit.
func CheckRemote(ctx context.Context, r remote.Remote) Result {
	const name = "Repository"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	branch, err := r.DefaultBranch(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	head, err := r.BranchHead(checkCtx, branch)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: %s", branch, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s at %s", branch, shortCommit(head))}
}

// CheckLedger lists entries to prove the backend is readable.
func CheckLedger(ctx context.Context, l *ledger.Ledger) Result {
	const name = "Ledger"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	entries, err := l.List(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d entries", len(entries))}
}

// CheckFeed fetches the RSS feed without touching the cursor.
func CheckFeed(ctx context.Context, feedURL, cursorPath string) Result {
	const name = "Feed"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	items, err := feed.NewPoller(feedURL, cursorPath).Fetch(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d items", len(items))}
}

// CheckWhisper verifies the transcription binary is on PATH.
func CheckWhisper(binary string) Result {
	const name = "Whisper"

	svc := whisper.NewService(whisper.Config{Binary: binary})
	if err := svc.Available(); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("model %s", svc.Model())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError produces a one-line summary for a failed check.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (unreachable)"
	}
	switch {
	case errors.Is(err, services.ErrAuthentication):
		return "authentication failed: " + err.Error()
	case errors.Is(err, services.ErrConfiguration):
		return "misconfigured: " + err.Error()
	}
	return err.Error()
}

func shortCommit(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
