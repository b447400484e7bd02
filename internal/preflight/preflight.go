package preflight

import (
	"context"

	"podsum/internal/config"
	"podsum/internal/ledger"
	"podsum/internal/remote"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Targets are the already-wired components RunAll checks.
type Targets struct {
	Remote remote.Remote
	Ledger *ledger.Ledger
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}

	if targets.Remote != nil {
		results = append(results, CheckRemote(ctx, targets.Remote))
	}
	if targets.Ledger != nil {
		results = append(results, CheckLedger(ctx, targets.Ledger))
	}

	if cfg.Feed.URL != "" {
		results = append(results, CheckFeed(ctx, cfg.Feed.URL, cfg.Feed.CursorPath))
	}

	if cfg.Transcription.Enabled {
		results = append(results, CheckWhisper(cfg.Transcription.WhisperBinary))
	}

	if cfg.LLM.Enabled {
		results = append(results, CheckLLM(ctx, "Analysis LLM", cfg.GetLLM()))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
