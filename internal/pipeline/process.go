package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"podsum/internal/artifact"
	"podsum/internal/episode"
	"podsum/internal/ledger"
	"podsum/internal/logging"
	"podsum/internal/publisher"
	"podsum/internal/services"
)

// Process runs one episode event through the pipeline. Already-processed
// episodes yield an aborted outcome and a nil error. Every other non-done
// outcome is returned together with the error that ended the run.
func (p *Pipeline) Process(ctx context.Context, event episode.Event) (Outcome, error) {
	started := p.now()
	runID := p.newRunID()
	ctx = services.WithRunID(ctx, runID)
	out := Outcome{State: StateStart, RunID: runID}
	logger := logging.WithContext(ctx, p.logger)

	finish := func(o Outcome, err error) (Outcome, error) {
		o.Duration = p.now().Sub(started)
		return o, err
	}

	if err := event.Validate(); err != nil {
		out.State = StateFailed
		out.Reason = failureReason(err)
		logger.Warn("episode rejected", logging.String(logging.FieldEventType, "episode_rejected"), logging.Error(err))
		return finish(out, err)
	}
	ep := event.Episode()

	id, err := p.resolver.Resolve(ep)
	if err != nil {
		out.State = StateFailed
		out.Reason = failureReason(err)
		logger.Warn("episode rejected", logging.String(logging.FieldEventType, "episode_rejected"), logging.Error(err))
		return finish(out, err)
	}
	out.State = StateResolved
	out.Identity = id
	out.ArtifactPath = p.layout.ArtifactPath(id)
	branch := p.layout.BranchName(id)
	ctx = services.WithCanonicalID(ctx, id.CanonicalID)
	logger = logging.WithContext(ctx, p.logger)
	logger.Info("episode resolved",
		logging.String(logging.FieldEventType, "episode_resolved"),
		logging.String("title", ep.Title),
		logging.Branch(branch),
		logging.String("artifact_path", out.ArtifactPath),
	)

	reservation, err := p.ledger.Reserve(services.WithStage(ctx, "reserve"), id.CanonicalID, branch)
	if errors.Is(err, ledger.ErrAlreadyExists) {
		out.State = StateAborted
		out.Reason = err.Error()
		logger.Info("episode already processed",
			logging.String(logging.FieldEventType, "episode_skipped"),
			logging.String("reason", out.Reason),
		)
		return finish(out, nil)
	}
	if err != nil {
		out.State = StateFailed
		if services.Retryable(err) {
			out.State = StateFailedRetryable
		}
		out.Reason = failureReason(err)
		logger.Error("ledger reservation failed", logging.String(logging.FieldEventType, "reserve_failed"), logging.Error(err))
		return finish(out, err)
	}
	out.State = StateReserved
	logger.Info("ledger entry reserved",
		logging.String(logging.FieldEventType, "episode_reserved"),
		logging.Bool("reclaimed", reservation.Reclaimed),
	)

	text := p.fetchTranscript(ctx, logger, ep)
	analysis := p.analyze(ctx, logger, ep, text)

	art, err := p.builder.Build(ep, id, text, analysis)
	if err != nil {
		return finish(p.abandon(ctx, logger, reservation, ep, out, StateFailed, err))
	}
	out.State = StateBuilt
	out.Degraded = art.Degraded
	out.Source = art.Source
	logger.Info("artifact built",
		logging.String(logging.FieldEventType, "artifact_built"),
		logging.Bool("degraded", art.Degraded),
		logging.String("content_source", string(art.Source)),
		logging.Int("bytes", len(art.Content)),
	)

	result, attempts, err := p.publish(ctx, logger, publisher.Request{Identity: id, Artifact: art})
	out.PublishAttempts = attempts
	if err != nil {
		state := StateFailed
		if services.Retryable(err) {
			state = StateFailedRetryable
		}
		return finish(p.abandon(ctx, logger, reservation, ep, out, state, err))
	}
	out.State = StatePublished
	out.Branch = result.Branch
	out.PullRequest = result.PullRequest
	out.Existing = result.Existing

	pub := ledger.Publication{
		Branch:      result.Branch,
		PullRequest: ledger.PullRequestRef{Number: result.PullRequest.Number, URL: result.PullRequest.URL},
	}
	commitCtx, cancel := detached(ctx)
	_, err = p.ledger.Commit(commitCtx, reservation, pub)
	cancel()
	if err != nil {
		// The pull request exists; the next run recovers through the publisher.
		out.Reason = failureReason(err)
		logger.Error("ledger commit failed",
			logging.String(logging.FieldEventType, "commit_failed"),
			logging.String("pull_request_url", result.PullRequest.URL),
			logging.Error(err),
		)
		return finish(out, fmt.Errorf("commit ledger entry %s: %w", id.CanonicalID, err))
	}

	out.State = StateDone
	out.Duration = p.now().Sub(started)
	logger.Info("episode published",
		logging.String(logging.FieldEventType, "episode_published"),
		logging.PullRequest(result.PullRequest.Number, result.PullRequest.URL),
		logging.Bool("existing", result.Existing),
		logging.Int("publish_attempts", attempts),
		logging.Duration("duration", out.Duration),
	)
	if err := p.notifier.NotifyPublished(ctx, ep.Title, result.PullRequest.URL, result.Existing); err != nil {
		logger.Warn("publish notification failed", logging.Error(err))
	}
	return out, nil
}

func (p *Pipeline) fetchTranscript(ctx context.Context, logger *slog.Logger, ep episode.Episode) string {
	if p.transcripts == nil {
		return ""
	}
	text, ok, err := p.transcripts.Transcript(services.WithStage(ctx, "transcript"), ep)
	if err != nil {
		logging.Event(logger, slog.LevelWarn, "transcript unavailable", "transcript_unavailable",
			"summary will be marked as limited", logging.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	logger.Info("transcript acquired", logging.Int("chars", len(text)))
	return text
}

func (p *Pipeline) analyze(ctx context.Context, logger *slog.Logger, ep episode.Episode, text string) *artifact.Analysis {
	if p.analyzer == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	analysis, err := p.analyzer.Analyze(services.WithStage(ctx, "analyze"), ep, text)
	if err != nil {
		logging.Event(logger, slog.LevelWarn, "analysis unavailable", "analysis_unavailable",
			"summary falls back to transcript excerpts", logging.Error(err))
		return nil
	}
	return analysis
}

// abandon records a post-reservation failure in the ledger and notifies.
func (p *Pipeline) abandon(ctx context.Context, logger *slog.Logger, res *ledger.Reservation, ep episode.Episode, out Outcome, state State, cause error) (Outcome, error) {
	out.State = state
	out.Reason = failureReason(cause)
	logging.Event(logger, slog.LevelError, "episode failed", "episode_failed", "",
		logging.String("state", string(state)),
		logging.ErrorKind(cause),
		logging.Bool("retryable", state == StateFailedRetryable),
		logging.Error(cause),
	)
	failCtx, cancel := detached(ctx)
	defer cancel()
	if _, err := p.ledger.Fail(failCtx, res, out.Reason); err != nil {
		logger.Error("failed to record ledger failure", logging.Error(err))
		cause = errors.Join(cause, fmt.Errorf("record ledger failure: %w", err))
	}
	if err := p.notifier.NotifyFailed(ctx, ep.Title, cause); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	return out, cause
}

// detached keeps ledger bookkeeping alive after the run context is cancelled
// or its deadline passed.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), ledgerCleanupTimeout)
}

func failureReason(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", services.Kind(err), err)
}
