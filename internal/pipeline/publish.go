package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"podsum/internal/logging"
	"podsum/internal/publisher"
	"podsum/internal/services"
)

// publish invokes the publisher under the per-attempt timeout. Network
// failures, including attempt timeouts, are retried with doubling backoff up
// to maxAttempts; a conflict is retried once; anything else returns at once.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, req publisher.Request) (publisher.Result, int, error) {
	ctx = services.WithStage(ctx, "publish")
	networkAttempts := 0
	conflictRetried := false

	for attempts := 1; ; attempts++ {
		result, err := p.publishOnce(ctx, req)
		if err == nil {
			return result, attempts, nil
		}
		if ctx.Err() != nil {
			return publisher.Result{}, attempts, err
		}

		switch {
		case errors.Is(err, services.ErrConflict):
			if conflictRetried {
				return publisher.Result{}, attempts, err
			}
			conflictRetried = true
			logger.Warn("publish conflict, retrying once",
				logging.String(logging.FieldEventType, "publish_retry"),
				logging.Int("attempt", attempts),
				logging.Error(err),
			)
		case services.Retryable(err):
			networkAttempts++
			if networkAttempts >= p.maxAttempts {
				return publisher.Result{}, attempts, err
			}
			delay := p.backoff.Delay(networkAttempts)
			logger.Warn("publish failed, retrying",
				logging.String(logging.FieldEventType, "publish_retry"),
				logging.Int("attempt", attempts),
				logging.Duration("backoff", delay),
				logging.Error(err),
			)
			if err := p.sleep(ctx, delay); err != nil {
				return publisher.Result{}, attempts, err
			}
		default:
			return publisher.Result{}, attempts, err
		}
	}
}

func (p *Pipeline) publishOnce(ctx context.Context, req publisher.Request) (publisher.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	result, err := p.publisher.Publish(attemptCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrNetwork) {
		err = services.Wrap(services.ErrNetwork, "publish", "timeout", "attempt exceeded "+p.publishTimeout.String(), err)
	}
	return result, err
}

