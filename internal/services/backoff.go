package services

import (
	"context"
	"time"
)

// Backoff computes doubling retry delays starting at Base and capped at Max.
// A zero Max leaves delays uncapped.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before retry number attempt (1-based):
// Base, 2*Base, 4*Base, ... never exceeding Max.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	delay := b.Base
	for i := 1; i < attempt; i++ {
		if b.Max > 0 && delay > b.Max/2 {
			return b.Max
		}
		delay *= 2
	}
	return b.Cap(delay)
}

// Cap clamps d to [0, Max].
func (b Backoff) Cap(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
