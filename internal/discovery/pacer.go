package discovery

import (
	"context"
	"time"
)

// Pacer waits between provider batches
type Pacer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerPacer sleeps on a timer and returns early when ctx is cancelled
type TimerPacer struct{}

// Wait blocks for d or until ctx is done
func (TimerPacer) Wait(ctx context.Context, d time.Duration) error {
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
