package network

import (
	"context"
	"time"
)

// maxBackoffShift keeps 2^attempt seconds inside time.Duration
const maxBackoffShift = 32

// Scheduler delays the next attempt of a logical call. Wait must return early
// with the context error when ctx is done and must not leak its timer.
type Scheduler interface {
	Wait(ctx context.Context, d time.Duration) error
}

// TimerScheduler waits on a real timer
type TimerScheduler struct{}

// Wait blocks for d or until ctx is done
func (TimerScheduler) Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the delay inserted after a failed attempt: 2^attempt
// seconds, no jitter. The delay before attempt k (k >= 1) is Backoff(k-1).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	return time.Duration(int64(1)<<uint(attempt)) * time.Second
}
