package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

var newTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// WaitFor blocks for d or until ctx is done, whichever comes first. The timer
// is released as soon as ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	fired, stop := newTimer(d)
	defer stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-fired:
		return nil
	}
}

// Backoff returns the delay before the given retry attempt: base doubled per
// attempt, capped at 30s, with up to 25% jitter either way.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}

	backoff := base * time.Duration(1<<uint(attempt-1))
	if backoff > 30*time.Second || backoff <= 0 {
		backoff = 30 * time.Second
	}

	quarter := int64(backoff) / 4
	if quarter <= 0 {
		return backoff
	}
	jitter := time.Duration(rand.Int64N(2*quarter+1) - quarter)
	return backoff + jitter
}
