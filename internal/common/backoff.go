package common

import (
	"context"
	"time"
)

// BackoffConfig controls retry pacing for operations that can be
// re-attempted as a whole.
type BackoffConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultBackoffConfig returns the retry pacing used for content extraction:
// three attempts total with a fixed delay between them.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the wait before the given zero-based retry attempt,
// doubling from BaseDelay and capped at MaxDelay.
func (bc BackoffConfig) Delay(attempt int) time.Duration {
	delay := bc.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= bc.MaxDelay {
			return bc.MaxDelay
		}
	}
	if delay > bc.MaxDelay {
		return bc.MaxDelay
	}
	return delay
}

// Sleep waits for the retry delay of the given attempt or until the
// context is cancelled, whichever comes first.
func (bc BackoffConfig) Sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(bc.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
