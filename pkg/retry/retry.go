package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

// Do runs fn up to attempts times with a fixed delay between tries. It is
// meant for transient network failures only; callers that must not retry
// (anything that submits a transaction) call their operation directly.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
