// Package retry repeats failed calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Total attempts including the first one (default: 1, no retry)
	InitialBackoff time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 10s)

	// Retryable decides whether an error is worth another attempt.
	// Nil means IsRetryable.
	Retryable func(err error) bool

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Delayer is implemented by errors that carry a server-imposed delay,
// such as Telegram's retry_after.
type Delayer interface {
	RetryAfter() time.Duration
}

// Retrier is implemented by errors that classify themselves.
type Retrier interface {
	IsRetryable() bool
}

// Do calls fn until it succeeds, returns a non-retryable error or runs out
// of attempts. When ctx ends during a backoff the last error of fn is
// returned, so callers always see what actually failed.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = withDefaults(cfg)

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts || !cfg.Retryable(err) {
			break
		}

		wait := backoff(attempt, err, cfg.InitialBackoff, cfg.MaxBackoff)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}

	if cfg.MaxAttempts > 1 && cfg.Retryable(lastErr) {
		return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
	}
	return lastErr
}

func withDefaults(cfg Config) Config {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsRetryable
	}
	return cfg
}

// IsRetryable reports whether err classifies itself as retryable.
// Context cancellation and unknown errors are not retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var r Retrier
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// backoff calculates the wait after the given attempt (1-based):
// 2^(attempt-1) * initial capped at max. A server-imposed delay wins
// when it is longer.
func backoff(attempt int, err error, initial, max time.Duration) time.Duration {
	wait := time.Duration(1<<uint(attempt-1)) * initial
	if wait > max || wait <= 0 {
		wait = max
	}

	var d Delayer
	if errors.As(err, &d) {
		if after := d.RetryAfter(); after > wait {
			wait = after
		}
	}
	return wait
}
