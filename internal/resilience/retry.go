// Package resilience provides retry with exponential backoff for transient
// failures, used when connecting to the run-history store.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Config controls retry behavior.
type Config struct {
	// Attempts is the total number of attempts including the first try.
	Attempts int

	// BaseDelay is the delay before the first retry; each further retry
	// doubles it up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter randomizes each delay by up to this fraction in either
	// direction.
	Jitter float64

	// Retryable overrides the default transient-error check.
	Retryable func(error) bool
}

// Defaults returns the retry configuration used for store connections.
func Defaults() Config {
	return Config{
		Attempts:  4,
		BaseDelay: 250 * time.Millisecond,
		MaxDelay:  5 * time.Second,
		Jitter:    0.25,
	}
}

// Do runs fn, retrying transient failures with backoff. The op name appears
// in retry log lines. Context cancellation stops retries immediately; the
// last attempt's error is returned.
func Do(ctx context.Context, cfg Config, op string, fn func(context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.Attempts-1 {
			break
		}

		delay := backoff(attempt, cfg)
		zap.L().Warn("retrying after transient failure",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

func backoff(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if max := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && delay > max {
		delay = max
	}
	if cfg.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * cfg.Jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
