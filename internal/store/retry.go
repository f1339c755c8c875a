package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures how Open retries an unreachable database.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns the retry policy used for network databases.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		JitterFraction: 0.25,
	}
}

// isTransient reports whether err is a connectivity failure worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrConnectivity) || isConnectivity(err)
}

// backoff computes the delay for the given attempt with jitter.
func (rc *RetryConfig) backoff(attempt int) time.Duration {
	base := float64(rc.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rc.MaxBackoff) {
		base = float64(rc.MaxBackoff)
	}
	jitter := base * rc.JitterFraction * (rand.Float64()*2 - 1)
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry runs fn until it succeeds, fails permanently or the retries run out.
// A nil config runs fn once.
func retry(ctx context.Context, rc *RetryConfig, logger *slog.Logger, operation string, fn func() error) error {
	if rc == nil {
		return fn()
	}
	var lastErr error
	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < rc.MaxRetries {
			d := rc.backoff(attempt)
			logger.Warn("retrying", "op", operation, "attempt", attempt+1, "delay", d, "error", lastErr)
			if err := sleep(ctx, d); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", operation, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", operation, lastErr, rc.MaxRetries)
}
