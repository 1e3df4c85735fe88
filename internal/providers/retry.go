package providers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPError carries a non-200 API response so callers can decide whether the
// failure is retryable.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// RetryConfig controls exponential backoff for transient API failures.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

func retryable(err error) bool {
	he, ok := err.(*HTTPError)
	if !ok {
		// Network errors are retryable; context cancellation is handled
		// separately in retryDo.
		return true
	}
	return he.Status == http.StatusTooManyRequests || he.Status >= 500
}

// retryDo runs fn with backoff until it succeeds, the error is permanent, or
// attempts run out. A Retry-After hint from the server overrides the
// computed delay.
func retryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.BaseDelay << (attempt - 1)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			if he, ok := lastErr.(*HTTPError); ok && he.RetryAfter > 0 {
				delay = he.RetryAfter
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !retryable(err) {
			return zero, err
		}
	}
	return zero, lastErr
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
