package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// Retry configuration constants
const (
	MaxAPIRetries     = 3
	APIInitialBackoff = 500 * time.Millisecond
	APIMaxBackoff     = 2 * time.Second
	BackoffMultiplier = 2.0
)

// RetryableStatusCodes are HTTP status codes that should trigger a retry
var RetryableStatusCodes = []int{
	http.StatusTooManyRequests,     // 429 - Rate limited
	http.StatusServiceUnavailable,  // 503 - Service unavailable
	http.StatusGatewayTimeout,      // 504 - Gateway timeout
	http.StatusBadGateway,          // 502 - Bad gateway
	http.StatusInternalServerError, // 500 - Internal server error (transient)
}

// ShouldRetryAPICall checks if the error status code indicates we should retry the API call
func ShouldRetryAPICall(statusCode int) bool {
	for _, code := range RetryableStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// BackoffFactory creates the retry schedule for one request
type BackoffFactory func(ctx context.Context) backoff.BackOff

// NewRetryBackoff creates an exponential backoff with jitter that stops after
// MaxAPIRetries retries, when the provider budget is spent, or when ctx ends.
func NewRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = APIInitialBackoff
	b.MaxInterval = APIMaxBackoff
	b.MaxElapsedTime = constants.DefaultProviderTimeout
	b.RandomizationFactor = 0.5
	b.Multiplier = BackoffMultiplier
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxAPIRetries), ctx)
}

// RetryableFunc is a function that can be retried
type RetryableFunc[T any] func() (T, error)

// WithRetry executes fn, retrying only APIErrors with a retryable status code.
// Any other error is returned immediately.
func WithRetry[T any](b backoff.BackOff, fn RetryableFunc[T]) (T, error) {
	var result T
	attempt := 0

	op := func() error {
		attempt++
		r, err := fn()
		if err == nil {
			result = r
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && ShouldRetryAPICall(apiErr.StatusCode) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		logging.Debug("retrying provider call", logging.Fields{
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"error":   err.Error(),
		})
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
