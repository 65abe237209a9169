package http

import (
	"context"
	"strings"
	"time"

	apperrors "product-query-router/internal/common/errors"
	"product-query-router/internal/common/metrics"
)

// RetryPolicy bounds retries of one backend call. MaxRetries counts
// additional attempts, so 2 means at most 3 calls.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Backoff returns the wait before retry number attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := p.BaseDelay * time.Duration(1<<(attempt-1))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Retry runs op until it succeeds, returns a non-retryable error, the
// policy is exhausted or ctx is done. Every attempt is counted under
// backend in query_router_backend_call_attempts_total.
func Retry(ctx context.Context, policy RetryPolicy, backend string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(policy.Backoff(attempt)):
			case <-ctx.Done():
				return lastErr
			}
		}

		err := op(ctx)
		metrics.BackendCallAttempts.WithLabelValues(backend, outcomeLabel(err)).Inc()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !apperrors.IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return strings.ToLower(string(stdErr.Code))
	}
	return "error"
}
