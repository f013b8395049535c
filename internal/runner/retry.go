package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/torosent/crankpost/internal/collection"
)

// HTTPError represents an HTTP request failure with status details.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(req collection.ResolvedRequest, err error)
}

// RequestLogger logs every completed request.
type RequestLogger interface {
	LogRequest(req collection.ResolvedRequest, elapsed time.Duration, err error)
}

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
}

type retryRequester struct {
	inner  Requester
	policy RetryPolicy
}

// WithRetry wraps a Requester with retry capability. The reported duration is
// that of the last attempt.
func WithRetry(req Requester, policy RetryPolicy) Requester {
	if policy.MaxAttempts <= 1 {
		return req
	}
	return &retryRequester{
		inner:  req,
		policy: policy,
	}
}

func (r *retryRequester) Do(ctx context.Context, req collection.ResolvedRequest) (time.Duration, error) {
	var (
		elapsed time.Duration
		lastErr error
	)
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return elapsed, ctx.Err()
		}

		elapsed, lastErr = r.inner.Do(ctx, req)
		if lastErr == nil {
			return elapsed, nil
		}

		if attempt < r.policy.MaxAttempts {
			if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(lastErr) {
				return elapsed, lastErr
			}
			delay := r.policy.Delay
			if r.policy.DelayFunc != nil {
				delay = r.policy.DelayFunc(attempt, lastErr)
			}
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return elapsed, ctx.Err()
				}
			}
		}
	}
	return elapsed, lastErr
}

type loggingRequester struct {
	inner    Requester
	failures FailureLogger
	requests RequestLogger
}

// WithLogging wraps a Requester to log failures.
func WithLogging(req Requester, logger FailureLogger) Requester {
	if logger == nil {
		return req
	}
	return &loggingRequester{inner: req, failures: logger}
}

// WithRequestLog wraps a Requester to log every request and its outcome.
func WithRequestLog(req Requester, logger RequestLogger) Requester {
	if logger == nil {
		return req
	}
	return &loggingRequester{inner: req, requests: logger}
}

func (l *loggingRequester) Do(ctx context.Context, req collection.ResolvedRequest) (time.Duration, error) {
	elapsed, err := l.inner.Do(ctx, req)
	if l.requests != nil {
		l.requests.LogRequest(req, elapsed, err)
	}
	if err != nil && l.failures != nil {
		l.failures.LogFailure(req, err)
	}
	return elapsed, err
}
