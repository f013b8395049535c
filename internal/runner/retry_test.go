package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/crankpost/internal/collection"
	"github.com/torosent/crankpost/internal/runner"
)

var single = []collection.ResolvedRequest{{Name: "Health", Method: "GET", URL: "http://api.test/health"}}

// TestRetryRespectsMaxAttempts verifies retry count is honored.
func TestRetryRespectsMaxAttempts(t *testing.T) {
	var attempts int64
	requester := &retryableRequester{attempts: &attempts, failUntil: 3}

	policy := runner.RetryPolicy{
		MaxAttempts: 5,
		DelayFunc: func(attempt int, err error) time.Duration {
			return time.Duration(attempt) * time.Millisecond
		},
	}

	r := runner.New(runner.Options{
		Requests:  single,
		Requester: runner.WithRetry(requester, policy),
	})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.Total != 1 {
		t.Errorf("expected total 1, got %d", res.Total)
	}
	if res.Errors != 0 {
		t.Errorf("expected errors 0, got %d", res.Errors)
	}
	// Should succeed on 4th attempt (3 retries after initial failure).
	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}
}

func TestRetryExceedsMaxAttempts(t *testing.T) {
	var attempts int64
	requester := &retryableRequester{attempts: &attempts, failUntil: 100}

	policy := runner.RetryPolicy{
		MaxAttempts: 3,
		DelayFunc:   func(attempt int, err error) time.Duration { return time.Millisecond },
	}

	r := runner.New(runner.Options{
		Requests:  single,
		Requester: runner.WithRetry(requester, policy),
	})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.Errors != 1 {
		t.Errorf("expected errors 1, got %d", res.Errors)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts (max), got %d", attempts)
	}
	summary := res.Aggregator.Summarize()
	health, _ := summary.Endpoint("Health")
	if health.Requests.Count != 1 || health.Failed.Count != 1 {
		t.Errorf("retried request should be recorded once, got %+v %+v", health.Requests, health.Failed)
	}
}

func TestRetryShouldRetryStopsEarly(t *testing.T) {
	var attempts int64
	requester := &retryableRequester{attempts: &attempts, failUntil: 100}
	policy := runner.RetryPolicy{
		MaxAttempts: 5,
		ShouldRetry: func(err error) bool { return false },
	}
	_, err := runner.WithRetry(requester, policy).Do(context.Background(), single[0])
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt got %d", attempts)
	}
}

func TestWithRetrySingleAttemptIsPassthrough(t *testing.T) {
	inner := &retryableRequester{attempts: new(int64)}
	if got := runner.WithRetry(inner, runner.RetryPolicy{MaxAttempts: 1}); got != runner.Requester(inner) {
		t.Fatal("expected the inner requester back")
	}
}

func TestNon200Logged(t *testing.T) {
	logger := &testLogger{}
	requester := &statusRequester{statusCode: 500}

	r := runner.New(runner.Options{
		Iterations: 2,
		Requests:   single,
		Requester:  runner.WithLogging(requester, logger),
	})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.Total != 2 {
		t.Errorf("expected total 2, got %d", res.Total)
	}
	if logger.failures != 2 {
		t.Errorf("expected 2 logged failures, got %d", logger.failures)
	}
	if logger.lastName != "Health" {
		t.Errorf("expected failure for Health, got %q", logger.lastName)
	}
}

func TestWithRequestLogSeesEveryRequest(t *testing.T) {
	logger := &testLogger{}
	requester := runner.WithRequestLog(&statusRequester{statusCode: 200}, logger)

	r := runner.New(runner.Options{Iterations: 3, Requests: single, Requester: requester})
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if logger.requests != 3 {
		t.Errorf("expected 3 logged requests, got %d", logger.requests)
	}
	if logger.failures != 0 {
		t.Errorf("request log must not report failures, got %d", logger.failures)
	}
}

type retryableRequester struct {
	attempts  *int64
	failUntil int64
}

func (r *retryableRequester) Do(ctx context.Context, req collection.ResolvedRequest) (time.Duration, error) {
	attempt := atomic.AddInt64(r.attempts, 1)
	if attempt <= r.failUntil {
		return time.Millisecond, errors.New("transient failure")
	}
	return time.Millisecond, nil
}

type statusRequester struct {
	statusCode int
}

func (s *statusRequester) Do(ctx context.Context, req collection.ResolvedRequest) (time.Duration, error) {
	if s.statusCode != 200 {
		return time.Millisecond, &runner.HTTPError{StatusCode: s.statusCode, Body: "error body"}
	}
	return time.Millisecond, nil
}

type testLogger struct {
	failures int
	requests int
	lastName string
}

func (l *testLogger) LogFailure(req collection.ResolvedRequest, err error) {
	l.failures++
	l.lastName = req.Name
}

func (l *testLogger) LogRequest(req collection.ResolvedRequest, elapsed time.Duration, err error) {
	l.requests++
}
