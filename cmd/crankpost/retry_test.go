package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/torosent/crankpost/internal/runner"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{"too many requests", &runner.HTTPError{StatusCode: 429}, true},
		{"server error", &runner.HTTPError{StatusCode: 503}, true},
		{"client error", &runner.HTTPError{StatusCode: 404}, false},
		{"non-200 success class", &runner.HTTPError{StatusCode: 201}, false},
		{"transport", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.err); got != tt.want {
				t.Errorf("shouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, baseRetryDelay},
		{1, baseRetryDelay},
		{2, 2 * baseRetryDelay},
		{3, 4 * baseRetryDelay},
		{10, maxRetryDelay},
		{64, maxRetryDelay},
	}
	for _, tt := range tests {
		if got := retryBackoff(tt.attempt); got != tt.want {
			t.Errorf("retryBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestNewRetryPolicy(t *testing.T) {
	policy := newRetryPolicy(2)
	if policy.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", policy.MaxAttempts)
	}
	for attempt := 1; attempt <= 3; attempt++ {
		base := retryBackoff(attempt)
		delay := policy.DelayFunc(attempt, errors.New("boom"))
		if delay < base || delay >= base+base/2+1 {
			t.Errorf("DelayFunc(%d) = %v, want within [%v, %v)", attempt, delay, base, base+base/2)
		}
	}
}

func TestJitterNilSafe(t *testing.T) {
	var j *jitterSource
	if got := j.jitter(time.Second); got != 0 {
		t.Errorf("jitter on nil source = %v, want 0", got)
	}
}
