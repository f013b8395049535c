package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/crankpost/internal/collection"
)

// Requester sends one resolved request and reports how long it took.
// Implementations return an error for failed requests, including non-200
// responses.
type Requester interface {
	Do(ctx context.Context, req collection.ResolvedRequest) (time.Duration, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, req collection.ResolvedRequest) (time.Duration, error)

func (f RequesterFunc) Do(ctx context.Context, req collection.ResolvedRequest) (time.Duration, error) {
	return f(ctx, req)
}

// Options configure the Runner.
type Options struct {
	VUs            int                          // independent sequential replay loops
	Iterations     int                          // passes over Requests per VU (0 means one pass, or unlimited when Duration is set)
	Duration       time.Duration                // overall time limit (0 means no duration cap)
	ThinkTime      time.Duration                // pause after every request (0 means none)
	RatePerSecond  int                          // requests per second across all VUs (0 means unlimited)
	Requests       []collection.ResolvedRequest // replayed in order on every iteration
	Requester      Requester                    // request executor (required)
	LimiterFactory func(rps int) *rate.Limiter  // optional injection for tests
}

func (o *Options) normalize() {
	if o.VUs <= 0 {
		o.VUs = 1
	}
	if o.Iterations < 0 {
		o.Iterations = 0
	}
	if o.Iterations == 0 && o.Duration <= 0 {
		o.Iterations = 1
	}
	if o.ThinkTime < 0 {
		o.ThinkTime = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing across VUs.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
