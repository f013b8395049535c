package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/crankpost/internal/metrics"
)

// Result captures execution summary.
type Result struct {
	Aggregator *metrics.Aggregator // per-VU aggregators merged in VU order
	Total      int64
	Errors     int64
	Iterations int64 // completed passes over the request list, across VUs
	Duration   time.Duration
}

// Progress is a point-in-time view of a running test.
type Progress struct {
	Total     int64
	Errors    int64
	ActiveVUs int64
	Elapsed   time.Duration
}

// Runner replays the request list with a fixed number of virtual users.
type Runner struct {
	opt     Options
	limiter *rate.Limiter

	total      int64
	errs       int64
	iterations int64
	active     int64
	startNanos int64
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, limiter: opt.LimiterFactory(opt.RatePerSecond)}
}

// Progress returns live counters. It is safe to call while Run executes.
func (r *Runner) Progress() Progress {
	p := Progress{
		Total:     atomic.LoadInt64(&r.total),
		Errors:    atomic.LoadInt64(&r.errs),
		ActiveVUs: atomic.LoadInt64(&r.active),
	}
	if start := atomic.LoadInt64(&r.startNanos); start > 0 {
		p.Elapsed = time.Since(time.Unix(0, start))
	}
	return p
}

// Run executes the test until every VU has finished its iterations, the
// duration elapses, or ctx is cancelled. Each VU records into its own
// aggregator; the aggregators are merged once all VUs have stopped.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.opt.Requester == nil {
		return Result{}, errors.New("runner: requester is required")
	}
	if len(r.opt.Requests) == 0 {
		return Result{}, errors.New("runner: no requests to replay")
	}

	start := time.Now()
	atomic.StoreInt64(&r.startNanos, start.UnixNano())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, r.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	aggs := make([]*metrics.Aggregator, r.opt.VUs)
	var wg sync.WaitGroup
	wg.Add(r.opt.VUs)
	for i := 0; i < r.opt.VUs; i++ {
		aggs[i] = metrics.NewAggregator(r.opt.Requests)
		go func(agg *metrics.Aggregator) {
			defer wg.Done()
			atomic.AddInt64(&r.active, 1)
			defer atomic.AddInt64(&r.active, -1)
			r.runVU(ctx, agg)
		}(aggs[i])
	}
	wg.Wait()

	merged, err := metrics.Merge(aggs...)
	if err != nil {
		return Result{}, fmt.Errorf("runner: %w", err)
	}

	return Result{
		Aggregator: merged,
		Total:      atomic.LoadInt64(&r.total),
		Errors:     atomic.LoadInt64(&r.errs),
		Iterations: atomic.LoadInt64(&r.iterations),
		Duration:   time.Since(start),
	}, nil
}

func (r *Runner) runVU(ctx context.Context, agg *metrics.Aggregator) {
	for iter := 0; r.opt.Iterations == 0 || iter < r.opt.Iterations; iter++ {
		for _, req := range r.opt.Requests {
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}

			elapsed, err := r.opt.Requester.Do(ctx, req)
			// A request cut short by the end of the run is not an outcome.
			if err != nil && ctx.Err() != nil {
				return
			}
			if recErr := agg.Record(req.Name, durationMs(elapsed), err == nil); recErr != nil {
				return
			}
			atomic.AddInt64(&r.total, 1)
			if err != nil {
				atomic.AddInt64(&r.errs, 1)
			}

			if !r.pause(ctx) {
				return
			}
		}
		atomic.AddInt64(&r.iterations, 1)
	}
}

func (r *Runner) pause(ctx context.Context) bool {
	if r.opt.ThinkTime <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(r.opt.ThinkTime)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
