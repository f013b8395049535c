// Package runner replays a flattened request list as a load test.
//
// Every virtual user (VU) walks the request list in order, once per
// iteration, and pauses for the think time after each request. VUs run
// concurrently but each one is strictly sequential, and each records into its
// own [metrics.Aggregator]. The per-VU aggregators are merged after the run.
//
//	r := runner.New(runner.Options{
//		VUs:        5,
//		Iterations: 10,
//		ThinkTime:  time.Second,
//		Requests:   requests,
//		Requester:  requester,
//	})
//	result, err := r.Run(ctx)
//	summary := result.Aggregator.Summarize()
//
// A run ends when every VU finishes its iterations, when Duration elapses, or
// when ctx is cancelled. Without Duration and Iterations, each VU makes a
// single pass. RatePerSecond caps the request rate across all VUs through one
// shared limiter.
//
// # Middleware
//
//   - [WithRetry]: retry failed requests with a backoff policy
//   - [WithLogging]: report failures to a [FailureLogger]
//   - [WithRequestLog]: report every request to a [RequestLogger]
//
// Non-200 responses surface as [*HTTPError].
package runner
