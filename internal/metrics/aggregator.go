package metrics

import (
	"fmt"
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/crankpost/internal/collection"
)

// UnknownEndpointError is returned when a request outcome is recorded against
// a name the aggregator was not initialized with.
type UnknownEndpointError struct {
	Name string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("unknown endpoint %q", e.Name)
}

// EndpointMetrics holds the raw observations for one endpoint.
type EndpointMetrics struct {
	durations []float64
	hist      *hdrhistogram.Histogram
	failures  int64
	requests  int64
}

func newEndpointMetrics() *EndpointMetrics {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &EndpointMetrics{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

// Durations returns a copy of the recorded durations in milliseconds, in call order.
func (m *EndpointMetrics) Durations() []float64 {
	return append([]float64(nil), m.durations...)
}

// Failures returns the number of failed requests.
func (m *EndpointMetrics) Failures() int64 { return m.failures }

// Requests returns the number of recorded requests.
func (m *EndpointMetrics) Requests() int64 { return m.requests }

func (m *EndpointMetrics) record(durationMs float64, succeeded bool) {
	m.durations = append(m.durations, durationMs)
	m.recordHistogram(durationMs)
	m.requests++
	if !succeeded {
		m.failures++
	}
}

func (m *EndpointMetrics) recordHistogram(durationMs float64) {
	if durationMs <= 0 {
		return
	}
	us := int64(math.Round(durationMs * 1000))
	if us < m.hist.LowestTrackableValue() {
		us = m.hist.LowestTrackableValue()
	}
	if us > m.hist.HighestTrackableValue() {
		us = m.hist.HighestTrackableValue()
	}
	_ = m.hist.RecordValue(us)
}

// Aggregator owns the metrics of every declared endpoint.
type Aggregator struct {
	names     []string
	endpoints map[string]*EndpointMetrics
}

// NewAggregator allocates empty metrics for each distinct request name, in
// first-occurrence order. The set of endpoints never changes afterwards.
func NewAggregator(requests []collection.ResolvedRequest) *Aggregator {
	return newAggregator(collection.EndpointNames(requests))
}

func newAggregator(names []string) *Aggregator {
	a := &Aggregator{
		names:     append([]string(nil), names...),
		endpoints: make(map[string]*EndpointMetrics, len(names)),
	}
	for _, name := range a.names {
		a.endpoints[name] = newEndpointMetrics()
	}
	return a
}

// Names returns the endpoint names in declaration order.
func (a *Aggregator) Names() []string {
	return append([]string(nil), a.names...)
}

// Endpoint returns the metrics for name.
func (a *Aggregator) Endpoint(name string) (*EndpointMetrics, bool) {
	m, ok := a.endpoints[name]
	return m, ok
}

// InvalidDurationError is returned when a duration is NaN or infinite.
type InvalidDurationError struct {
	Name       string
	DurationMs float64
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid duration %v for endpoint %q", e.DurationMs, e.Name)
}

// Record adds one request outcome to the named endpoint. It fails with
// *UnknownEndpointError if name was not declared and *InvalidDurationError if
// durationMs is not finite; either way all metrics are left untouched.
func (a *Aggregator) Record(name string, durationMs float64, succeeded bool) error {
	m, ok := a.endpoints[name]
	if !ok {
		return &UnknownEndpointError{Name: name}
	}
	if math.IsNaN(durationMs) || math.IsInf(durationMs, 0) {
		return &InvalidDurationError{Name: name, DurationMs: durationMs}
	}
	m.record(durationMs, succeeded)
	return nil
}

// Summarize projects the current state into a Summary. It can be called any
// number of times; each call reflects the state at that moment.
func (a *Aggregator) Summarize() Summary {
	summary := Summary{
		names:     a.Names(),
		endpoints: make(map[string]EndpointSummary, len(a.names)),
	}

	total := newEndpointMetrics()
	for _, name := range a.names {
		m := a.endpoints[name]
		summary.endpoints[name] = summarizeEndpoint(m)
		total.absorb(m)
	}
	summary.totals = summarizeEndpoint(total)

	return summary
}

func (m *EndpointMetrics) absorb(other *EndpointMetrics) {
	m.durations = append(m.durations, other.durations...)
	m.hist.Merge(other.hist)
	m.failures += other.failures
	m.requests += other.requests
}

// Merge combines aggregators that were initialized from the same request list,
// such as the per-VU aggregators of one run. Durations are concatenated in
// argument order.
func Merge(aggs ...*Aggregator) (*Aggregator, error) {
	if len(aggs) == 0 {
		return newAggregator(nil), nil
	}

	for idx, agg := range aggs {
		if agg == nil {
			return nil, fmt.Errorf("merge: aggregator %d is nil", idx)
		}
	}

	merged := newAggregator(aggs[0].names)
	for idx, agg := range aggs {
		if !sameNames(merged.names, agg.names) {
			return nil, fmt.Errorf("merge: aggregator %d declares endpoints %v, want %v", idx, agg.names, merged.names)
		}
		for _, name := range agg.names {
			merged.endpoints[name].absorb(agg.endpoints[name])
		}
	}
	return merged, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
