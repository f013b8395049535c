package metrics_test

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/torosent/crankpost/internal/collection"
	"github.com/torosent/crankpost/internal/metrics"
)

func requestsNamed(names ...string) []collection.ResolvedRequest {
	requests := make([]collection.ResolvedRequest, len(names))
	for i, name := range names {
		requests[i] = collection.ResolvedRequest{Name: name, Method: "GET", URL: "http://h/" + name}
	}
	return requests
}

func TestNewAggregatorAllocatesDistinctNames(t *testing.T) {
	agg := metrics.NewAggregator(requestsNamed("A", "B", "A"))

	names := agg.Names()
	if !reflect.DeepEqual(names, []string{"A", "B"}) {
		t.Fatalf("expected [A B], got %v", names)
	}
	for _, name := range names {
		m, ok := agg.Endpoint(name)
		if !ok {
			t.Fatalf("endpoint %q not allocated", name)
		}
		if m.Requests() != 0 || m.Failures() != 0 || len(m.Durations()) != 0 {
			t.Errorf("endpoint %q not zeroed: requests=%d failures=%d durations=%v", name, m.Requests(), m.Failures(), m.Durations())
		}
	}
}

func TestRecordCountsAndSeries(t *testing.T) {
	agg := metrics.NewAggregator(requestsNamed("A"))

	if err := agg.Record("A", 120, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := agg.Record("A", 80, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, _ := agg.Endpoint("A")
	if m.Requests() != 2 {
		t.Errorf("expected requests 2, got %d", m.Requests())
	}
	if m.Failures() != 1 {
		t.Errorf("expected failures 1, got %d", m.Failures())
	}
	if !reflect.DeepEqual(m.Durations(), []float64{120, 80}) {
		t.Errorf("expected durations [120 80], got %v", m.Durations())
	}
}

func TestRecordUnknownEndpoint(t *testing.T) {
	agg := metrics.NewAggregator(requestsNamed("A", "B"))
	if err := agg.Record("A", 50, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := agg.Summarize()

	err := agg.Record("C", 10, false)
	var unknown *metrics.UnknownEndpointError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEndpointError, got %v", err)
	}
	if unknown.Name != "C" {
		t.Errorf("expected name C, got %q", unknown.Name)
	}

	after := agg.Summarize()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed after failed record:\nbefore=%+v\nafter=%+v", before, after)
	}
	if _, ok := agg.Endpoint("C"); ok {
		t.Fatal("unknown endpoint must not be allocated")
	}
}

func TestRecordRejectsNonFiniteDuration(t *testing.T) {
	agg := metrics.NewAggregator(requestsNamed("A"))
	if err := agg.Record("A", 25, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := agg.Summarize()

	for _, d := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := agg.Record("A", d, false)
		var invalid *metrics.InvalidDurationError
		if !errors.As(err, &invalid) {
			t.Fatalf("Record(%v) error = %v, want InvalidDurationError", d, err)
		}
		if invalid.Name != "A" {
			t.Errorf("Name = %q, want A", invalid.Name)
		}
	}

	after := agg.Summarize()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed after rejected record:\nbefore=%+v\nafter=%+v", before, after)
	}
	if _, err := json.Marshal(after); err != nil {
		t.Fatalf("summary should stay encodable: %v", err)
	}
}

func TestDurationsReturnsCopy(t *testing.T) {
	agg := metrics.NewAggregator(requestsNamed("A"))
	_ = agg.Record("A", 10, true)

	m, _ := agg.Endpoint("A")
	d := m.Durations()
	d[0] = 999

	if m.Durations()[0] != 10 {
		t.Fatal("Durations must not expose internal storage")
	}
}

func TestMergeCombinesAggregators(t *testing.T) {
	requests := requestsNamed("A", "B")
	vu1 := metrics.NewAggregator(requests)
	vu2 := metrics.NewAggregator(requests)

	_ = vu1.Record("A", 10, true)
	_ = vu1.Record("B", 20, false)
	_ = vu2.Record("A", 30, false)

	merged, err := metrics.Merge(vu1, vu2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := merged.Endpoint("A")
	if a.Requests() != 2 || a.Failures() != 1 {
		t.Errorf("unexpected A counters: requests=%d failures=%d", a.Requests(), a.Failures())
	}
	if !reflect.DeepEqual(a.Durations(), []float64{10, 30}) {
		t.Errorf("unexpected A durations %v", a.Durations())
	}
	b, _ := merged.Endpoint("B")
	if b.Requests() != 1 || b.Failures() != 1 {
		t.Errorf("unexpected B counters: requests=%d failures=%d", b.Requests(), b.Failures())
	}

	// Inputs stay untouched.
	if m, _ := vu1.Endpoint("A"); m.Requests() != 1 {
		t.Errorf("merge mutated its input: %d", m.Requests())
	}
}

func TestMergeRejectsDifferentEndpointSets(t *testing.T) {
	_, err := metrics.Merge(
		metrics.NewAggregator(requestsNamed("A")),
		metrics.NewAggregator(requestsNamed("A", "B")),
	)
	if err == nil {
		t.Fatal("expected error for mismatched endpoints")
	}

	if _, err := metrics.Merge(metrics.NewAggregator(requestsNamed("A")), nil); err == nil {
		t.Fatal("expected error for nil aggregator")
	}
}

func TestMergeNoAggregators(t *testing.T) {
	merged, err := metrics.Merge()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Names()) != 0 {
		t.Fatalf("expected empty aggregator, got %v", merged.Names())
	}
}
