// Package threshold evaluates pass/fail assertions against a run summary.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/crankpost/internal/metrics"
)

// Supported metric names.
const (
	MetricDuration = "http_req_duration"
	MetricFailed   = "http_req_failed"
	MetricRequests = "http_req_requests"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "http_req_duration", "http_req_failed"
	Endpoint  string  // endpoint name; empty means every endpoint combined
	Aggregate string  // e.g., "p95", "p99", "avg", "max", "rate"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a summary.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds. elapsed is the run duration and is only
// used by http_req_requests:rate.
func (e *Evaluator) Evaluate(summary metrics.Summary, elapsed time.Duration) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, summary, elapsed))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, summary metrics.Summary, elapsed time.Duration) Result {
	actual, err := extractMetricValue(t, summary, elapsed)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("✗ %s: error: %v", t.Raw, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+)(?:\{([^}]+)\})?:([a-z0-9()]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "http_req_duration:p95 < 500"        (latency percentile in ms)
//   - "http_req_duration{Login}:avg < 200" (one endpoint only)
//   - "http_req_failed:rate < 0.01"        (failure ratio)
//   - "http_req_failed:count < 10"         (failure count)
//   - "http_req_requests:count >= 100"     (request count)
//   - "http_req_requests:rate > 20"        (requests per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric[{endpoint}]:aggregate operator value, e.g., 'http_req_duration:p95 < 500')", s)
	}

	metric := matches[1]
	endpoint := strings.TrimSpace(matches[2])
	aggregate := normalizeAggregate(matches[3])
	operator := matches[4]

	value, err := strconv.ParseFloat(matches[5], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", matches[5], err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: http_req_duration, http_req_failed, http_req_requests)", metric)
	}
	if !isValidAggregate(metric, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s", matches[3], metric)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Endpoint:  endpoint,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}

	return result, nil
}

// normalizeAggregate accepts both "p95" and "p(95)", and "med" for "p50".
func normalizeAggregate(aggregate string) string {
	if strings.HasPrefix(aggregate, "p(") && strings.HasSuffix(aggregate, ")") {
		aggregate = "p" + aggregate[2:len(aggregate)-1]
	}
	switch aggregate {
	case "med":
		return "p50"
	case "mean":
		return "avg"
	}
	return aggregate
}

func isValidMetric(metric string) bool {
	switch metric {
	case MetricDuration, MetricFailed, MetricRequests:
		return true
	}
	return false
}

func isValidAggregate(metric, aggregate string) bool {
	switch metric {
	case MetricDuration:
		switch aggregate {
		case "p50", "p90", "p95", "p99", "avg", "min", "max":
			return true
		}
	case MetricFailed, MetricRequests:
		return aggregate == "rate" || aggregate == "count"
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, summary metrics.Summary, elapsed time.Duration) (float64, error) {
	data := summary.Totals()
	if t.Endpoint != "" {
		ep, ok := summary.Endpoint(t.Endpoint)
		if !ok {
			return 0, fmt.Errorf("unknown endpoint %q", t.Endpoint)
		}
		data = ep
	}

	switch t.Metric {
	case MetricDuration:
		return extractLatencyMetric(t.Aggregate, data.Duration)
	case MetricFailed:
		return extractFailureMetric(t.Aggregate, data.Failed)
	case MetricRequests:
		return extractRequestMetric(t.Aggregate, data.Requests, elapsed)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, trend *metrics.DurationTrend) (float64, error) {
	if trend == nil {
		return 0, fmt.Errorf("no latency samples recorded")
	}
	switch aggregate {
	case "p50":
		return trend.Med, nil
	case "p90":
		return trend.P90, nil
	case "p95":
		return trend.P95, nil
	case "p99":
		return trend.P99, nil
	case "avg":
		return trend.Avg, nil
	case "min":
		return trend.Min, nil
	case "max":
		return trend.Max, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for http_req_duration", aggregate)
	}
}

func extractFailureMetric(aggregate string, failed *metrics.FailureCounter) (float64, error) {
	if failed == nil {
		return 0, nil
	}
	switch aggregate {
	case "count":
		return float64(failed.Count), nil
	case "rate":
		return failed.Rate, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for http_req_failed (use 'count' or 'rate')", aggregate)
	}
}

func extractRequestMetric(aggregate string, requests *metrics.RequestCounter, elapsed time.Duration) (float64, error) {
	var count int64
	if requests != nil {
		count = requests.Count
	}
	switch aggregate {
	case "count":
		return float64(count), nil
	case "rate":
		if elapsed <= 0 {
			return 0, nil
		}
		return float64(count) / elapsed.Seconds(), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for http_req_requests (use 'count' or 'rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
