package metrics

import (
	"bytes"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// DurationTrend is the recorded latency data of an endpoint, in milliseconds.
// Values holds every sample in call order; percentiles come from an HDR
// histogram at microsecond precision.
type DurationTrend struct {
	Values []float64 `json:"values" yaml:"values"`
	Count  int64     `json:"count" yaml:"count"`
	Min    float64   `json:"min" yaml:"min"`
	Max    float64   `json:"max" yaml:"max"`
	Avg    float64   `json:"avg" yaml:"avg"`
	Med    float64   `json:"med" yaml:"med"`
	P90    float64   `json:"p(90)" yaml:"p(90)"`
	P95    float64   `json:"p(95)" yaml:"p(95)"`
	P99    float64   `json:"p(99)" yaml:"p(99)"`
}

// FailureCounter is the failure count and failure ratio of an endpoint.
type FailureCounter struct {
	Count int64   `json:"count" yaml:"count"`
	Rate  float64 `json:"rate" yaml:"rate"`
}

// RequestCounter is the number of requests issued to an endpoint.
type RequestCounter struct {
	Count int64 `json:"count" yaml:"count"`
}

// EndpointSummary groups the three metrics of one endpoint. A nil field means
// no data was recorded and renders as an empty object.
type EndpointSummary struct {
	Duration *DurationTrend
	Failed   *FailureCounter
	Requests *RequestCounter
}

type endpointSummaryView struct {
	Duration interface{} `json:"http_req_duration" yaml:"http_req_duration"`
	Failed   interface{} `json:"http_req_failed" yaml:"http_req_failed"`
	Requests interface{} `json:"http_req_requests" yaml:"http_req_requests"`
}

func (e EndpointSummary) view() endpointSummaryView {
	return endpointSummaryView{
		Duration: orEmpty(e.Duration),
		Failed:   orEmpty(e.Failed),
		Requests: orEmpty(e.Requests),
	}
}

func orEmpty[T any](v *T) interface{} {
	if v == nil {
		return struct{}{}
	}
	return v
}

// MarshalJSON renders absent metrics as {}.
func (e EndpointSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.view())
}

// MarshalYAML renders absent metrics as {}.
func (e EndpointSummary) MarshalYAML() (interface{}, error) {
	return e.view(), nil
}

// Summary is the per-endpoint report of a run, keyed by endpoint name in
// declaration order.
type Summary struct {
	names     []string
	endpoints map[string]EndpointSummary
	totals    EndpointSummary
}

// Names returns the endpoint names in declaration order.
func (s Summary) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of endpoints.
func (s Summary) Len() int { return len(s.names) }

// Endpoint returns the summary of a single endpoint.
func (s Summary) Endpoint(name string) (EndpointSummary, bool) {
	e, ok := s.endpoints[name]
	return e, ok
}

// Totals returns the rollup of every endpoint. It is not part of the encoded
// report.
func (s Summary) Totals() EndpointSummary {
	return s.totals
}

// MarshalJSON encodes the summary as an object whose keys keep declaration order.
func (s Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(s.endpoints[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the summary as a mapping whose keys keep declaration order.
func (s Summary) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range s.names {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
		val := &yaml.Node{}
		if err := val.Encode(s.endpoints[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

func summarizeEndpoint(m *EndpointMetrics) EndpointSummary {
	if m.requests == 0 {
		return EndpointSummary{}
	}

	return EndpointSummary{
		Duration: summarizeDurations(m),
		Failed: &FailureCounter{
			Count: m.failures,
			Rate:  float64(m.failures) / float64(m.requests),
		},
		Requests: &RequestCounter{Count: m.requests},
	}
}

func summarizeDurations(m *EndpointMetrics) *DurationTrend {
	if len(m.durations) == 0 {
		return nil
	}

	trend := &DurationTrend{
		Values: append([]float64(nil), m.durations...),
		Count:  int64(len(m.durations)),
		Min:    m.durations[0],
		Max:    m.durations[0],
	}
	var sum float64
	for _, d := range m.durations {
		sum += d
		if d < trend.Min {
			trend.Min = d
		}
		if d > trend.Max {
			trend.Max = d
		}
	}
	trend.Avg = sum / float64(len(m.durations))

	if m.hist.TotalCount() > 0 {
		trend.Med = quantileMs(m, 50)
		trend.P90 = quantileMs(m, 90)
		trend.P95 = quantileMs(m, 95)
		trend.P99 = quantileMs(m, 99)
	}
	return trend
}

func quantileMs(m *EndpointMetrics, q float64) float64 {
	us := m.hist.ValueAtQuantile(q)
	return float64(time.Duration(us)*time.Microsecond) / float64(time.Millisecond)
}
