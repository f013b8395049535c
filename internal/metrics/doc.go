// Package metrics aggregates per-endpoint request metrics for a load test run.
//
// An [Aggregator] is built once from the resolved request list and owns one
// set of metrics per distinct endpoint name. The key set is fixed at
// construction: recording against a name that was not declared fails with
// [UnknownEndpointError] instead of growing the map, so every summary has the
// same shape.
//
//	agg := metrics.NewAggregator(requests)
//	if err := agg.Record("List users", 120, true); err != nil {
//		return err
//	}
//	summary := agg.Summarize()
//
// # Summary
//
// [Summary] maps each endpoint name, in first-declaration order, to its
// http_req_duration, http_req_failed and http_req_requests data. An endpoint
// that never recorded a request renders all three as empty objects.
// Summary implements json.Marshaler and yaml.Marshaler with stable key order.
//
// # Concurrency
//
// An Aggregator is owned by a single virtual user and is not safe for
// concurrent use. Per-VU aggregators are combined after the run with [Merge].
package metrics
