// Package httpclient builds HTTP requests from resolved collection entries and
// provides the pooled client crankpost sends them with.
//
// Request bodies follow the collection: a raw body is sent verbatim, and body
// carrying methods without one send their query parameters as a JSON object
// with Content-Type application/json. GET, HEAD, DELETE, OPTIONS and TRACE
// never carry a body.
//
//	builder, err := httpclient.NewRequestBuilder(cfg.Headers)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx, resolved)
//
// [NewClient] returns a client tuned for load generation, with connection
// reuse and a per-request timeout.
package httpclient
