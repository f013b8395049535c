package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/torosent/crankpost/internal/collection"
	"github.com/torosent/crankpost/internal/httpclient"
	"github.com/torosent/crankpost/internal/runner"
	"github.com/torosent/crankpost/internal/tracing"
)

const maxLoggedBodyBytes = 1024

// httpRequester implements runner.Requester for HTTP protocol.
type httpRequester struct {
	client  *http.Client
	builder *httpclient.RequestBuilder
	tracing *tracing.Provider
}

// Do sends one resolved request. Only a 200 response counts as success; any
// other status is returned as *runner.HTTPError with a body snippet.
func (r *httpRequester) Do(ctx context.Context, resolved collection.ResolvedRequest) (time.Duration, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracing.StartRequestSpan(ctx, r.tracing.Tracer(), resolved)

	if r.builder == nil {
		err := fmt.Errorf("request builder is not configured")
		tracing.EndSpan(span, err)
		return 0, err
	}
	req, err := r.builder.Build(ctx, resolved)
	if err != nil {
		tracing.EndSpan(span, err)
		return 0, err
	}
	if r.tracing.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		tracing.EndSpan(span, err)
		return latency, err
	}
	defer resp.Body.Close()

	var resultErr error
	if resp.StatusCode != http.StatusOK {
		resultErr = &runner.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       httpclient.ReadSnippet(resp.Body, maxLoggedBodyBytes),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	tracing.EndSpan(span, resultErr, tracing.StatusCode(resp.StatusCode))
	return latency, resultErr
}
