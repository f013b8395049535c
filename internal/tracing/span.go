package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/crankpost/internal/collection"
)

// EndpointKey is the span attribute naming the collection endpoint.
const EndpointKey = attribute.Key("crankpost.endpoint")

// StartRequestSpan starts a client span for one replayed request, named
// "HTTP <endpoint>".
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, req collection.ResolvedRequest) (context.Context, trace.Span) {
	spanName := "HTTP request"
	if req.Name != "" {
		spanName = "HTTP " + req.Name
	}
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL),
	)
	if req.Name != "" {
		span.SetAttributes(EndpointKey.String(req.Name))
	}
	return ctx, span
}

// StatusCode returns the response status attribute.
func StatusCode(code int) attribute.KeyValue {
	return attribute.Int("http.response.status_code", code)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
