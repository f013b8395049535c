// Package tracing exports one client span per replayed collection request and
// optionally forwards W3C trace context to the API under test.
package tracing

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/torosent/crankpost/internal/config"
)

const (
	instrumentationName = "crankpost"
	defaultGRPCPort     = "4317"
)

// Resource attributes identifying the replayed run.
const (
	RunIDKey      = attribute.Key("crankpost.run_id")
	CollectionKey = attribute.Key("crankpost.collection")
)

// Run identifies the load test whose requests are traced.
type Run struct {
	ID         string
	Collection string
}

// Provider hands out the request tracer and remembers whether trace context
// is forwarded to the target API.
type Provider struct {
	tp        *sdktrace.TracerProvider
	tracer    trace.Tracer
	propagate bool
}

// Init sets up OTLP export when a collector endpoint is configured through
// cfg or OTEL_EXPORTER_OTLP_ENDPOINT. Without one, the returned provider
// traces nothing.
func Init(ctx context.Context, cfg config.TracingConfig, run Run) (*Provider, error) {
	if !cfg.Enabled() {
		return &Provider{}, nil
	}

	endpoint := firstNonEmpty(cfg.Endpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return &Provider{propagate: cfg.ShouldPropagate()}, nil
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1.0 {
		return nil, fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", cfg.SampleRate)
	}

	serviceName := firstNonEmpty(cfg.ServiceName, os.Getenv("OTEL_SERVICE_NAME"), instrumentationName)
	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(serviceName, run)...))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg, endpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(newSampler(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tp:        tp,
		tracer:    tp.Tracer(instrumentationName),
		propagate: cfg.ShouldPropagate(),
	}, nil
}

func resourceAttributes(serviceName string, run Run) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if run.ID != "" {
		attrs = append(attrs, RunIDKey.String(run.ID))
	}
	if run.Collection != "" {
		attrs = append(attrs, CollectionKey.String(filepath.Base(run.Collection)))
	}
	return attrs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer never returns nil; without a collector it is a no-op tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracer
}

// ShouldPropagate reports whether replayed requests carry traceparent headers.
func (p *Provider) ShouldPropagate() bool {
	if p == nil {
		return false
	}
	return p.propagate
}

// Shutdown exports buffered request spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// collectorTarget is where request spans are exported. A URL endpoint
// ("http://otel:4318") selects plaintext by its scheme; a bare host:port
// relies on cfg.Insecure.
type collectorTarget struct {
	url      string
	hostPort string
	insecure bool
}

func parseCollectorTarget(endpoint string, insecureFlag bool) (collectorTarget, error) {
	if !strings.Contains(endpoint, "://") {
		return collectorTarget{hostPort: endpoint, insecure: insecureFlag}, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return collectorTarget{}, fmt.Errorf("invalid collector endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http":
		return collectorTarget{url: endpoint, insecure: true}, nil
	case "https":
		return collectorTarget{url: endpoint, insecure: insecureFlag}, nil
	default:
		return collectorTarget{}, fmt.Errorf("invalid collector endpoint %q: scheme must be http or https", endpoint)
	}
}

func newExporter(ctx context.Context, cfg config.TracingConfig, endpoint string) (sdktrace.SpanExporter, error) {
	target, err := parseCollectorTarget(endpoint, cfg.Insecure)
	if err != nil {
		return nil, err
	}

	switch protocol := strings.ToLower(firstNonEmpty(cfg.Protocol, "grpc")); protocol {
	case "grpc":
		var opts []otlptracegrpc.Option
		if target.url != "" {
			opts = append(opts, otlptracegrpc.WithEndpointURL(target.url))
		} else {
			opts = append(opts, otlptracegrpc.WithEndpoint(withDefaultPort(target.hostPort)))
		}
		if target.insecure {
			opts = append(opts,
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
				otlptracegrpc.WithInsecure(),
			)
		}
		return otlptracegrpc.New(ctx, opts...)

	case "http":
		var opts []otlptracehttp.Option
		if target.url != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(target.url))
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(target.hostPort))
		}
		if target.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q: use \"grpc\" or \"http\"", protocol)
	}
}

// withDefaultPort appends the OTLP gRPC port to a bare collector host.
func withDefaultPort(hostPort string) string {
	if _, _, err := net.SplitHostPort(hostPort); err == nil {
		return hostPort
	}
	return net.JoinHostPort(hostPort, defaultGRPCPort)
}
