// Package obstrace provides magritte's distributed tracing, built on
// OpenTelemetry's OTLP exporter the way the teacher's observability
// middleware does.
package obstrace

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the tracer provider.
type Config struct {
	ServiceName  string
	Endpoint     string
	UseHTTP      bool
	Insecure     bool
	SampleRate   float64
	BatchTimeout time.Duration
}

// DefaultConfig returns sane defaults for local development: insecure
// gRPC, sample everything, batch every 5 seconds.
func DefaultConfig(serviceName, endpoint string) Config {
	return Config{
		ServiceName:  serviceName,
		Endpoint:     endpoint,
		Insecure:     true,
		SampleRate:   1.0,
		BatchTimeout: 5 * time.Second,
	}
}

// Provider owns the SDK tracer provider and the tracer magritte's
// components use to start spans.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// New builds a Provider exporting to cfg.Endpoint and installs it as the
// global tracer provider.
func New(cfg Config) (*Provider, error) {
	ctx := context.Background()

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("obstrace: failed to create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("obstrace: failed to build resource: %w", err)
	}

	sampler := sampler(cfg.SampleRate)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(cfg.BatchTimeout)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{sdk: provider, tracer: provider.Tracer(cfg.ServiceName)}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.UseHTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

// StartSpan starts a span named name, tracing one handler evaluation or
// database query.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name)
}

// StartRun starts the root span for one orchestrator run, tagged with
// runID so every child span and every log line emitted during the run
// can be correlated back to it.
func (p *Provider) StartRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.String("run.id", runID),
	))
}

// Shutdown flushes any pending spans and releases exporter resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.sdk.Shutdown(ctx)
}
