// Package telemetry wires OpenTelemetry tracing and metrics export. Both
// signals ship over OTLP gRPC to one collector; when a signal is disabled
// the corresponding provider degrades to the global no-op implementation so
// callers never branch on configuration.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// scopeName identifies spans and instruments emitted by this service
const scopeName = "channelops-backend"

// shutdownGrace bounds provider shutdown so a hung collector cannot stall
// process exit
const shutdownGrace = 10 * time.Second

// TracingConfig configures the trace pipeline
type TracingConfig struct {
	Enabled     bool
	Endpoint    string  // OTLP gRPC collector, host:port
	SampleRatio float64 // 1.0 samples everything, 0 nothing
	ServiceName string
	Insecure    bool
}

// Tracing owns the tracer provider lifecycle. A disabled Tracing is fully
// functional and hands out no-op tracers.
type Tracing struct {
	sdk *sdktrace.TracerProvider
	cfg TracingConfig
	log *zap.Logger
}

// NewTracing builds the trace pipeline and installs it as the global
// tracer provider and propagator. With cfg.Enabled false it installs
// nothing and returns a no-op wrapper.
func NewTracing(ctx context.Context, cfg TracingConfig, log *zap.Logger) (*Tracing, error) {
	t := &Tracing{cfg: cfg, log: log}
	if !cfg.Enabled {
		log.Info("Tracing disabled")
		return t, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}

	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	t.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(t.sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("Tracing pipeline started",
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("sample_ratio", cfg.SampleRatio),
	)
	return t, nil
}

// Enabled reports whether spans are being exported
func (t *Tracing) Enabled() bool {
	return t.sdk != nil
}

// Tracer returns a named tracer, no-op when tracing is disabled
func (t *Tracing) Tracer(name string) trace.Tracer {
	if t.sdk == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return t.sdk.Tracer(name)
}

// ForceFlush exports buffered spans immediately
func (t *Tracing) ForceFlush(ctx context.Context) error {
	if t.sdk == nil {
		return nil
	}
	return t.sdk.ForceFlush(ctx)
}

// Shutdown flushes and stops the trace pipeline
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	if err := t.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: trace shutdown: %w", err)
	}
	t.log.Info("Tracing pipeline stopped")
	return nil
}

func samplerFor(ratio float64) sdktrace.Sampler {
	switch ratio {
	case 1.0:
		return sdktrace.AlwaysSample()
	case 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// serviceResource merges the default resource with the service identity
func serviceResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Span Helpers
// ---------------------------------------------------------------------------

// Attribute keys shared by spans and metrics across the service
var (
	AttrMarketplace = attribute.Key("marketplace")
	AttrSKU         = attribute.Key("sku")
	AttrUserID      = attribute.Key("user_id")
	AttrOperation   = attribute.Key("operation")
)

// StartSpan opens a span on the service tracer. The caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "push.product_update",
//	    telemetry.AttrMarketplace.String("shopify"))
//	defer span.End()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(scopeName).Start(ctx, name,
		trace.WithAttributes(attrs...))
}

// EndSpan records err on the span when non-nil, marks the status
// accordingly, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceID returns the active trace id in ctx, or "" outside a span
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.TraceID().IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
