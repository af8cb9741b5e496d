package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// MetricsConfig configures the metrics pipeline
type MetricsConfig struct {
	Enabled     bool
	Endpoint    string        // OTLP gRPC collector, host:port
	Interval    time.Duration // export interval
	ServiceName string
	Insecure    bool
}

// Metrics owns the meter provider lifecycle. A disabled Metrics hands out
// no-op instruments.
type Metrics struct {
	sdk *sdkmetric.MeterProvider
	cfg MetricsConfig
	log *zap.Logger
}

// NewMetrics builds the metrics pipeline and installs it as the global
// meter provider. With cfg.Enabled false it installs nothing.
func NewMetrics(ctx context.Context, cfg MetricsConfig, log *zap.Logger) (*Metrics, error) {
	m := &Metrics{cfg: cfg, log: log}
	if !cfg.Enabled {
		log.Info("Metrics export disabled")
		return m, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}

	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	m.sdk = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(m.sdk)

	log.Info("Metrics pipeline started",
		zap.String("endpoint", cfg.Endpoint),
		zap.Duration("interval", interval),
	)
	return m, nil
}

// Enabled reports whether metrics are being exported
func (m *Metrics) Enabled() bool {
	return m.sdk != nil
}

// Meter returns a named meter, no-op when metrics are disabled
func (m *Metrics) Meter(name string) metric.Meter {
	if m.sdk == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return m.sdk.Meter(name)
}

// Shutdown flushes and stops the metrics pipeline
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	if err := m.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: metric shutdown: %w", err)
	}
	m.log.Info("Metrics pipeline stopped")
	return nil
}

// ---------------------------------------------------------------------------
// HTTP Request Metrics
// ---------------------------------------------------------------------------

// requestDurationBuckets are bucket boundaries for request latency in seconds
var requestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// RequestMetrics records a counter and a latency histogram per route.
// Instrument creation failures fall back to no-op instruments; metrics are
// never allowed to take a request down.
func RequestMetrics(m *Metrics) gin.HandlerFunc {
	meter := m.Meter(scopeName)
	total, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Completed HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil && m.log != nil {
		m.log.Warn("Request counter unavailable", zap.Error(err))
	}
	duration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestDurationBuckets...))
	if err != nil && m.log != nil {
		m.log.Warn("Request histogram unavailable", zap.Error(err))
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("http.status_code", strconv.Itoa(c.Writer.Status())),
		)
		ctx := c.Request.Context()
		if total != nil {
			total.Add(ctx, 1, attrs)
		}
		if duration != nil {
			duration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
	}
}
