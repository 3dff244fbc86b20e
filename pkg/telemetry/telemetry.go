// Package telemetry installs the tracing and metrics providers used by the
// view counter service and hands out instruments bound to them.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/logishift/viewrank/pkg/config"
	"github.com/logishift/viewrank/pkg/logging"
)

const (
	instrumentationName = "github.com/logishift/viewrank"
	shutdownTimeout     = 5 * time.Second
)

// Version is reported as the service version resource attribute.
// Overridden at build time with -ldflags "-X ...telemetry.Version=...".
var Version = "dev"

var tracer trace.Tracer

type shutdownFunc func(context.Context) error

// Init installs the span exporter and the metric reader enabled in cfg.
// The Prometheus reader registers with the default prometheus registry;
// the caller mounts the scrape handler. The returned func flushes and
// stops every installed provider.
func Init(cfg *config.TelemetryConfig) (func(), error) {
	logger := logging.WithComponent("telemetry")
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return func() {}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var stops []shutdownFunc

	if cfg.JaegerURL != "" {
		tp, err := newTracerProvider(cfg.JaegerURL, res)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		stops = append(stops, tp.Shutdown)
		logger.Info("Span export enabled", zap.String("collector", cfg.JaegerURL))
	}

	if cfg.PrometheusEnabled {
		mp, err := newMeterProvider(res)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		stops = append(stops, mp.Shutdown)
		logger.Info("Metric export enabled", zap.Int("port", cfg.PrometheusPort))
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracer = otel.Tracer(cfg.ServiceName)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(ctx, stops); err != nil {
			logger.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}, nil
}

func newTracerProvider(collector string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(collector)))
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create metric reader: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	), nil
}

// shutdown stops every provider, returning all failures joined.
func shutdown(ctx context.Context, stops []shutdownFunc) error {
	var errs []error
	for _, stop := range stops {
		if err := stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracer returns the service tracer, or the global one before Init
func Tracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer(instrumentationName)
	}
	return tracer
}

// Meter returns a meter from the global provider. Instruments created before Init
// are forwarded once a provider is installed.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Int64Counter creates a counter on Meter, falling back to a no-op counter
// when the provider rejects the instrument.
func Int64Counter(name, desc string) metric.Int64Counter {
	c, err := Meter().Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		logging.WithComponent("telemetry").Warn("Counter unavailable", zap.String("name", name), zap.Error(err))
		return noop.Int64Counter{}
	}
	return c
}

// Float64Histogram creates a histogram on Meter with the same fallback as Int64Counter
func Float64Histogram(name, desc, unit string) metric.Float64Histogram {
	h, err := Meter().Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		logging.WithComponent("telemetry").Warn("Histogram unavailable", zap.String("name", name), zap.Error(err))
		return noop.Float64Histogram{}
	}
	return h
}

// StartSpan starts a span on Tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}
