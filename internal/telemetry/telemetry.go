// Package telemetry wires the OpenTelemetry SDK for the CLI: stdout
// exporters for traces and metrics, gated behind a single enabled flag.
// When disabled, the global providers stay no-ops and spans cost nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Config controls telemetry setup.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Writer receives exported spans and metrics. Defaults to the
	// exporters' own default (stdout) when nil.
	Writer io.Writer
}

// Setup installs global tracer and meter providers per the config and
// returns a shutdown function that flushes pending telemetry. When
// disabled it returns a no-op shutdown and leaves the otel globals alone.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	var traceOpts []stdouttrace.Option
	var metricOpts []stdoutmetric.Option
	if cfg.Writer != nil {
		traceOpts = append(traceOpts, stdouttrace.WithWriter(cfg.Writer))
		metricOpts = append(metricOpts, stdoutmetric.WithWriter(cfg.Writer))
	}

	traceExporter, err := stdouttrace.New(traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	metricExporter, err := stdoutmetric.New(metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter,
			sdktrace.WithBatchTimeout(5*time.Second)),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(30*time.Second))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	return shutdown, nil
}
