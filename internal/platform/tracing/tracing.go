// Package tracing installs the OpenTelemetry tracer provider chosen by config.
package tracing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/SlpAus/photo-tournament-backend/internal/platform/config"
)

// Exporter names accepted in tracing.exporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// ShutdownFunc flushes pending spans and stops the provider.
type ShutdownFunc func(ctx context.Context) error

// Setup builds a tracer provider for cfg and installs it as the global
// provider. With the "none" exporter nothing is installed and otel keeps its
// no-op provider.
func Setup(ctx context.Context, cfg config.TracingConfig, service string, log *slog.Logger) (ShutdownFunc, error) {
	tp, err := NewProvider(ctx, cfg, service, os.Stdout)
	if err != nil {
		return nil, err
	}
	if tp == nil {
		log.Info("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}
	otel.SetTracerProvider(tp)
	log.Info("tracing enabled", "exporter", cfg.Exporter, "sample_ratio", cfg.SampleRatio)
	return tp.Shutdown, nil
}

// NewProvider returns an SDK provider exporting to the configured backend,
// or nil for the "none" exporter. stdout is where the stdout exporter writes.
func NewProvider(ctx context.Context, cfg config.TracingConfig, service string, stdout io.Writer) (*sdktrace.TracerProvider, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch cfg.Exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		exp, err = stdouttrace.New(stdouttrace.WithWriter(stdout))
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot create %s trace exporter: %w", cfg.Exporter, err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", service))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	), nil
}
