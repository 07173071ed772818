package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/rulelabel/pkg/version"
)

// ShutdownFunc flushes and stops a tracer provider.
type ShutdownFunc func(ctx context.Context) error

// SetupTracing installs an OTLP/gRPC exporting tracer provider if
// OTEL_EXPORTER_OTLP_ENDPOINT is set. Otherwise the global no-op provider
// is kept and the returned [ShutdownFunc] does nothing.
//
// The exporter is configured by the standard OTEL_EXPORTER_OTLP_*
// environment variables.
func SetupTracing(ctx context.Context) (ShutdownFunc, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", cmdName),
			attribute.String("service.version", version.GetVersion()),
		)),
	)

	otel.SetTracerProvider(tp)

	slog.Debug("tracing enabled")

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}

		return nil
	}, nil
}
