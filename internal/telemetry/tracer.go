// Package telemetry wires up the OpenTelemetry tracer the Pipeline
// Processor uses to emit one span per hook invocation.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and closes whatever exporter Setup configured.
type ShutdownFunc func(context.Context) error

// Setup configures a global TracerProvider and returns a Tracer bound to the
// service, plus a shutdown function the caller must invoke before exiting.
// When enabled is false, it returns the global (no-op by default) tracer and
// a no-op shutdown, so callers can wire tracing unconditionally and let
// configuration decide whether spans are actually produced.
func Setup(ctx context.Context, serviceName, serviceVersion string, enabled bool) (trace.Tracer, ShutdownFunc, error) {
	if !enabled {
		return otel.Tracer(serviceName), func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: creating stdout exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Tracer(serviceName), provider.Shutdown, nil
}
