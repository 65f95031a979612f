package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"omdraw/internal/logger"
)

/*
LEARNING: JAEGER EXPORT

	relay / api spans -> OpenTelemetry SDK -> Jaeger exporter -> collector

InitJaeger installs a global provider. Until it is called the global provider
is a no-op, which is what the relay runs with when tracing is disabled.
*/

// ServiceName is how the relay shows up in the Jaeger UI.
const ServiceName = "omdraw"

// InitJaeger initializes the Jaeger exporter and returns its shutdown func,
// which flushes pending spans.
func InitJaeger(serviceName, jaegerEndpoint string) (func(context.Context) error, error) {
	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	log := logger.Component("telemetry")
	log.Info().Str("endpoint", jaegerEndpoint).Str("service", serviceName).Msg("✓ Jaeger tracing initialized")

	return tp.Shutdown, nil
}
