package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitTracing registers the global tracer provider every service span hangs
// off. Without an exporter configured the spans stay in-process; wiring an
// OTLP exporter here is all a deployment needs to ship them.
func InitTracing() *trace.TracerProvider {
	tp := trace.NewTracerProvider(
		trace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("ggdotcom"),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// Shutdown flushes any pending spans.
func Shutdown(ctx context.Context, tp *trace.TracerProvider) error {
	return tp.Shutdown(ctx)
}
