// Package tracing holds the process tracer and span helpers.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/mvanderlyn27/odyssey-backend-sub003"

// GlobalTracer resolves through the global provider, which is a no-op
// until a provider is installed with otel.SetTracerProvider.
var GlobalTracer trace.Tracer = otel.Tracer(instrumentationName) //nolint:gochecknoglobals // process tracer

// Start opens a span on GlobalTracer.
func Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return GlobalTracer.Start(ctx, name, opts...)
}

// EndSpanWithErrCheck marks the span failed when err is set, then ends it.
func EndSpanWithErrCheck(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}
