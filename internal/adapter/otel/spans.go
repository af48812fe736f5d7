package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "traveltime"

// StartLookupSpan starts a span for one direction lookup.
func StartLookupSpan(ctx context.Context, mode string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "lookup",
		trace.WithAttributes(attribute.String("lookup.transport_mode", mode)),
	)
}

// StartFetchSpan starts a span for an upstream directions call.
func StartFetchSpan(ctx context.Context, mode string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "directions.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("lookup.transport_mode", mode)),
	)
}

// StartComputeSpan starts a span for a distance computation over n destinations.
func StartComputeSpan(ctx context.Context, mode string, n int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "distances.compute",
		trace.WithAttributes(
			attribute.String("lookup.transport_mode", mode),
			attribute.Int("distances.destinations", n),
		),
	)
}

// StartCacheSpan starts a span for a queued cache operation.
func StartCacheSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "cache."+op)
}
