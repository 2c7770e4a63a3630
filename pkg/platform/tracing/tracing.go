// Package tracing wires go.opentelemetry.io/otel tracing into the
// pipeline's I/O suspension points that open spans: event-store queries,
// alert persistence and rule-catalog refresh (spec §5). State-store calls
// open no span.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used across every pipeline
// component so spans from the stream processor and the rule engine show up
// under one service in a trace backend.
const TracerName = "vigil/detection-pipeline"

// Tracer returns the package-scoped tracer. Components call this instead of
// holding their own otel.Tracer so a nil global provider (e.g. in unit
// tests) degrades to otel's no-op tracer rather than panicking.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan is a small convenience wrapper used at each traced suspension
// point (alertsink.Emit, ruleengine.eventStoreQuery, rulecatalog.Refresh).
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, spanName)
}
