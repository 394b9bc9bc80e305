// Package tracing wires a minimal OpenTelemetry tracer into the server: a
// span per request, parented from the incoming trace context when
// present, exported nowhere by default. It gives spec.md's "tracing is an
// external collaborator described only at its interface" a concrete,
// swappable boundary without building a tracing backend, grounded on the
// teacher's own tracing/ package.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// serviceTracerName is the tracer name spans are started under when no
// parent span is already in progress.
const serviceTracerName = "github.com/distribution/drawbridge"

// Init installs a global TracerProvider. Spans are exported through a
// writerExporter that logs them via dcontext's logger rather than
// shipping them to a collector: the default backend is a no-op from the
// perspective of anything outside the process. The returned func flushes
// and shuts the provider down.
func Init() func(context.Context) error {
	exporter := newCompositeExporter(&writerExporter{})
	processor := sdktrace.NewSimpleSpanProcessor(exporter)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(processor),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return provider.Shutdown
}

// StartSpan starts a child span under opName, continuing ctx's existing
// trace if one is already in progress.
func StartSpan(ctx context.Context, opName string, opts ...trace.SpanStartOption) (trace.Span, context.Context) {
	parentSpan := trace.SpanFromContext(ctx)
	var tracer trace.Tracer
	if parentSpan.SpanContext().IsValid() {
		tracer = parentSpan.TracerProvider().Tracer("")
	} else {
		tracer = otel.Tracer(serviceTracerName)
	}
	ctx, span := tracer.Start(ctx, opName, opts...)
	return span, ctx
}

// StopSpan ends span.
func StopSpan(span trace.Span) {
	span.End()
}
