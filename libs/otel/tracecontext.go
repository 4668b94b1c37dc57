package otelx

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceparentKey = "traceparent"
	tracestateKey  = "tracestate"
)

// w3c bypasses the global propagator, which is a no-op until Setup installs one.
var w3c = propagation.TraceContext{}

// TraceContextStrings captures the W3C trace headers of the span in ctx for
// storage next to an outbox row. Both are empty without a valid span.
func TraceContextStrings(ctx context.Context) (traceparent, tracestate string) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return "", ""
	}
	carrier := propagation.MapCarrier{}
	w3c.Inject(ctx, carrier)
	return carrier.Get(traceparentKey), carrier.Get(tracestateKey)
}

// ContextWithTraceContext restores a span context captured by
// TraceContextStrings as the remote parent of ctx. A missing or malformed
// traceparent leaves ctx unchanged.
func ContextWithTraceContext(ctx context.Context, traceparent, tracestate string) context.Context {
	if traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{traceparentKey: traceparent}
	if tracestate != "" {
		carrier[tracestateKey] = tracestate
	}
	restored := w3c.Extract(ctx, carrier)
	if !trace.SpanContextFromContext(restored).IsRemote() {
		return ctx
	}
	return restored
}
