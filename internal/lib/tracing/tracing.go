// Package tracing captures and restores trace correlation ids across the
// outbox, the broker and the webhook callback.
package tracing

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tumbleweedd/two_services_system/cash_gateway"

// IDs returns the hex trace and span ids in ctx, or empty strings.
func IDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}

	return sc.TraceID().String(), sc.SpanID().String()
}

// Ensure returns ctx unchanged when it already carries a trace, otherwise
// a ctx with a freshly generated root trace.
func Ensure(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}

	return trace.ContextWithSpanContext(ctx, newRoot())
}

// Restore makes the stored ids the remote parent of ctx. Ids that do not
// parse leave ctx as is.
func Restore(ctx context.Context, traceID, spanID string) context.Context {
	tid, err := trace.TraceIDFromHex(traceID)
	if err != nil {
		return ctx
	}

	sid, err := trace.SpanIDFromHex(spanID)
	if err != nil {
		sid = newSpanID()
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})

	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

func Start(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

func newRoot() trace.SpanContext {
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(uuid.New()),
		SpanID:     newSpanID(),
		TraceFlags: trace.FlagsSampled,
	})
}

func newSpanID() trace.SpanID {
	var sid trace.SpanID
	u := uuid.New()
	copy(sid[:], u[:8])

	return sid
}
