package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation is the handle chain- and hook-call sites use to emit
// spans and hook-outcome counters. A nil *Instrumentation is valid and
// every method on it is a no-op (StartXSpan returns the input context and
// a no-op span), so components can hold an Instrumentation that was never
// configured without branching on a Provider being enabled.
type Instrumentation struct {
	tracer       trace.Tracer
	hookOutcomes metric.Int64Counter
}

// NewInstrumentation builds an Instrumentation drawing its tracer and
// meter from the process-global providers under name (conventionally the
// owning package's import path).
func NewInstrumentation(name string) (*Instrumentation, error) {
	counter, err := Meter(name).Int64Counter(
		"mcphook.hook.outcomes_total",
		metric.WithDescription("Hook chain outcomes by verdict (continue, abort, error)"),
	)
	if err != nil {
		return nil, err
	}
	return &Instrumentation{tracer: Tracer(name), hookOutcomes: counter}, nil
}

// StartChainSpan starts a span for one traversal of the hook chain
// (request, response, tools/list, tools/list-response or exception).
func (i *Instrumentation) StartChainSpan(ctx context.Context, spanName, sessionID string) (context.Context, trace.Span) {
	if i == nil || i.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return i.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String(AttrSessionID, sessionID),
	))
}

// StartHookSpan starts a span for one remote-hook RPC.
func (i *Instrumentation) StartHookSpan(ctx context.Context, hookName, operation string) (context.Context, trace.Span) {
	if i == nil || i.tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return i.tracer.Start(ctx, SpanRemoteHookCall, trace.WithAttributes(
		attribute.String(AttrHookName, hookName),
		attribute.String(AttrOperation, operation),
	))
}

// RecordHookOutcome ends span and records a hook-outcome count for verdict
// (one of VerdictContinue, VerdictAbort, VerdictError). Always safe to call,
// including on a nil Instrumentation.
func (i *Instrumentation) RecordHookOutcome(ctx context.Context, span trace.Span, hookName, operation, verdict string) {
	span.SetAttributes(attribute.String(AttrVerdict, verdict))
	span.End()
	if i == nil || i.hookOutcomes == nil {
		return
	}
	i.hookOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrHookName, hookName),
		attribute.String(AttrOperation, operation),
		attribute.String(AttrVerdict, verdict),
	))
}
