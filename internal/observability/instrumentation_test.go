package observability

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentation_NilIsSafe(t *testing.T) {
	var i *Instrumentation

	ctx, span := i.StartChainSpan(context.Background(), SpanChainRequest, "sess-1")
	require.NotNil(t, span)
	assert.NotPanics(t, func() { i.RecordHookOutcome(ctx, span, "chain", "request", VerdictContinue) })

	ctx, span = i.StartHookSpan(context.Background(), "my-hook", "processRequest")
	require.NotNil(t, span)
	assert.NotPanics(t, func() { i.RecordHookOutcome(ctx, span, "my-hook", "processRequest", VerdictAbort) })
}

func TestNewInstrumentation_RecordsOutcomes(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true}, io.Discard)
	require.NoError(t, err)

	inst, err := NewInstrumentation("test-instrumentation")
	require.NoError(t, err)
	require.NotNil(t, inst)

	ctx, span := inst.StartChainSpan(context.Background(), SpanChainResponse, "sess-1")
	assert.NotPanics(t, func() { inst.RecordHookOutcome(ctx, span, "chain", "response", VerdictContinue) })

	ctx, span = inst.StartHookSpan(context.Background(), "audit-hook", "processToolsList")
	assert.NotPanics(t, func() { inst.RecordHookOutcome(ctx, span, "audit-hook", "processToolsList", VerdictError) })
}
