package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	Install(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec
}

func TestStartSpan_ParentChild(t *testing.T) {
	rec := installRecorder(t)

	ctx, parent := StartSpan(context.Background(), "order", "order.Checkout")
	_, child := StartSpan(ctx, "order", "order.Deduct")
	child.End()
	parent.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "order.Deduct", spans[0].Name())
	assert.Equal(t, "order.Checkout", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestRecordError(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartSpan(context.Background(), "order", "order.Deduct")
	span.SetAttributes(attribute.Int64("order.id", 42))
	RecordError(span, errors.New("lock wait timeout"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "lock wait timeout", ended[0].Status().Description)
	assert.Len(t, ended[0].Events(), 1)
	assert.Contains(t, ended[0].Attributes(), attribute.Int64("order.id", 42))
}

func TestRecordError_NilKeepsStatus(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartSpan(context.Background(), "order", "ok")
	RecordError(span, nil)
	span.End()

	assert.Equal(t, codes.Unset, rec.Ended()[0].Status().Code)
}

func TestExtractIDs(t *testing.T) {
	installRecorder(t)

	assert.Empty(t, ExtractTraceID(context.Background()))
	assert.Empty(t, ExtractSpanID(context.Background()))

	ctx, span := StartSpan(context.Background(), "order", "op")
	defer span.End()

	assert.Len(t, ExtractTraceID(ctx), 32)
	assert.Len(t, ExtractSpanID(ctx), 16)
	assert.Equal(t, span.SpanContext().TraceID().String(), ExtractTraceID(ctx))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.1).Description(), "TraceIDRatioBased")
}
