package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/quoting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	quoteID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "quote_lifecycle", "send",
		telemetry.WithAttribute(telemetry.SpanAttrQuoteID, quoteID),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "quote_lifecycle.send", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, quoteID.String(), attrMap(spans[0].Attributes())[telemetry.SpanAttrQuoteID].AsString())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "quote_tax.calculate")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTaxStatus, "RESOLVED",
		telemetry.SpanAttrItemCount, 3,
		"taxable", true,
		42, "skipped",
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, "RESOLVED", attrs[telemetry.SpanAttrTaxStatus].AsString())
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrItemCount].AsInt64())
	assert.True(t, attrs["taxable"].AsBool())
	assert.Len(t, attrs, 3)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "quote_coterm.execute")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("deadlock detected"))
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "deadlock detected", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "quote_ledger.add_item")
	telemetry.AddEvent(span, "item_added", "ord", 2, "category", "service")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "item_added", events[0].Name)
	attrs := attrMap(events[0].Attributes)
	assert.Equal(t, int64(2), attrs["ord"].AsInt64())
	assert.Equal(t, "service", attrs["category"].AsString())
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.AddEvent(nil, "e")
	})
}
