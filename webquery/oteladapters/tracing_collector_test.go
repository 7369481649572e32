package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/webquery-go/webquery/oteladapters"
)

func newTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func spanAttribute(span tracetest.SpanStub, key string) (string, bool) {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return attr.Value.AsString(), true
		}
	}

	return "", false
}

func Test_TracingCollector_Success(t *testing.T) {
	// arrange
	collector, exporter := newTracingCollector()

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "webquery.find", map[string]string{"table": "books"})
	spanCtx.AddAttribute("duration_ms", "1.50")
	collector.FinishSpan(spanCtx, "success", map[string]string{"row_count": "2"})

	// assert
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "webquery.find", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	for key, expected := range map[string]string{"table": "books", "duration_ms": "1.50", "row_count": "2"} {
		value, ok := spanAttribute(spans[0], key)
		assert.True(t, ok, key)
		assert.Equal(t, expected, value, key)
	}
}

func Test_TracingCollector_Error(t *testing.T) {
	// arrange
	collector, exporter := newTracingCollector()

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "webquery.find", nil)
	collector.FinishSpan(spanCtx, "error", map[string]string{"error_type": "database_query"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	value, ok := spanAttribute(spans[0], "error_type")
	assert.True(t, ok)
	assert.Equal(t, "database_query", value)
}

func Test_TracingCollector_UnknownStatusBecomesAttribute(t *testing.T) {
	// arrange
	collector, exporter := newTracingCollector()

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "webquery.find", nil)
	collector.FinishSpan(spanCtx, "partial", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("status", "partial"))
}

type foreignSpan struct{}

func (foreignSpan) SetStatus(string)            {}
func (foreignSpan) AddAttribute(string, string) {}

func Test_TracingCollector_IgnoresForeignSpans(t *testing.T) {
	collector, exporter := newTracingCollector()

	collector.FinishSpan(foreignSpan{}, "success", nil)

	assert.Empty(t, exporter.GetSpans())
}

func Test_TracingCollector_NestsUnderParent(t *testing.T) {
	// arrange
	collector, exporter := newTracingCollector()
	parentCtx, parent := collector.StartSpan(context.Background(), "request", nil)

	// act
	_, child := collector.StartSpan(parentCtx, "webquery.find", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}
