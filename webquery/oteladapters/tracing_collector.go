package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// TracingCollector implements webquery.TracingCollector with an OpenTelemetry tracer.
// The returned context carries the span, so database driver instrumentation nests below it.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on a tracer from your TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, webquery.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan ends the span. Spans not started by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx webquery.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ webquery.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext wraps an OpenTelemetry span as webquery.SpanContext.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps "success" to codes.Ok and "error" to codes.Error, any other status is kept as an attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case statusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case statusError:
		s.span.SetStatus(codes.Error, "webquery operation failed")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ webquery.SpanContext = (*OTelSpanContext)(nil)
