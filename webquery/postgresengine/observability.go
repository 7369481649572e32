package postgresengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

const (
	metricQueryDuration  = "webquery_query_duration_seconds"
	metricCountDuration  = "webquery_count_duration_seconds"
	metricRowsReturned   = "webquery_rows_returned"
	metricDatabaseErrors = "webquery_database_errors_total"

	spanNameFind = "webquery.find"

	spanAttrOperation   = "operation"
	spanAttrTable       = "table"
	spanAttrLimit       = "limit"
	spanAttrOffset      = "offset"
	spanAttrComputeSize = "compute_size"
	spanAttrRowCount    = "row_count"
	spanAttrTotalSize   = "total_size"
	spanAttrDurationMS  = "duration_ms"
	spanAttrErrorType   = "error_type"

	metricLabelStatus = "status"

	operationFind  = "find"
	operationCount = "count"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeBuildQuery    = "build_query"
	errorTypeDatabaseQuery = "database_query"
	errorTypeRowScan       = "row_scan"
	errorTypeCount         = "count"
	errorTypeUnknown       = "unknown"
)

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (qr QueryRunner) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if qr.logger != nil {
		qr.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if qr.contextualLogger != nil {
		qr.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

func (qr QueryRunner) logFindCompleted(ctx context.Context, page Page, duration time.Duration) {
	args := []any{logAttrRowCount, len(page.Rows), logAttrDurationMS, toMilliseconds(duration)}
	if page.TotalSize != nil {
		args = append(args, logAttrTotalSize, *page.TotalSize)
	}

	if qr.logger != nil {
		qr.logger.Info(logMsgOperation+logMsgFindCompleted, args...)
	}

	if qr.contextualLogger != nil {
		qr.contextualLogger.InfoContext(ctx, logMsgOperation+logMsgFindCompleted, args...)
	}
}

func (qr QueryRunner) logWarn(ctx context.Context, message string, err error) {
	if qr.logger != nil {
		qr.logger.Warn(message, logAttrError, err.Error())
	}

	if qr.contextualLogger != nil {
		qr.contextualLogger.WarnContext(ctx, message, logAttrError, err.Error())
	}
}

func (qr QueryRunner) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if qr.logger != nil {
		qr.logger.Error(message, allArgs...)
	}

	if qr.contextualLogger != nil {
		qr.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return strconv.FormatFloat(toMilliseconds(d), 'f', 2, 64)
}

func (qr QueryRunner) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if qr.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, metricLabelStatus: status}

	if contextualCollector, ok := qr.metricsCollector.(webquery.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
	} else {
		qr.metricsCollector.RecordDuration(metricName, duration, labels)
	}
}

func (qr QueryRunner) recordValueMetricsContext(
	ctx context.Context,
	metricName string,
	value float64,
	operation, status string,
) {
	if qr.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, metricLabelStatus: status}

	if contextualCollector, ok := qr.metricsCollector.(webquery.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
	} else {
		qr.metricsCollector.RecordValue(metricName, value, labels)
	}
}

func (qr QueryRunner) recordErrorMetricsContext(ctx context.Context, operation, errorType string) {
	if qr.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		metricLabelStatus: statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := qr.metricsCollector.(webquery.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
	} else {
		qr.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
	}
}

// findTracingObserver owns the span of one Find, a nil span makes all methods no-ops.
type findTracingObserver struct {
	qr   QueryRunner
	span webquery.SpanContext
}

func (qr QueryRunner) startFindTracing(ctx context.Context, envelope webquery.Envelope) (*findTracingObserver, context.Context) {
	observer := &findTracingObserver{qr: qr}

	if qr.tracingCollector == nil {
		return observer, ctx
	}

	attrs := map[string]string{
		spanAttrOperation:   operationFind,
		spanAttrTable:       qr.table,
		spanAttrLimit:       strconv.Itoa(envelope.Limit()),
		spanAttrOffset:      strconv.Itoa(envelope.Offset()),
		spanAttrComputeSize: strconv.FormatBool(envelope.ComputeSize()),
	}

	newCtx, span := qr.tracingCollector.StartSpan(ctx, spanNameFind, attrs)
	observer.span = span

	return observer, newCtx
}

func (o *findTracingObserver) finishSuccess(page Page, duration time.Duration) {
	if o.span == nil {
		return
	}

	attrs := map[string]string{spanAttrRowCount: strconv.Itoa(len(page.Rows))}
	if page.TotalSize != nil {
		attrs[spanAttrTotalSize] = strconv.FormatInt(*page.TotalSize, 10)
	}

	o.span.SetStatus(statusSuccess)
	o.span.AddAttribute(spanAttrDurationMS, formatMilliseconds(duration))

	for key, value := range attrs {
		o.span.AddAttribute(key, value)
	}

	o.qr.tracingCollector.FinishSpan(o.span, statusSuccess, attrs)
}

func (o *findTracingObserver) finishError(errorType string, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusError)
	o.span.AddAttribute(spanAttrErrorType, errorType)
	o.span.AddAttribute(spanAttrDurationMS, formatMilliseconds(duration))

	o.qr.tracingCollector.FinishSpan(o.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// findMetricsObserver records the metrics of one Find.
type findMetricsObserver struct {
	qr  QueryRunner
	ctx context.Context
}

func (qr QueryRunner) startFindMetrics(ctx context.Context) *findMetricsObserver {
	return &findMetricsObserver{qr: qr, ctx: ctx}
}

func (o *findMetricsObserver) recordSuccess(rowCount int, duration time.Duration) {
	o.qr.recordDurationMetricsContext(o.ctx, metricQueryDuration, duration, operationFind, statusSuccess)
	o.qr.recordValueMetricsContext(o.ctx, metricRowsReturned, float64(rowCount), operationFind, statusSuccess)
}

func (o *findMetricsObserver) recordError(errorType string, duration time.Duration) {
	o.qr.recordDurationMetricsContext(o.ctx, metricQueryDuration, duration, operationFind, statusError)
	o.qr.recordErrorMetricsContext(o.ctx, operationFind, errorType)
}
