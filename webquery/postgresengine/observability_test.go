package postgresengine_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/webquery-go/testutil/helper"
	"github.com/AntonStoeckl/webquery-go/webquery/postgresengine"
)

func Test_Observability_Find_Success(t *testing.T) {
	// arrange
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy()
	tracing := helper.NewTracingCollectorSpy()

	runner := givenSQLiteRunner(
		t,
		givenBooksDB(t),
		postgresengine.WithLogger(slog.New(logHandler)),
		postgresengine.WithMetrics(metrics),
		postgresengine.WithTracing(tracing),
	)

	// act
	page, err := runner.Find(context.Background(), decode(t, "kind=Book&_computeSize&_limit=5"))

	// assert
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)

	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: find").WithDurationMS().WithAttr("query").Assert())
	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: count").WithDurationMS().Assert())
	assert.True(t, logHandler.HasInfoLogWithMessage("webquery operation: find completed").
		WithRowCount().WithDurationMS().WithAttr("total_size").Assert())

	assert.True(t, metrics.HasDurationRecordForMetric("webquery_query_duration_seconds").
		WithOperation("find").WithStatus("success").Assert())
	assert.True(t, metrics.HasDurationRecordForMetric("webquery_count_duration_seconds").
		WithOperation("count").WithStatus("success").Assert())
	assert.True(t, metrics.HasValueRecordForMetric("webquery_rows_returned").
		WithOperation("find").WithValue(2).Assert())
	assert.Empty(t, metrics.GetCounterRecords())

	assert.True(t, tracing.HasSpanRecordForName("webquery.find").
		WithStatus("success").
		WithStartAttribute("table", "books").
		WithStartAttribute("limit", "5").
		WithStartAttribute("compute_size", "true").
		WithEndAttribute("row_count", "2").
		WithEndAttribute("total_size", "2").
		Assert())
}

func Test_Observability_Find_DatabaseError(t *testing.T) {
	// arrange
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy()
	tracing := helper.NewTracingCollectorSpy()

	runner := givenSQLiteRunner(
		t,
		givenBooksDB(t),
		postgresengine.WithTableName("missing"),
		postgresengine.WithContextualLogger(slog.New(logHandler)),
		postgresengine.WithMetrics(metrics),
		postgresengine.WithTracing(tracing),
	)

	// act
	_, err := runner.Find(context.Background(), decode(t, "title=x"))

	// assert
	require.ErrorIs(t, err, postgresengine.ErrQueryingFailed)

	assert.True(t, logHandler.HasErrorLogWithMessage("database query execution failed").WithAttr("error").WithAttr("query").Assert())
	assert.True(t, metrics.HasCounterRecordForMetric("webquery_database_errors_total").
		WithOperation("find").WithStatus("error").WithErrorType("database_query").Assert())
	assert.True(t, metrics.HasDurationRecordForMetric("webquery_query_duration_seconds").WithStatus("error").Assert())
	assert.True(t, tracing.HasSpanRecordForName("webquery.find").
		WithStatus("error").
		WithEndAttribute("error_type", "database_query").
		WithSpanAttribute("error_type", "database_query").
		Assert())
}

func Test_Observability_Find_BuildError(t *testing.T) {
	// arrange
	metrics := helper.NewMetricsCollectorSpy()
	runner := givenSQLiteRunner(t, givenBooksDB(t), postgresengine.WithSubclassColumn(""), postgresengine.WithMetrics(metrics))

	// act
	_, err := runner.Find(context.Background(), decode(t, "_class=Book"))

	// assert
	require.ErrorIs(t, err, postgresengine.ErrSubclassNotSupported)
	assert.True(t, metrics.HasCounterRecordForMetric("webquery_database_errors_total").WithErrorType("build_query").Assert())
}

func Test_Observability_Find_WithoutComputeSize_SkipsCountInstrumentation(t *testing.T) {
	// arrange
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy()
	tracing := helper.NewTracingCollectorSpy()

	runner := givenSQLiteRunner(
		t,
		givenBooksDB(t),
		postgresengine.WithLogger(slog.New(logHandler)),
		postgresengine.WithMetrics(metrics),
		postgresengine.WithTracing(tracing),
	)

	_, err := runner.Find(context.Background(), decode(t, "kind=Book&_computeSize"))
	require.NoError(t, err)
	logHandler.Reset()

	// act
	_, err = runner.Find(context.Background(), decode(t, "kind=Magazine"))

	// assert
	require.NoError(t, err)

	for _, record := range logHandler.GetRecords() {
		assert.NotEqual(t, "executed sql for: count", record.Message)
	}

	countDurations := 0
	for _, record := range metrics.GetDurationRecords() {
		if record.Metric == "webquery_count_duration_seconds" {
			countDurations++
		}
	}
	assert.Equal(t, 1, countDurations)

	assert.Len(t, metrics.GetValueRecords(), 2)
	assert.Len(t, tracing.GetSpanRecords(), 2)
}
