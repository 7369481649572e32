package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/webquery-go/webquery/oteladapters"
)

func newCollector() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	return resourceMetrics
}

func findMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Aggregation {
	t.Helper()

	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}

	t.Fatalf("metric %s not found", name)

	return nil
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// arrange
	collector, reader := newCollector()
	labels := map[string]string{"operation": "find", "status": "success"}

	// act
	collector.RecordDuration("webquery_query_duration_seconds", 150*time.Millisecond, labels)

	// assert
	histogram, ok := findMetric(t, collect(t, reader), "webquery_query_duration_seconds").(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001)

	expectedAttrs := attribute.NewSet(attribute.String("operation", "find"), attribute.String("status", "success"))
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs))
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// arrange
	collector, reader := newCollector()
	labels := map[string]string{"operation": "find", "error_type": "database_query"}

	// act
	collector.IncrementCounter("webquery_database_errors_total", labels)
	collector.IncrementCounterContext(context.Background(), "webquery_database_errors_total", labels)

	// assert
	sum, ok := findMetric(t, collect(t, reader), "webquery_database_errors_total").(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	assert.True(t, sum.IsMonotonic)
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	// arrange
	collector, reader := newCollector()
	labels := map[string]string{"operation": "find"}

	// act
	collector.RecordValue("webquery_rows_returned", 3, labels)
	collector.RecordValueContext(context.Background(), "webquery_rows_returned", 7, labels)

	// assert
	gauge, ok := findMetric(t, collect(t, reader), "webquery_rows_returned").(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, float64(7), gauge.DataPoints[0].Value)
}

func Test_MetricsCollector_ConcurrentUse(t *testing.T) {
	// arrange
	collector, reader := newCollector()
	var wg sync.WaitGroup

	// act
	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			collector.RecordDurationContext(context.Background(), "webquery_count_duration_seconds", time.Millisecond, nil)
		}()
	}

	wg.Wait()

	// assert
	histogram, ok := findMetric(t, collect(t, reader), "webquery_count_duration_seconds").(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, uint64(20), histogram.DataPoints[0].Count)
}
