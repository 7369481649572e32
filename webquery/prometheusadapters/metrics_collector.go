// Package prometheusadapters implements webquery.MetricsCollector with Prometheus client_golang.
package prometheusadapters

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

// MetricsCollector maps the webquery metrics onto Prometheus vectors:
//   - RecordDuration -> HistogramVec in seconds
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// A vector is created and registered on the first call for a metric name, its label names are taken
// from that call. Later calls with a different label set for the same name are dropped.
type MetricsCollector struct {
	registerer prometheus.Registerer
	buckets    []float64
	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// Option configures a MetricsCollector.
type Option func(*MetricsCollector)

// WithBuckets replaces prometheus.DefBuckets for duration histograms.
func WithBuckets(buckets ...float64) Option {
	return func(m *MetricsCollector) {
		m.buckets = slices.Clone(buckets)
	}
}

// NewMetricsCollector creates a collector registering on the given registerer, e.g. prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer, options ...Option) *MetricsCollector {
	m := &MetricsCollector{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	histogram := m.histogram(metric, labels)
	if histogram == nil {
		return
	}

	if observer, err := histogram.GetMetricWith(labels); err == nil {
		observer.Observe(duration.Seconds())
	}
}

func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	counter := m.counter(metric, labels)
	if counter == nil {
		return
	}

	if child, err := counter.GetMetricWith(labels); err == nil {
		child.Inc()
	}
}

func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	gauge := m.gauge(metric, labels)
	if gauge == nil {
		return
	}

	if child, err := gauge.GetMetricWith(labels); err == nil {
		child.Set(value)
	}
}

func (m *MetricsCollector) histogram(name string, labels map[string]string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.histograms[name]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: name, Help: "webquery operation duration in seconds", Buckets: m.buckets},
		labelNames(labels),
	)

	registered, ok := register(m.registerer, histogram).(*prometheus.HistogramVec)
	if !ok {
		return nil
	}

	m.histograms[name] = registered

	return registered
}

func (m *MetricsCollector) counter(name string, labels map[string]string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[name]; exists {
		return counter
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: "webquery operation counter"}, labelNames(labels))

	registered, ok := register(m.registerer, counter).(*prometheus.CounterVec)
	if !ok {
		return nil
	}

	m.counters[name] = registered

	return registered
}

func (m *MetricsCollector) gauge(name string, labels map[string]string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, exists := m.gauges[name]; exists {
		return gauge
	}

	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: "webquery last observed value"}, labelNames(labels))

	registered, ok := register(m.registerer, gauge).(*prometheus.GaugeVec)
	if !ok {
		return nil
	}

	m.gauges[name] = registered

	return registered
}

// register returns the collector that is registered under the name afterwards, which is the existing one
// if an identical collector was registered before, or nil if registration failed.
func register(registerer prometheus.Registerer, collector prometheus.Collector) prometheus.Collector {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		return alreadyRegistered.ExistingCollector
	}

	return nil
}

func labelNames(labels map[string]string) []string {
	return slices.Sorted(maps.Keys(labels))
}

var _ webquery.MetricsCollector = (*MetricsCollector)(nil)
