// Package helper provides test spies for the webquery observability interfaces:
// a slog.Handler that records log records, a MetricsCollector and a TracingCollector that record calls.
package helper
