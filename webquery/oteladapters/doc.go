// Package oteladapters provides OpenTelemetry implementations of the webquery observability interfaces:
// MetricsCollector (histograms, counters and gauges created on demand), TracingCollector (one span per
// store engine operation) and two ContextualLogger variants, one on the otelslog bridge and one on the
// raw OpenTelemetry log API.
//
// It lives in its own module so that the webquery module does not depend on OpenTelemetry.
package oteladapters
