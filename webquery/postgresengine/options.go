package postgresengine

import (
	"fmt"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

// Option defines a functional option for configuring a QueryRunner.
type Option func(*QueryRunner) error

// WithTableName sets the queried table.
func WithTableName(tableName string) Option {
	return func(qr *QueryRunner) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		qr.table = tableName

		return nil
	}
}

// WithDialect selects the goqu dialect, DialectPostgres unless set.
func WithDialect(dialect string) Option {
	return func(qr *QueryRunner) error {
		if err := validateDialect(dialect); err != nil {
			return err
		}

		qr.dialect = dialect

		return nil
	}
}

// WithSubclassColumn sets the discriminator column used for subclass filters.
func WithSubclassColumn(column string) Option {
	return func(qr *QueryRunner) error {
		qr.subclassColumn = column

		return nil
	}
}

// WithSelectColumns restricts the selected columns, all columns of the table unless set.
func WithSelectColumns(columns ...string) Option {
	return func(qr *QueryRunner) error {
		for _, column := range columns {
			if column == "" {
				return fmt.Errorf("%w: empty select column", ErrInvalidSchema)
			}
		}

		qr.selectColumns = append([]string(nil), columns...)

		return nil
	}
}

// WithSchema takes table and subclass column from a loaded Schema.
func WithSchema(schema Schema) Option {
	return func(qr *QueryRunner) error {
		if schema.Table() == "" {
			return ErrEmptyTableName
		}

		qr.table = schema.Table()
		qr.subclassColumn = schema.SubclassColumn()

		return nil
	}
}

// WithLogger sets the logger for the QueryRunner.
//
// Debug level: SQL with execution timing
// Info level: row counts, total sizes and durations
// Warn level: failures closing result sets
// Error level: failures that abort a Find.
func WithLogger(logger webquery.Logger) Option {
	return func(qr *QueryRunner) error {
		qr.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, which then receives the same messages as WithLogger
// with trace correlation.
func WithContextualLogger(logger webquery.ContextualLogger) Option {
	return func(qr *QueryRunner) error {
		qr.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for query and count durations, returned rows and database errors.
func WithMetrics(collector webquery.MetricsCollector) Option {
	return func(qr *QueryRunner) error {
		qr.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector, Find then runs inside a span.
func WithTracing(collector webquery.TracingCollector) Option {
	return func(qr *QueryRunner) error {
		qr.tracingCollector = collector
		return nil
	}
}
