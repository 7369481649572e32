package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/webquery-go/webquery"
	"github.com/AntonStoeckl/webquery-go/webquery/postgresengine/internal/adapters"
)

const (
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgBuildCountQueryFailed  = "failed to build count query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgCountFailed            = "failed to read the total size"
	logMsgFindCompleted          = "find completed"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "webquery operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrRowCount              = "row_count"
	logAttrTotalSize             = "total_size"
	logAttrDurationMS            = "duration_ms"
	logActionFind                = "find"
	logActionCount               = "count"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Page is the result of a Find. TotalSize is nil unless the Envelope asked for it.
type Page struct {
	Rows      []Row
	TotalSize *int64
	Limit     int
	Offset    int
}

// QueryRunner compiles Envelopes into SQL for one table and runs them.
// It is immutable after construction and safe for concurrent use.
type QueryRunner struct {
	db               adapters.DBAdapter
	table            string
	dialect          string
	subclassColumn   string
	selectColumns    []string
	logger           webquery.Logger
	contextualLogger webquery.ContextualLogger
	metricsCollector webquery.MetricsCollector
	tracingCollector webquery.TracingCollector
}

// NewQueryRunnerFromPGXPool creates a QueryRunner using a pgx Pool.
// A table must be configured with WithTableName or WithSchema.
func NewQueryRunnerFromPGXPool(db *pgxpool.Pool, options ...Option) (QueryRunner, error) {
	if db == nil {
		return QueryRunner{}, ErrNilDatabaseConnection
	}

	return newQueryRunner(adapters.NewPGXAdapter(db), options)
}

// NewQueryRunnerFromPGXPoolWithReplica creates a QueryRunner that sends reads with
// webquery.EventualConsistency in their context to the replica pool.
func NewQueryRunnerFromPGXPoolWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (QueryRunner, error) {
	if primary == nil {
		return QueryRunner{}, ErrNilDatabaseConnection
	}

	if replica == nil {
		return newQueryRunner(adapters.NewPGXAdapter(primary), options)
	}

	return newQueryRunner(adapters.NewPGXAdapterWithReplica(primary, replica), options)
}

// NewQueryRunnerFromSQLDB creates a QueryRunner using a sql.DB.
func NewQueryRunnerFromSQLDB(db *sql.DB, options ...Option) (QueryRunner, error) {
	if db == nil {
		return QueryRunner{}, ErrNilDatabaseConnection
	}

	return newQueryRunner(adapters.NewSQLAdapter(db), options)
}

// NewQueryRunnerFromSQLX creates a QueryRunner using a sqlx.DB.
func NewQueryRunnerFromSQLX(db *sqlx.DB, options ...Option) (QueryRunner, error) {
	if db == nil {
		return QueryRunner{}, ErrNilDatabaseConnection
	}

	return newQueryRunner(adapters.NewSQLXAdapter(db), options)
}

func newQueryRunner(db adapters.DBAdapter, options []Option) (QueryRunner, error) {
	qr := QueryRunner{
		db:      db,
		dialect: DialectPostgres,
	}

	for _, option := range options {
		if err := option(&qr); err != nil {
			return QueryRunner{}, err
		}
	}

	if qr.table == "" {
		return QueryRunner{}, ErrEmptyTableName
	}

	return qr, nil
}

// Backend returns the fragment backend the QueryRunner compiles predicate trees with.
func (qr QueryRunner) Backend() Backend {
	return Backend{dialect: qr.dialect, table: qr.table}
}

// BuildSelect compiles the page query of the Envelope into a prepared statement.
// A limit of 0 yields a query that matches nothing.
func (qr QueryRunner) BuildSelect(envelope webquery.Envelope) (string, []any, error) {
	backend := qr.Backend()

	where, err := qr.whereExpressions(backend, envelope)
	if err != nil {
		return "", nil, err
	}

	selectStmt := goqu.Dialect(qr.dialect).
		From(qr.table).
		Prepared(true).
		Select(qr.selectExpressions()...).
		Where(where...)

	for _, ordering := range envelope.Orderings() {
		orderable := backend.orderExpression(ordering.StorePath())

		if ordering.IsAscending() {
			selectStmt = selectStmt.OrderAppend(orderable.Asc())
		} else {
			selectStmt = selectStmt.OrderAppend(orderable.Desc())
		}
	}

	if envelope.Limit() == 0 {
		selectStmt = selectStmt.Where(goqu.L(alwaysFalseSQL))
	} else {
		selectStmt = selectStmt.Limit(uint(envelope.Limit()))
	}

	if envelope.Offset() > 0 {
		selectStmt = selectStmt.Offset(uint(envelope.Offset()))
	}

	sqlQuery, args, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

// BuildCount compiles the total size query of the Envelope: the same predicate tree, without ordering and paging.
func (qr QueryRunner) BuildCount(envelope webquery.Envelope) (string, []any, error) {
	where, err := qr.whereExpressions(qr.Backend(), envelope)
	if err != nil {
		return "", nil, err
	}

	sqlQuery, args, toSQLErr := goqu.Dialect(qr.dialect).
		From(qr.table).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(where...).
		ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

func (qr QueryRunner) whereExpressions(backend Backend, envelope webquery.Envelope) ([]exp.Expression, error) {
	var where []exp.Expression

	if fragment, ok := webquery.Encode(envelope.Constraints(), backend); ok {
		where = append(where, fragment)
	}

	if class, ok := envelope.SubclassFilter(); ok {
		if qr.subclassColumn == "" {
			return nil, fmt.Errorf("%w: %q", ErrSubclassNotSupported, class)
		}

		where = append(where, goqu.T(qr.table).Col(qr.subclassColumn).Eq(class))
	}

	return where, nil
}

func (qr QueryRunner) selectExpressions() []any {
	if len(qr.selectColumns) == 0 {
		return []any{goqu.T(qr.table).All()}
	}

	columns := make([]any, 0, len(qr.selectColumns))
	for _, column := range qr.selectColumns {
		columns = append(columns, goqu.T(qr.table).Col(column))
	}

	return columns
}

// Find runs the page query of the Envelope and, if it asks for it, the count query.
// A limit of 0 skips the page query.
func (qr QueryRunner) Find(ctx context.Context, envelope webquery.Envelope) (Page, error) {
	tracer, ctx := qr.startFindTracing(ctx, envelope)
	metrics := qr.startFindMetrics(ctx)
	start := time.Now()

	page := Page{Rows: make([]Row, 0), Limit: envelope.Limit(), Offset: envelope.Offset()}

	if envelope.Limit() > 0 {
		rows, err := qr.findRows(ctx, envelope)
		if err != nil {
			duration := time.Since(start)
			tracer.finishError(errorTypeOf(err), duration)
			metrics.recordError(errorTypeOf(err), duration)

			return Page{}, err
		}

		page.Rows = rows
	}

	if envelope.ComputeSize() {
		totalSize, err := qr.count(ctx, envelope)
		if err != nil {
			duration := time.Since(start)
			tracer.finishError(errorTypeOf(err), duration)
			metrics.recordError(errorTypeOf(err), duration)

			return Page{}, err
		}

		page.TotalSize = &totalSize
	}

	duration := time.Since(start)
	tracer.finishSuccess(page, duration)
	metrics.recordSuccess(len(page.Rows), duration)
	qr.logFindCompleted(ctx, page, duration)

	return page, nil
}

func (qr QueryRunner) findRows(ctx context.Context, envelope webquery.Envelope) ([]Row, error) {
	sqlQuery, args, err := qr.BuildSelect(envelope)
	if err != nil {
		qr.logError(ctx, logMsgBuildSelectQueryFailed, err)

		return nil, err
	}

	rows, err := qr.executeQuery(ctx, sqlQuery, args, logActionFind)
	if err != nil {
		return nil, err
	}
	defer qr.closeRows(ctx, rows)

	return qr.scanRows(ctx, rows)
}

func (qr QueryRunner) count(ctx context.Context, envelope webquery.Envelope) (int64, error) {
	sqlQuery, args, err := qr.BuildCount(envelope)
	if err != nil {
		qr.logError(ctx, logMsgBuildCountQueryFailed, err)

		return 0, err
	}

	start := time.Now()

	rows, err := qr.executeQuery(ctx, sqlQuery, args, logActionCount)
	if err != nil {
		return 0, err
	}
	defer qr.closeRows(ctx, rows)

	var totalSize int64

	if !rows.Next() {
		rowsErr := rows.Err()
		if rowsErr == nil {
			rowsErr = errors.New("count query returned no row")
		}

		qr.logError(ctx, logMsgCountFailed, rowsErr)

		return 0, errors.Join(ErrCountingFailed, rowsErr)
	}

	if scanErr := rows.Scan(&totalSize); scanErr != nil {
		qr.logError(ctx, logMsgCountFailed, scanErr)

		return 0, errors.Join(ErrCountingFailed, scanErr)
	}

	qr.recordDurationMetricsContext(ctx, metricCountDuration, time.Since(start), operationCount, statusSuccess)

	return totalSize, nil
}

// executeQuery executes the SQL query and logs it with timing information.
func (qr QueryRunner) executeQuery(ctx context.Context, sqlQuery string, args []any, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := qr.db.Query(ctx, sqlQuery, args...)
	qr.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		qr.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return nil, errors.Join(ErrQueryingFailed, queryErr)
	}

	return rows, nil
}

func (qr QueryRunner) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		qr.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

// scanRows reads all rows into maps. Byte slices become strings, text columns of some drivers arrive as []byte.
func (qr QueryRunner) scanRows(ctx context.Context, rows adapters.DBRows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		qr.logError(ctx, logMsgScanRowFailed, err)

		return nil, errors.Join(ErrScanningRowFailed, err)
	}

	result := make([]Row, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))

		for i := range values {
			targets[i] = &values[i]
		}

		if scanErr := rows.Scan(targets...); scanErr != nil {
			qr.logError(ctx, logMsgScanRowFailed, scanErr)

			return nil, errors.Join(ErrScanningRowFailed, scanErr)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}

			row[column] = values[i]
		}

		result = append(result, row)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		qr.logError(ctx, logMsgScanRowFailed, rowsErr)

		return nil, errors.Join(ErrScanningRowFailed, rowsErr)
	}

	return result, nil
}

func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, ErrBuildingQueryFailed), errors.Is(err, ErrSubclassNotSupported):
		return errorTypeBuildQuery
	case errors.Is(err, ErrQueryingFailed):
		return errorTypeDatabaseQuery
	case errors.Is(err, ErrScanningRowFailed):
		return errorTypeRowScan
	case errors.Is(err, ErrCountingFailed):
		return errorTypeCount
	default:
		return errorTypeUnknown
	}
}
