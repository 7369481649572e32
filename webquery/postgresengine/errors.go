package postgresengine

import "errors"

var ErrNilDatabaseConnection = errors.New("nil database connection supplied")
var ErrEmptyTableName = errors.New("empty table name supplied")
var ErrUnsupportedDialect = errors.New("unsupported sql dialect")
var ErrSubclassNotSupported = errors.New("subclass filter requested but no subclass column configured")
var ErrBuildingQueryFailed = errors.New("building the query failed")
var ErrQueryingFailed = errors.New("querying the database failed")
var ErrScanningRowFailed = errors.New("scanning a database row failed")
var ErrCountingFailed = errors.New("counting the matching rows failed")
var ErrInvalidSchema = errors.New("invalid schema")
