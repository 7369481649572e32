package adapters

import "context"

// DBAdapter executes read queries with positional arguments.
type DBAdapter interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
}

// DBRows is a result set with dynamic columns.
type DBRows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
