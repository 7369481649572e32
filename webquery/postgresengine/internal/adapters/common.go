package adapters

import "database/sql"

// stdRows wraps sql.Rows, which already has the DBRows method set.
type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Columns() ([]string, error) {
	return s.rows.Columns()
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}
