package postgresengine_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // driver registration

	"github.com/AntonStoeckl/webquery-go/webquery"
	"github.com/AntonStoeckl/webquery-go/webquery/postgresengine"
)

var fixtureStatements = []string{
	`CREATE TABLE books (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		author_name TEXT NULL,
		kind TEXT NOT NULL,
		pages INTEGER NOT NULL
	)`,
	`CREATE TABLE loans (id INTEGER PRIMARY KEY, book_id INTEGER NOT NULL)`,
	`INSERT INTO books (id, title, author_name, kind, pages) VALUES
		(1, 'Go in Action', 'Kennedy', 'Book', 264),
		(2, 'The Go Programming Language', 'Donovan', 'Book', 380),
		(3, 'Gopher Monthly', NULL, 'Magazine', 40),
		(4, 'Rust Weekly', 'Klabnik', 'Magazine', 32)`,
	`INSERT INTO loans (id, book_id) VALUES (1, 1), (2, 1), (3, 2)`,
}

// givenBooksDB returns an in-memory SQLite database with four books, book 1 has two loans and book 2 has one.
func givenBooksDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, statement := range fixtureStatements {
		_, execErr := db.ExecContext(context.Background(), statement)
		require.NoError(t, execErr)
	}

	return db
}

func givenBooksSchema(t testing.TB) postgresengine.Schema {
	t.Helper()

	schema, err := postgresengine.LoadSchemaFile("testdata/books.yaml")
	require.NoError(t, err)

	return schema
}

func givenSQLiteRunner(t testing.TB, db *sql.DB, options ...postgresengine.Option) postgresengine.QueryRunner {
	t.Helper()

	options = append([]postgresengine.Option{
		postgresengine.WithSchema(givenBooksSchema(t)),
		postgresengine.WithDialect(postgresengine.DialectSQLite3),
	}, options...)

	runner, err := postgresengine.NewQueryRunnerFromSQLDB(db, options...)
	require.NoError(t, err)

	return runner
}

func givenPostgresRunner(t testing.TB, options ...postgresengine.Option) postgresengine.QueryRunner {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	options = append([]postgresengine.Option{postgresengine.WithSchema(givenBooksSchema(t))}, options...)

	runner, err := postgresengine.NewQueryRunnerFromSQLDB(db, options...)
	require.NoError(t, err)

	return runner
}

func decode(t testing.TB, rawQuery string) webquery.Envelope {
	t.Helper()

	decoder, err := webquery.NewDecoder(givenBooksSchema(t))
	require.NoError(t, err)

	envelope, err := decoder.DecodeQuery(rawQuery)
	require.NoError(t, err)

	return envelope
}

func ids(page postgresengine.Page) []int64 {
	result := make([]int64, 0, len(page.Rows))
	for _, row := range page.Rows {
		result = append(result, row["id"].(int64))
	}

	return result
}
