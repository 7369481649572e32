package pgtest

import (
	"context"
	"database/sql"
	"testing"
)

// BooksFixture creates and fills the books and loans tables.
// Book 1 has two loans, book 2 has one, the magazines 3 and 4 have none.
var BooksFixture = []string{
	`DROP TABLE IF EXISTS loans`,
	`DROP TABLE IF EXISTS books`,
	`CREATE TABLE books (
		id          INTEGER PRIMARY KEY,
		title       TEXT NOT NULL,
		author_name TEXT,
		kind        TEXT NOT NULL,
		pages       INTEGER NOT NULL
	)`,
	`CREATE TABLE loans (
		id      SERIAL PRIMARY KEY,
		book_id INTEGER NOT NULL REFERENCES books (id)
	)`,
	`INSERT INTO books (id, title, author_name, kind, pages) VALUES
		(1, 'Go in Action', 'Kennedy', 'Book', 264),
		(2, 'The Go Programming Language', 'Donovan', 'Book', 380),
		(3, 'Gopher Monthly', NULL, 'Magazine', 40),
		(4, 'Rust Weekly', 'Klabnik', 'Magazine', 32)`,
	`INSERT INTO loans (book_id) VALUES (1), (1), (2)`,
}

// GivenBooksFixture runs BooksFixture on db.
func GivenBooksFixture(t testing.TB, db *sql.DB) {
	t.Helper()

	for _, statement := range BooksFixture {
		if _, err := db.ExecContext(context.Background(), statement); err != nil {
			t.Fatalf("failed to seed the books fixture: %v", err)
		}
	}
}
