// Package pgtest connects tests to a real PostgreSQL database through pgx, database/sql with lib/pq,
// and sqlx, and seeds the books fixture used by the engine integration tests.
//
// The DSN is taken from WEBQUERY_TEST_POSTGRES_DSN, tests are skipped when the database is not reachable.
package pgtest
