// Package adapters provides the database adapters of the query runner.
//
// pgx.Pool, sql.DB and sqlx.DB are supported behind the common DBAdapter interface,
// so the runner builds and executes the same SQL on any of them.
package adapters
