package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/AntonStoeckl/webquery-go/config"
	"github.com/AntonStoeckl/webquery-go/webquery"
	"github.com/AntonStoeckl/webquery-go/webquery/postgresengine"
)

var errNoSchema = errors.New("no schema file configured, use --schema or schema.file")

// loadQuery reads the schema and decodes the raw query string against it.
func (opts *RootOptions) loadQuery(rawQuery string) (postgresengine.Schema, webquery.Envelope, error) {
	if opts.config.Schema.File == "" {
		return postgresengine.Schema{}, webquery.Envelope{}, errNoSchema
	}

	schema, err := postgresengine.LoadSchemaFile(opts.config.Schema.File)
	if err != nil {
		return postgresengine.Schema{}, webquery.Envelope{}, err
	}

	decoderOptions := append(opts.config.DecoderOptions(), webquery.WithDecoderLogger(newZerologLogger(opts.logger)))

	decoder, err := webquery.NewDecoder(schema, decoderOptions...)
	if err != nil {
		return postgresengine.Schema{}, webquery.Envelope{}, err
	}

	envelope, err := decoder.DecodeQuery(rawQuery)
	if err != nil {
		return postgresengine.Schema{}, webquery.Envelope{}, err
	}

	return schema, envelope, nil
}

func (opts *RootOptions) runnerOptions(schema postgresengine.Schema, extra ...postgresengine.Option) []postgresengine.Option {
	runnerOptions := []postgresengine.Option{
		postgresengine.WithSchema(schema),
		postgresengine.WithLogger(newZerologLogger(opts.logger)),
	}

	if opts.config.Database.Table != "" {
		runnerOptions = append(runnerOptions, postgresengine.WithTableName(opts.config.Database.Table))
	}

	if opts.config.Database.SubclassColumn != "" {
		runnerOptions = append(runnerOptions, postgresengine.WithSubclassColumn(opts.config.Database.SubclassColumn))
	}

	if opts.config.Database.Driver == config.DriverSQLite {
		runnerOptions = append(runnerOptions, postgresengine.WithDialect(postgresengine.DialectSQLite3))
	}

	return append(runnerOptions, extra...)
}

// openRunner connects with the configured driver. The returned func releases the connection.
func (opts *RootOptions) openRunner(
	ctx context.Context,
	schema postgresengine.Schema,
	extra ...postgresengine.Option,
) (postgresengine.QueryRunner, func(), error) {

	db := opts.config.Database
	runnerOptions := opts.runnerOptions(schema, extra...)

	if db.DSN == "" {
		return postgresengine.QueryRunner{}, nil, errors.New("no database DSN configured, use --dsn or database.dsn")
	}

	switch db.Driver {
	case config.DriverPGX:
		return openPGXRunner(ctx, db, runnerOptions)

	case config.DriverSQLX:
		sqlxDB, err := sqlx.Open(config.DriverPostgres, db.DSN)
		if err != nil {
			return postgresengine.QueryRunner{}, nil, fmt.Errorf("opening sqlx database: %w", err)
		}

		runner, err := postgresengine.NewQueryRunnerFromSQLX(sqlxDB, runnerOptions...)

		return runner, func() { _ = sqlxDB.Close() }, err

	default:
		sqlDB, err := sql.Open(sqlDriverName(db.Driver), db.DSN)
		if err != nil {
			return postgresengine.QueryRunner{}, nil, fmt.Errorf("opening database: %w", err)
		}

		runner, err := postgresengine.NewQueryRunnerFromSQLDB(sqlDB, runnerOptions...)

		return runner, func() { _ = sqlDB.Close() }, err
	}
}

func openPGXRunner(
	ctx context.Context,
	db config.DatabaseConfig,
	runnerOptions []postgresengine.Option,
) (postgresengine.QueryRunner, func(), error) {

	primary, err := pgxpool.New(ctx, db.DSN)
	if err != nil {
		return postgresengine.QueryRunner{}, nil, fmt.Errorf("creating pgx pool: %w", err)
	}

	if db.ReplicaDSN == "" {
		runner, runnerErr := postgresengine.NewQueryRunnerFromPGXPool(primary, runnerOptions...)

		return runner, primary.Close, runnerErr
	}

	replica, err := pgxpool.New(ctx, db.ReplicaDSN)
	if err != nil {
		primary.Close()

		return postgresengine.QueryRunner{}, nil, fmt.Errorf("creating pgx replica pool: %w", err)
	}

	runner, err := postgresengine.NewQueryRunnerFromPGXPoolWithReplica(primary, replica, runnerOptions...)

	return runner, func() { replica.Close(); primary.Close() }, err
}

// explainRunner builds a runner that only compiles queries. Its in-memory handle is never used,
// the SQL dialect follows the configured driver.
func (opts *RootOptions) explainRunner(schema postgresengine.Schema) (postgresengine.QueryRunner, func(), error) {
	sqlDB, err := sql.Open(config.DriverSQLite, ":memory:")
	if err != nil {
		return postgresengine.QueryRunner{}, nil, fmt.Errorf("opening database: %w", err)
	}

	runner, err := postgresengine.NewQueryRunnerFromSQLDB(sqlDB, opts.runnerOptions(schema)...)

	return runner, func() { _ = sqlDB.Close() }, err
}

func sqlDriverName(driver string) string {
	if driver == config.DriverSQLite {
		return config.DriverSQLite
	}

	return config.DriverPostgres
}
