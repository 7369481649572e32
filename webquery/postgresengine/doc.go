// Package postgresengine compiles webquery predicate trees into SQL with goqu and runs them.
//
// Backend implements webquery.FragmentBackend for goqu expressions. Plain properties map to Column
// store paths; size properties map to CollectionSize store paths and compile to correlated
// COUNT(*) sub-selects, or to EXISTS / NOT EXISTS for the emptiness checks.
//
// QueryRunner executes an Envelope: one page query honoring ordering, limit and offset, plus a count
// query over the same predicate tree when the Envelope asks for the total size. It works with
// pgx.Pool (optionally with a read replica), sql.DB and sqlx.DB.
//
// Schema is a PropertyResolver loaded from YAML:
//
//	table: books
//	subclass_column: kind
//	fields:
//	  title:  {type: string}
//	  author: {type: string, column: author_name}
//	  kind:   {type: enum, variants: [Book, Magazine]}
//	  loans:  {size_of: {table: loans, foreign_key: book_id, parent_key: id}}
//
// Common usage pattern:
//
//	schema, err := postgresengine.LoadSchemaFile("books.yaml")
//	runner, err := postgresengine.NewQueryRunnerFromPGXPool(pool, postgresengine.WithSchema(schema))
//	decoder, err := webquery.NewDecoder(schema)
//
//	envelope, err := decoder.Decode(request.URL.Query())
//	page, err := runner.Find(ctx, envelope)
package postgresengine
