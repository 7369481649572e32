package postgresengine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/webquery-go/webquery"
	"github.com/AntonStoeckl/webquery-go/webquery/postgresengine"
)

func Test_LoadSchema(t *testing.T) {
	// arrange
	schema := givenBooksSchema(t)

	// act
	author, authorErr := schema.Resolve("author")
	kind, kindErr := schema.Resolve("kind")
	loans, loansErr := schema.Resolve("loans")

	// assert
	assert.Equal(t, "books", schema.Table())
	assert.Equal(t, "kind", schema.SubclassColumn())
	assert.Equal(t, []string{"author", "id", "kind", "loans", "pages", "title"}, schema.FieldPaths())

	require.NoError(t, authorErr)
	assert.Equal(t, postgresengine.Column("author_name"), author.StorePath)
	assert.Equal(t, webquery.KindString, author.Type.Kind)
	assert.False(t, author.SizeProperty)

	require.NoError(t, kindErr)
	assert.Equal(t, webquery.KindEnum, kind.Type.Kind)
	assert.Equal(t, []string{"Book", "Magazine"}, kind.Type.Variants)
	assert.Equal(t, postgresengine.Column("kind"), kind.StorePath)

	require.NoError(t, loansErr)
	assert.True(t, loans.SizeProperty)
	assert.Equal(t, webquery.KindInteger, loans.Type.Kind)
	assert.Equal(t, postgresengine.CollectionSize{Table: "loans", ForeignKey: "book_id", ParentKey: "id"}, loans.StorePath)
}

func Test_Schema_Resolve_UnknownField(t *testing.T) {
	_, err := givenBooksSchema(t).Resolve("isbn")

	assert.ErrorIs(t, err, webquery.ErrUnresolvableField)
}

func Test_LoadSchema_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing_table", yaml: "fields:\n  title: {type: string}\n"},
		{name: "unknown_key", yaml: "table: books\ncolour: red\n"},
		{name: "unknown_type", yaml: "table: books\nfields:\n  title: {type: text}\n"},
		{name: "enum_without_variants", yaml: "table: books\nfields:\n  kind: {type: enum}\n"},
		{name: "non_numeric_size", yaml: "table: books\nfields:\n  loans: {type: string, size_of: {table: loans, foreign_key: book_id, parent_key: id}}\n"},
		{name: "incomplete_size", yaml: "table: books\nfields:\n  loans: {size_of: {table: loans}}\n"},
		{name: "not_yaml", yaml: "table: [books\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := postgresengine.LoadSchema(strings.NewReader(tc.yaml))

			assert.ErrorIs(t, err, postgresengine.ErrInvalidSchema)
		})
	}
}

func Test_LoadSchemaFile_Missing(t *testing.T) {
	_, err := postgresengine.LoadSchemaFile("testdata/does-not-exist.yaml")

	assert.ErrorIs(t, err, postgresengine.ErrInvalidSchema)
}

func Test_Schema_DrivesDecoder(t *testing.T) {
	// arrange
	decoder, err := webquery.NewDecoder(givenBooksSchema(t))
	require.NoError(t, err)

	// act
	_, startsErr := decoder.DecodeQuery("pages=_f_starts_1")
	_, nullErr := decoder.DecodeQuery("loans=_null")
	envelope, okErr := decoder.DecodeQuery("loans=_f_range_1..3")

	// assert
	assert.ErrorIs(t, startsErr, webquery.ErrMalformedConstraint)
	assert.ErrorIs(t, nullErr, webquery.ErrMalformedConstraint)
	require.NoError(t, okErr)
	assert.Equal(t, "(and (and (ge #loans 1) (le #loans 3)))", envelope.Constraints().String())
}
