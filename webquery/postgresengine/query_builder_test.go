package postgresengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/webquery-go/webquery/postgresengine"
)

func Test_QueryRunner_BuildSelect_Postgres(t *testing.T) {
	runner := givenPostgresRunner(t)

	tests := []struct {
		name         string
		query        string
		expectedSQL  []string
		expectedArgs []any
	}{
		{
			name:         "eq_is_prepared",
			query:        "title=Go&_limit=10",
			expectedSQL:  []string{`SELECT "books".* FROM "books" WHERE ("books"."title" = $1)`, `LIMIT `},
			expectedArgs: []any{"Go"},
		},
		{
			name:         "range_and_order",
			query:        "pages=_f_range_10..20&_order=-pages,title",
			expectedSQL:  []string{`("books"."pages" BETWEEN $1 AND $2)`, `ORDER BY "books"."pages" DESC, "books"."title" ASC`},
			expectedArgs: []any{int64(10), int64(20)},
		},
		{
			name:        "order_by_size",
			query:       "_order=loans",
			expectedSQL: []string{`ORDER BY ` + loansSubSelect + ` ASC`},
		},
		{
			name:         "subclass",
			query:        "_class=Magazine",
			expectedSQL:  []string{`("books"."kind" = $1)`},
			expectedArgs: []any{"Magazine"},
		},
		{
			name:        "limit_zero_matches_nothing",
			query:       "_limit=0",
			expectedSQL: []string{`1 = 0`},
		},
		{
			name:        "offset",
			query:       "_offset=5",
			expectedSQL: []string{`OFFSET `},
		},
		{
			name:        "size_not_empty",
			query:       "loans=_f_neq_0",
			expectedSQL: []string{`WHERE EXISTS (SELECT 1 FROM "loans" WHERE ("loans"."book_id" = "books"."id"))`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			sqlQuery, args, err := runner.BuildSelect(decode(t, tc.query))

			// assert
			require.NoError(t, err)
			for _, fragment := range tc.expectedSQL {
				assert.Contains(t, sqlQuery, fragment)
			}

			if tc.expectedArgs != nil {
				require.GreaterOrEqual(t, len(args), len(tc.expectedArgs))
				assert.Equal(t, tc.expectedArgs, args[:len(tc.expectedArgs)])
			}
		})
	}
}

func Test_QueryRunner_BuildCount_Postgres(t *testing.T) {
	// arrange
	runner := givenPostgresRunner(t)
	envelope := decode(t, "author=_f_starts_Ken&_order=title&_limit=5&_offset=10")

	// act
	sqlQuery, args, err := runner.BuildCount(envelope)

	// assert
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "books" WHERE ("books"."author_name" LIKE $1)`, sqlQuery)
	assert.Equal(t, []any{"Ken%"}, args)
}

func Test_QueryRunner_BuildSelect_WithSelectColumns(t *testing.T) {
	runner := givenPostgresRunner(t, postgresengine.WithSelectColumns("id", "title"))

	sqlQuery, _, err := runner.BuildSelect(decode(t, ""))

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `SELECT "books"."id", "books"."title" FROM "books"`)
}

func Test_QueryRunner_BuildSelect_SubclassNotSupported(t *testing.T) {
	runner := givenPostgresRunner(t, postgresengine.WithSubclassColumn(""))

	_, _, err := runner.BuildSelect(decode(t, "_class=Book"))

	assert.ErrorIs(t, err, postgresengine.ErrSubclassNotSupported)
}

func Test_WithSelectColumns_RejectsEmptyColumn(t *testing.T) {
	_, err := postgresengine.NewQueryRunnerFromSQLDB(givenBooksDB(t), postgresengine.WithTableName("books"), postgresengine.WithSelectColumns("id", ""))

	assert.Error(t, err)
}
