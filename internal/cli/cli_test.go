package cli_test

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/AntonStoeckl/webquery-go/internal/cli"
)

const booksSchema = "testdata/books.yaml"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := cli.NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func givenBooksDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "books.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	statements := []string{
		`CREATE TABLE books (id INTEGER PRIMARY KEY, title TEXT, author_name TEXT, kind TEXT, pages INTEGER)`,
		`CREATE TABLE loans (id INTEGER PRIMARY KEY, book_id INTEGER)`,
		`INSERT INTO books VALUES (1, 'Go in Action', 'Kennedy', 'Book', 264)`,
		`INSERT INTO books VALUES (2, 'The Go Programming Language', 'Donovan', 'Book', 380)`,
		`INSERT INTO books VALUES (3, 'Gopher Monthly', NULL, 'Magazine', 40)`,
		`INSERT INTO loans VALUES (1, 1), (2, 1), (3, 2)`,
	}

	for _, statement := range statements {
		_, err = db.Exec(statement)
		require.NoError(t, err)
	}

	return path
}

func Test_Explain_PrintsTreeAndSQL(t *testing.T) {
	// act
	stdout, _, err := execute(t, "--schema", booksSchema, "explain", "title=_f_starts_Go&_order=-pages&_computeSize=true")

	// assert
	require.NoError(t, err)
	assert.Contains(t, stdout, `tree:  (and (starts title "Go"))`)
	assert.Contains(t, stdout, `"books"."title" LIKE $1`)
	assert.Contains(t, stdout, `ORDER BY "books"."pages" DESC`)
	assert.Contains(t, stdout, `"Go%"`)
	assert.Contains(t, stdout, `count: SELECT COUNT(*) FROM "books"`)
}

func Test_Explain_WithoutComputeSize_OmitsCount(t *testing.T) {
	// act
	stdout, _, err := execute(t, "--schema", booksSchema, "explain", "author=Kennedy")

	// assert
	require.NoError(t, err)
	assert.Contains(t, stdout, `"books"."author_name" = $1`)
	assert.NotContains(t, stdout, "count:")
}

func Test_Explain_JSON(t *testing.T) {
	// act
	stdout, _, err := execute(t, "--schema", booksSchema, "explain", "--json", "pages=_f_range_100..300&_limit=5")

	// assert
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsoniter.UnmarshalFromString(stdout, &decoded))
	assert.EqualValues(t, 5, decoded["limit"])
	assert.Contains(t, stdout, `"op":"range"`)
}

func Test_Explain_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing_schema", args: []string{"explain", "title=Go"}},
		{name: "unknown_field", args: []string{"--schema", booksSchema, "explain", "isbn=123"}},
		{name: "bad_paging", args: []string{"--schema", booksSchema, "explain", "_limit=-1"}},
		{name: "unknown_driver", args: []string{"--schema", booksSchema, "--driver", "mysql", "explain", "title=Go"}},
		{name: "missing_argument", args: []string{"--schema", booksSchema, "explain"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, _, err := execute(t, tc.args...)

			// assert
			assert.Error(t, err)
		})
	}
}

func Test_Legacy_PrintsFlatMap(t *testing.T) {
	// act
	stdout, _, err := execute(t, "--schema", booksSchema, "legacy", "title=_f_starts_Go&pages=_f_range_100..300&_limit=10")

	// assert
	require.NoError(t, err)
	assert.Contains(t, stdout, "_limit=10\n")
	assert.Contains(t, stdout, "_offset=0\n")
	assert.Contains(t, stdout, "pages=_f_range_100..300\n")
	assert.Contains(t, stdout, "title=_f_starts_Go\n")
}

func Test_Legacy_AlternativesOnOneField(t *testing.T) {
	// act
	stdout, _, err := execute(t, "--schema", booksSchema, "legacy", "title=Go&title=Rust")

	// assert
	require.NoError(t, err)
	assert.Contains(t, stdout, "title=Go\n")
	assert.Contains(t, stdout, "title=Rust\n")
}

func Test_Legacy_UnsupportedTree_Fails(t *testing.T) {
	// act
	_, _, err := execute(t, "--schema", booksSchema, "legacy", "loans=_f_range_1..3")

	// assert
	assert.Error(t, err)
}

func Test_Run_PrintsRowsAsJSON(t *testing.T) {
	// arrange
	dsn := givenBooksDatabase(t)

	// act
	stdout, _, err := execute(t,
		"--schema", booksSchema, "--driver", "sqlite", "--dsn", dsn,
		"run", "loans=_f_range_1..&_order=id&_computeSize=true",
	)

	// assert
	require.NoError(t, err)

	var page struct {
		Rows      []map[string]any `json:"rows"`
		TotalSize *int64           `json:"totalSize"`
		Limit     int              `json:"limit"`
	}
	require.NoError(t, jsoniter.UnmarshalFromString(stdout, &page))
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Go in Action", page.Rows[0]["title"])
	assert.Equal(t, "The Go Programming Language", page.Rows[1]["title"])
	require.NotNil(t, page.TotalSize)
	assert.Equal(t, int64(2), *page.TotalSize)
	assert.Equal(t, 200, page.Limit)
}

func Test_Run_WithMetrics_PrintsPrometheusText(t *testing.T) {
	// arrange
	dsn := givenBooksDatabase(t)

	// act
	_, stderr, err := execute(t,
		"--schema", booksSchema, "--driver", "sqlite", "--dsn", dsn,
		"run", "--metrics", "kind=Magazine",
	)

	// assert
	require.NoError(t, err)
	assert.Contains(t, stderr, "webquery_query_duration_seconds")
	assert.Contains(t, stderr, "webquery_rows_returned")
}

func Test_Run_WithoutDSN_Fails(t *testing.T) {
	// act
	_, _, err := execute(t, "--schema", booksSchema, "--driver", "sqlite", "run", "title=Go")

	// assert
	assert.Error(t, err)
}
