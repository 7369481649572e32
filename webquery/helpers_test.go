package webquery_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

var fixedNow = time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func newTestResolver(t *testing.T) webquery.StaticResolver {
	t.Helper()

	resolver, err := webquery.NewStaticResolver(
		webquery.Property{FieldPath: "status", Type: webquery.TypeString},
		webquery.Property{FieldPath: "name", Type: webquery.TypeString},
		webquery.Property{FieldPath: "age", Type: webquery.TypeInteger},
		webquery.Property{FieldPath: "minAge", Type: webquery.TypeInteger},
		webquery.Property{FieldPath: "rank", Type: webquery.TypeShort},
		webquery.Property{FieldPath: "stamp", Type: webquery.TypeLong},
		webquery.Property{FieldPath: "active", Type: webquery.TypeBoolean},
		webquery.Property{FieldPath: "kind", Type: webquery.TypeEnum("Book", "Magazine")},
		webquery.Property{FieldPath: "id", Type: webquery.TypeGuid},
		webquery.Property{FieldPath: "created", Type: webquery.TypeDate},
		webquery.Property{FieldPath: "owner.name", Type: webquery.TypeString, StorePath: webquery.Path("owner_name")},
		webquery.Property{FieldPath: "orders", Type: webquery.TypeInteger, SizeProperty: true},
	)
	require.NoError(t, err)

	return resolver
}

func newTestDecoder(t *testing.T, options ...webquery.DecoderOption) webquery.Decoder {
	t.Helper()

	options = append([]webquery.DecoderOption{webquery.WithCoercer(webquery.NewCoercer(webquery.WithClock(fixedClock)))}, options...)

	decoder, err := webquery.NewDecoder(newTestResolver(t), options...)
	require.NoError(t, err)

	return decoder
}

func mustResolve(t *testing.T, fieldPath string) webquery.Property {
	t.Helper()

	property, err := newTestResolver(t).Resolve(fieldPath)
	require.NoError(t, err)

	return property
}

// stringBackend renders fragments as readable pseudo SQL.
type stringBackend struct{}

var opSymbols = map[webquery.Operator]string{
	webquery.OpEq:     "=",
	webquery.OpNeq:    "<>",
	webquery.OpGe:     ">=",
	webquery.OpGt:     ">",
	webquery.OpLe:     "<=",
	webquery.OpLt:     "<",
	webquery.OpEqRef:  "=",
	webquery.OpNeqRef: "<>",
	webquery.OpGeRef:  ">=",
	webquery.OpGtRef:  ">",
	webquery.OpLeRef:  "<=",
	webquery.OpLtRef:  "<",
}

func (stringBackend) AlwaysTrue() string {
	return "TRUE"
}

func (stringBackend) And(fragments []string) string {
	return "(" + strings.Join(fragments, " AND ") + ")"
}

func (stringBackend) Or(fragments []string) string {
	return "(" + strings.Join(fragments, " OR ") + ")"
}

func (stringBackend) Compare(path webquery.StorePath, op webquery.Operator, value any) string {
	return fmt.Sprintf("%s %s %s", path, opSymbols[op], webquery.FormatValue(value))
}

func (stringBackend) ComparePaths(op webquery.Operator, left webquery.StorePath, right webquery.StorePath) string {
	return fmt.Sprintf("%s %s %s", left, opSymbols[op], right)
}

func (stringBackend) IsNull(path webquery.StorePath) string {
	return path.String() + " IS NULL"
}

func (stringBackend) NotNull(path webquery.StorePath) string {
	return path.String() + " IS NOT NULL"
}

func (stringBackend) Like(path webquery.StorePath, pattern string) string {
	return fmt.Sprintf("%s LIKE '%s'", path, pattern)
}

func (stringBackend) Between(path webquery.StorePath, from any, to any) string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", path, webquery.FormatValue(from), webquery.FormatValue(to))
}

func (stringBackend) IsEmpty(path webquery.StorePath) string {
	return path.String() + " IS EMPTY"
}

func (stringBackend) IsNotEmpty(path webquery.StorePath) string {
	return path.String() + " IS NOT EMPTY"
}

func (stringBackend) SizeCompare(path webquery.StorePath, op webquery.Operator, n int64) string {
	return fmt.Sprintf("SIZE(%s) %s %d", path, opSymbols[op], n)
}

func encodeString(node webquery.Node) (string, bool) {
	return webquery.Encode[string](node, stringBackend{})
}
