package postgresengine

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite3  = "sqlite3"

	alwaysTrueSQL  = "1 = 1"
	alwaysFalseSQL = "1 = 0"
	existsSQL      = "EXISTS ?"
	notExistsSQL   = "NOT EXISTS ?"
)

// Column is the StorePath of a property stored in a column of the queried table.
type Column string

func (c Column) String() string {
	return string(c)
}

// CollectionSize is the StorePath of a size property: the number of rows in Table whose ForeignKey
// references ParentKey of the queried table.
type CollectionSize struct {
	Table      string
	ForeignKey string
	ParentKey  string
}

func (s CollectionSize) String() string {
	return fmt.Sprintf("size(%s.%s -> %s)", s.Table, s.ForeignKey, s.ParentKey)
}

// Backend builds goqu expressions for one table.
type Backend struct {
	dialect string
	table   string
}

// NewBackend creates a Backend for the table, using one of DialectPostgres or DialectSQLite3.
func NewBackend(dialect string, table string) (Backend, error) {
	if table == "" {
		return Backend{}, ErrEmptyTableName
	}

	if err := validateDialect(dialect); err != nil {
		return Backend{}, err
	}

	return Backend{dialect: dialect, table: table}, nil
}

func validateDialect(dialect string) error {
	switch dialect {
	case DialectPostgres, DialectSQLite3:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
}

func (b Backend) AlwaysTrue() exp.Expression {
	return goqu.L(alwaysTrueSQL)
}

func (b Backend) And(fragments []exp.Expression) exp.Expression {
	return goqu.And(fragments...)
}

func (b Backend) Or(fragments []exp.Expression) exp.Expression {
	return goqu.Or(fragments...)
}

func (b Backend) Compare(path webquery.StorePath, op webquery.Operator, value any) exp.Expression {
	return compare(b.column(path), op, sqlValue(value))
}

func (b Backend) ComparePaths(op webquery.Operator, left webquery.StorePath, right webquery.StorePath) exp.Expression {
	return compare(b.column(left), op, b.column(right))
}

func (b Backend) IsNull(path webquery.StorePath) exp.Expression {
	return b.column(path).IsNull()
}

func (b Backend) NotNull(path webquery.StorePath) exp.Expression {
	return b.column(path).IsNotNull()
}

func (b Backend) Like(path webquery.StorePath, pattern string) exp.Expression {
	return b.column(path).Like(pattern)
}

func (b Backend) Between(path webquery.StorePath, from any, to any) exp.Expression {
	return b.column(path).Between(goqu.Range(sqlValue(from), sqlValue(to)))
}

func (b Backend) IsEmpty(path webquery.StorePath) exp.Expression {
	return goqu.L(notExistsSQL, b.collectionRows(path).Select(goqu.L("1")))
}

func (b Backend) IsNotEmpty(path webquery.StorePath) exp.Expression {
	return goqu.L(existsSQL, b.collectionRows(path).Select(goqu.L("1")))
}

func (b Backend) SizeCompare(path webquery.StorePath, op webquery.Operator, n int64) exp.Expression {
	return compare(b.sizeOf(path), op, n)
}

// orderExpression returns the expression to sort by, the size sub-select for size properties.
func (b Backend) orderExpression(path webquery.StorePath) exp.Orderable {
	if _, ok := path.(CollectionSize); ok {
		return b.sizeOf(path)
	}

	return b.column(path)
}

func (b Backend) column(path webquery.StorePath) exp.IdentifierExpression {
	if size, ok := path.(CollectionSize); ok {
		panic(fmt.Sprintf("postgresengine: %s used as a column", size))
	}

	return goqu.T(b.table).Col(path.String())
}

func (b Backend) sizeOf(path webquery.StorePath) exp.LiteralExpression {
	return goqu.L("?", b.collectionRows(path).Select(goqu.COUNT(goqu.Star())))
}

func (b Backend) collectionRows(path webquery.StorePath) *goqu.SelectDataset {
	size, ok := path.(CollectionSize)
	if !ok {
		panic(fmt.Sprintf("postgresengine: %s is not a collection size", path))
	}

	return goqu.Dialect(b.dialect).
		From(size.Table).
		Where(goqu.T(size.Table).Col(size.ForeignKey).Eq(goqu.T(b.table).Col(size.ParentKey)))
}

func compare(lhs exp.Comparable, op webquery.Operator, rhs any) exp.Expression {
	switch op {
	case webquery.OpEq, webquery.OpEqRef:
		return lhs.Eq(rhs)
	case webquery.OpNeq, webquery.OpNeqRef:
		return lhs.Neq(rhs)
	case webquery.OpGe, webquery.OpGeRef:
		return lhs.Gte(rhs)
	case webquery.OpGt, webquery.OpGtRef:
		return lhs.Gt(rhs)
	case webquery.OpLe, webquery.OpLeRef:
		return lhs.Lte(rhs)
	case webquery.OpLt, webquery.OpLtRef:
		return lhs.Lt(rhs)
	default:
		panic(fmt.Sprintf("postgresengine: %s is not a comparison operator", op))
	}
}

// sqlValue converts coerced values into driver-friendly arguments.
func sqlValue(v any) any {
	switch t := v.(type) {
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uuid.UUID:
		return t.String()
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}
