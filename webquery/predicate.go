package webquery

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Node is an immutable element of a predicate tree: either a Leaf or a Group.
type Node interface {
	// String renders the node as an S-expression, e.g. (and (eq status "active") (range age 18 65)).
	String() string
	isNode()
}

/***** Leaf *****/

// Leaf is a single field + operator + value predicate.
//
// Depending on the operator it carries a value (comparisons and Like), two bounds (Range),
// nothing (null checks) or a second property (the *Ref operators).
type Leaf struct {
	fieldPath      string
	storePath      StorePath
	sizeProperty   bool
	op             Operator
	value          any
	from           any
	to             any
	otherFieldPath string
	otherStorePath StorePath
}

func (Leaf) isNode() {}

// NewComparison creates a leaf comparing a property with a literal.
// It panics if op is not one of OpEq, OpNeq, OpGe, OpGt, OpLe, OpLt.
func NewComparison(property Property, op Operator, value any) Leaf {
	switch op {
	case OpEq, OpNeq, OpGe, OpGt, OpLe, OpLt:
	default:
		panic(fmt.Sprintf("webquery: %s is not a literal comparison operator", op))
	}

	leaf := newLeaf(property, op)
	leaf.value = value

	return leaf
}

// NewNullCheck creates an OpIsNull or OpNotNull leaf, it panics for any other operator.
func NewNullCheck(property Property, op Operator) Leaf {
	if op != OpIsNull && op != OpNotNull {
		panic(fmt.Sprintf("webquery: %s is not a null check operator", op))
	}

	return newLeaf(property, op)
}

// NewLike creates an OpStartsWith or OpContains leaf, it panics for any other operator.
// The literal is stored without wildcards, see LikePattern.
func NewLike(property Property, op Operator, literal string) Leaf {
	if op != OpStartsWith && op != OpContains {
		panic(fmt.Sprintf("webquery: %s is not a like operator", op))
	}

	leaf := newLeaf(property, op)
	leaf.value = literal

	return leaf
}

// NewRange creates an inclusive OpRange leaf. A nil bound is open, it panics if both bounds are nil.
func NewRange(property Property, from any, to any) Leaf {
	if from == nil && to == nil {
		panic("webquery: range without any bound")
	}

	leaf := newLeaf(property, OpRange)
	leaf.from = from
	leaf.to = to

	return leaf
}

// NewPropertyComparison creates a leaf comparing two properties.
// Using an operator without property reference support is a programming error and panics.
func NewPropertyComparison(op Operator, left Property, right Property) Leaf {
	if !op.SupportsPropertyRef() {
		panic(fmt.Sprintf("webquery: %s does not support property references", op))
	}

	leaf := newLeaf(left, op)
	leaf.otherFieldPath = right.FieldPath
	leaf.otherStorePath = right.StorePath

	return leaf
}

func newLeaf(property Property, op Operator) Leaf {
	storePath := property.StorePath
	if storePath == nil {
		storePath = Path(property.FieldPath)
	}

	return Leaf{
		fieldPath:    property.FieldPath,
		storePath:    storePath,
		sizeProperty: property.SizeProperty,
		op:           op,
	}
}

func (l Leaf) FieldPath() string {
	return l.fieldPath
}

func (l Leaf) StorePath() StorePath {
	return l.storePath
}

// IsSizeProperty reports whether the leaf constrains the cardinality of a collection.
func (l Leaf) IsSizeProperty() bool {
	return l.sizeProperty
}

func (l Leaf) Operator() Operator {
	return l.op
}

// Value is the literal of a comparison or the unwildcarded literal of a Like leaf.
func (l Leaf) Value() any {
	return l.value
}

// Bounds returns the range bounds, nil means open.
func (l Leaf) Bounds() (from any, to any) {
	return l.from, l.to
}

func (l Leaf) OtherFieldPath() string {
	return l.otherFieldPath
}

func (l Leaf) OtherStorePath() StorePath {
	return l.otherStorePath
}

// LikePattern returns the Like pattern of an OpStartsWith or OpContains leaf and "" for any other leaf.
func (l Leaf) LikePattern() string {
	literal, _ := l.value.(string)

	switch l.op {
	case OpStartsWith:
		return literal + wildcard
	case OpContains:
		return wildcard + literal + wildcard
	default:
		return ""
	}
}

func (l Leaf) String() string {
	field := l.fieldPath
	if l.sizeProperty {
		field = "#" + field
	}

	switch l.op {
	case OpIsNull, OpNotNull:
		return fmt.Sprintf("(%s %s)", l.op, field)
	case OpRange:
		return fmt.Sprintf("(%s %s %s %s)", l.op, field, renderBound(l.from), renderBound(l.to))
	case OpEqRef, OpNeqRef, OpLeRef, OpLtRef, OpGeRef, OpGtRef:
		return fmt.Sprintf("(%s %s %s)", l.op, field, l.otherFieldPath)
	default:
		return fmt.Sprintf("(%s %s %s)", l.op, field, renderLiteral(l.value))
	}
}

func renderBound(v any) string {
	if v == nil {
		return "*"
	}

	return renderLiteral(v)
}

func renderLiteral(v any) string {
	switch v.(type) {
	case string, uuid.UUID, time.Time:
		return strconv.Quote(FormatValue(v))
	default:
		return FormatValue(v)
	}
}

/***** Group *****/

// GroupKind is the boolean combinator of a Group.
type GroupKind int

const (
	GroupAnd GroupKind = iota
	GroupOr
)

func (k GroupKind) String() string {
	if k == GroupOr {
		return "or"
	}

	return "and"
}

// Group combines child nodes with And or Or, child order is preserved.
//
// An empty And group is always true, an empty Or group contributes no constraint at all.
// A group with a single child is equivalent to that child.
type Group struct {
	kind     GroupKind
	children []Node
}

func (Group) isNode() {}

// And creates an And group of the given children.
func And(children ...Node) Group {
	return Group{kind: GroupAnd, children: slices.Clone(children)}
}

// Or creates an Or group of the given children.
func Or(children ...Node) Group {
	return Group{kind: GroupOr, children: slices.Clone(children)}
}

func (g Group) Kind() GroupKind {
	return g.kind
}

// Children returns a copy of the child nodes.
func (g Group) Children() []Node {
	return slices.Clone(g.children)
}

func (g Group) Len() int {
	return len(g.children)
}

// IsEmpty reports whether the group has no children.
func (g Group) IsEmpty() bool {
	return len(g.children) == 0
}

// With returns a copy of the group with the children appended.
func (g Group) With(children ...Node) Group {
	return Group{kind: g.kind, children: append(slices.Clone(g.children), children...)}
}

func (g Group) String() string {
	if len(g.children) == 0 {
		return "(" + g.kind.String() + ")"
	}

	parts := make([]string, 0, len(g.children)+1)
	parts = append(parts, g.kind.String())

	for _, child := range g.children {
		parts = append(parts, child.String())
	}

	return "(" + strings.Join(parts, " ") + ")"
}

// Simplify returns a node that Encode folds into the same fragment. Singleton groups are unwrapped
// and children that contribute nothing (empty Or groups, also after simplification) are removed.
// A non-empty group whose children all contribute nothing becomes an empty Or group.
func Simplify(node Node) Node {
	group, ok := node.(Group)
	if !ok || len(group.children) == 0 {
		return node
	}

	children := make([]Node, 0, len(group.children))

	for _, child := range group.children {
		child = Simplify(child)

		if isVacuous(child) {
			continue
		}

		children = append(children, child)
	}

	switch len(children) {
	case 0:
		return Or()
	case 1:
		return children[0]
	default:
		return Group{kind: group.kind, children: children}
	}
}

func isVacuous(node Node) bool {
	group, ok := node.(Group)

	return ok && group.kind == GroupOr && len(group.children) == 0
}

// Leaves returns all leaves of the tree in depth-first order.
func Leaves(node Node) []Leaf {
	switch n := node.(type) {
	case Leaf:
		return []Leaf{n}
	case Group:
		var leaves []Leaf
		for _, child := range n.children {
			leaves = append(leaves, Leaves(child)...)
		}

		return leaves
	default:
		return nil
	}
}
