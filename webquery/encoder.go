package webquery

import (
	"fmt"
)

// FragmentBackend builds store-specific boolean expression fragments of type F.
// Encode only calls these methods, it never inspects a fragment.
type FragmentBackend[F any] interface {
	AlwaysTrue() F
	And(fragments []F) F
	Or(fragments []F) F

	// Compare gets one of OpEq, OpNeq, OpGe, OpGt, OpLe, OpLt.
	Compare(path StorePath, op Operator, value any) F

	// ComparePaths gets one of the *Ref operators.
	ComparePaths(op Operator, left StorePath, right StorePath) F

	IsNull(path StorePath) F
	NotNull(path StorePath) F
	Like(path StorePath, pattern string) F

	// Between is inclusive on both sides.
	Between(path StorePath, from any, to any) F

	IsEmpty(path StorePath) F
	IsNotEmpty(path StorePath) F

	// SizeCompare gets one of OpEq, OpNeq, OpGe, OpGt, OpLe, OpLt.
	SizeCompare(path StorePath, op Operator, n int64) F
}

// Encode folds the tree bottom-up into a fragment.
// The boolean result is false when the node contributes nothing, e.g. an empty Or group,
// in which case the fragment is the zero value and must be ignored.
//
// Encode panics on leaves it cannot encode (an operator outside the closed set, a property reference
// operator without a second path), those can only be built by bypassing the constructors.
func Encode[F any](node Node, backend FragmentBackend[F]) (F, bool) {
	switch n := node.(type) {
	case Leaf:
		return encodeLeaf(n, backend), true
	case Group:
		return encodeGroup(n, backend)
	default:
		panic(fmt.Sprintf("webquery: cannot encode node of type %T", node))
	}
}

func encodeGroup[F any](group Group, backend FragmentBackend[F]) (F, bool) {
	var zero F

	if len(group.children) == 0 {
		if group.kind == GroupAnd {
			return backend.AlwaysTrue(), true
		}

		return zero, false
	}

	if len(group.children) == 1 {
		return Encode(group.children[0], backend)
	}

	fragments := make([]F, 0, len(group.children))

	for _, child := range group.children {
		if fragment, ok := Encode(child, backend); ok {
			fragments = append(fragments, fragment)
		}
	}

	switch len(fragments) {
	case 0:
		return zero, false
	case 1:
		return fragments[0], true
	}

	if group.kind == GroupOr {
		return backend.Or(fragments), true
	}

	return backend.And(fragments), true
}

func encodeLeaf[F any](leaf Leaf, backend FragmentBackend[F]) F {
	if leaf.sizeProperty {
		return encodeSizeLeaf(leaf, backend)
	}

	switch leaf.op {
	case OpEq, OpNeq, OpGe, OpGt, OpLe, OpLt:
		return backend.Compare(leaf.storePath, leaf.op, leaf.value)

	case OpIsNull:
		return backend.IsNull(leaf.storePath)

	case OpNotNull:
		return backend.NotNull(leaf.storePath)

	case OpStartsWith, OpContains:
		return backend.Like(leaf.storePath, leaf.LikePattern())

	case OpRange:
		switch {
		case leaf.from != nil && leaf.to != nil:
			return backend.Between(leaf.storePath, leaf.from, leaf.to)
		case leaf.from != nil:
			return backend.Compare(leaf.storePath, OpGe, leaf.from)
		default:
			return backend.Compare(leaf.storePath, OpLe, leaf.to)
		}

	case OpEqRef, OpNeqRef, OpLeRef, OpLtRef, OpGeRef, OpGtRef:
		if leaf.otherStorePath == nil {
			panic(fmt.Sprintf("webquery: %s leaf on %q without a second property", leaf.op, leaf.fieldPath))
		}

		return backend.ComparePaths(leaf.op, leaf.storePath, leaf.otherStorePath)

	default:
		panic(fmt.Sprintf("webquery: cannot encode operator %s", leaf.op))
	}
}

func encodeSizeLeaf[F any](leaf Leaf, backend FragmentBackend[F]) F {
	switch leaf.op {
	case OpEq, OpNeq, OpGe, OpGt, OpLe, OpLt:
		return encodeSizeComparison(backend, leaf.storePath, leaf.op, sizeValue(leaf, leaf.value))

	case OpRange:
		var fragments []F

		if leaf.from != nil {
			fragments = append(fragments, encodeSizeComparison(backend, leaf.storePath, OpGe, sizeValue(leaf, leaf.from)))
		}

		if leaf.to != nil {
			fragments = append(fragments, encodeSizeComparison(backend, leaf.storePath, OpLe, sizeValue(leaf, leaf.to)))
		}

		if len(fragments) == 1 {
			return fragments[0]
		}

		return backend.And(fragments)

	default:
		panic(fmt.Sprintf("webquery: cannot encode operator %s on size property %q", leaf.op, leaf.fieldPath))
	}
}

// encodeSizeComparison applies the rules that follow from sizes never being negative.
func encodeSizeComparison[F any](backend FragmentBackend[F], path StorePath, op Operator, n int64) F {
	switch {
	case op == OpEq && n == 0:
		return backend.IsEmpty(path)
	case op == OpNeq && n == 0:
		return backend.IsNotEmpty(path)
	case op == OpGt && n < 0:
		return backend.AlwaysTrue()
	case op == OpGt && n == 0:
		return backend.IsNotEmpty(path)
	default:
		return backend.SizeCompare(path, op, n)
	}
}

func sizeValue(leaf Leaf, v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int:
		return int64(n)
	default:
		panic(fmt.Sprintf("webquery: size property %q compared with non-integer %T", leaf.fieldPath, v))
	}
}
