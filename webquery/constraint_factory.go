package webquery

import (
	"fmt"
)

// ConstraintFactory turns one (field path, encoded constraint) pair into a predicate node.
// It holds no mutable state and is safe for concurrent use.
type ConstraintFactory struct {
	resolver PropertyResolver
	coercer  Coercer
}

// NewConstraintFactory creates a ConstraintFactory with the given resolver and coercer.
func NewConstraintFactory(resolver PropertyResolver, coercer Coercer) ConstraintFactory {
	return ConstraintFactory{resolver: resolver, coercer: coercer}
}

// Build parses the encoded constraint for fieldPath.
//
// The result is a Leaf, except for a two-sided range on a size property,
// which becomes an And group of a Ge and a Le leaf.
// All errors are *ConstraintError values.
func (f ConstraintFactory) Build(fieldPath string, encoded string) (Node, error) {
	op, param, err := Tokenize(encoded)
	if err != nil {
		return nil, newConstraintError(fieldPath, "", encoded, err)
	}

	property, err := resolve(f.resolver, fieldPath)
	if err != nil {
		return nil, newConstraintError(fieldPath, op.String(), encoded, err)
	}

	node, err := f.build(property, op, param)
	if err != nil {
		return nil, newConstraintError(fieldPath, op.String(), encoded, err)
	}

	return node, nil
}

// BuildAny parses several alternative constraints for one field.
// One value yields its node, more values yield an Or group.
func (f ConstraintFactory) BuildAny(fieldPath string, encoded []string) (Node, error) {
	if len(encoded) == 0 {
		return nil, newConstraintError(fieldPath, "", "", fmt.Errorf("%w: no value supplied", ErrMalformedConstraint))
	}

	if len(encoded) == 1 {
		return f.Build(fieldPath, encoded[0])
	}

	children := make([]Node, 0, len(encoded))

	for _, value := range encoded {
		child, err := f.Build(fieldPath, value)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	return Or(children...), nil
}

func (f ConstraintFactory) build(property Property, op Operator, param string) (Node, error) {
	if property.SizeProperty && !property.Type.IsNumeric() {
		return nil, fmt.Errorf("%w: size property has non-numeric type %s", ErrMalformedConstraint, property.Type)
	}

	switch op {
	case OpEq, OpNeq:
		value, err := f.coercer.Parse(property.Type, param)
		if err != nil {
			return nil, err
		}

		return NewComparison(property, op, value), nil

	case OpIsNull, OpNotNull:
		if property.SizeProperty {
			return nil, fmt.Errorf("%w: %s is not applicable to a size property", ErrMalformedConstraint, op)
		}

		return NewNullCheck(property, op), nil

	case OpStartsWith, OpContains:
		if property.Type.Kind != KindString || property.SizeProperty {
			return nil, fmt.Errorf("%w: %s requires a string field, not %s", ErrMalformedConstraint, op, property.Type)
		}

		return NewLike(property, op, param), nil

	case OpRange:
		return f.buildRange(property, param)

	default:
		return nil, fmt.Errorf("%w: operator %s cannot be parsed from a constraint string", ErrMalformedConstraint, op)
	}
}

func (f ConstraintFactory) buildRange(property Property, param string) (Node, error) {
	rawFrom, rawTo, err := SplitRange(param)
	if err != nil {
		return nil, err
	}

	var from, to any

	if rawFrom != "" {
		if from, err = f.coercer.Parse(property.Type, rawFrom); err != nil {
			return nil, err
		}
	}

	if rawTo != "" {
		if to, err = f.coercer.Parse(property.Type, rawTo); err != nil {
			return nil, err
		}
	}

	if !property.SizeProperty {
		return NewRange(property, from, to), nil
	}

	switch {
	case from != nil && to != nil:
		return And(NewComparison(property, OpGe, from), NewComparison(property, OpLe, to)), nil
	case from != nil:
		return NewComparison(property, OpGe, from), nil
	default:
		return NewComparison(property, OpLe, to), nil
	}
}
