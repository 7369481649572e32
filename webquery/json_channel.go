package webquery

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// The structured channel carries an Envelope as JSON, including nested groups and the operators
// that the constraint string grammar cannot express (ge, gt, le, lt and the *ref operators).
// Values travel in their constraint-string form and are coerced again on the way in.
// An absent limit gets the default limit, as in the constraint string channel.

type envelopeJSON struct {
	Constraints *nodeJSON      `json:"constraints,omitempty"`
	Orderings   []orderingJSON `json:"orderings,omitempty"`
	Limit       *int           `json:"limit,omitempty"`
	Offset      int            `json:"offset"`
	ComputeSize bool           `json:"computeSize,omitempty"`
	Class       string         `json:"class,omitempty"`
	Depth       int            `json:"depth,omitempty"`
	Expand      []string       `json:"expand,omitempty"`
}

type orderingJSON struct {
	Field     string `json:"field"`
	Ascending bool   `json:"ascending"`
}

type nodeJSON struct {
	Group    string      `json:"group,omitempty"`
	Children []*nodeJSON `json:"children,omitempty"`
	Field    string      `json:"field,omitempty"`
	Op       string      `json:"op,omitempty"`
	Value    *string     `json:"value,omitempty"`
	From     *string     `json:"from,omitempty"`
	To       *string     `json:"to,omitempty"`
	Other    string      `json:"other,omitempty"`
}

// MarshalEnvelopeJSON serializes an Envelope for the structured channel.
func MarshalEnvelopeJSON(envelope Envelope) ([]byte, error) {
	limit := envelope.limit

	dto := envelopeJSON{
		Constraints: nodeToJSON(envelope.constraints),
		Limit:       &limit,
		Offset:      envelope.offset,
		ComputeSize: envelope.computeSize,
		Class:       envelope.subclassFilter,
		Depth:       envelope.fetchDepth,
		Expand:      envelope.expand,
	}

	for _, ordering := range envelope.orderings {
		dto.Orderings = append(dto.Orderings, orderingJSON{Field: ordering.fieldPath, Ascending: ordering.ascending})
	}

	return jsoniter.ConfigFastest.Marshal(dto)
}

// UnmarshalEnvelopeJSON decodes the structured channel. Fields are resolved and values coerced again,
// so the result is as typed as one built by a Decoder. The top-level constraints must be a group.
// A missing limit becomes DefaultLimit, use Decoder.DecodeJSON to apply a Decoder's paging limits.
func UnmarshalEnvelopeJSON(data []byte, resolver PropertyResolver, coercer Coercer) (Envelope, error) {
	return unmarshalEnvelopeJSON(data, resolver, coercer, func(requested *int) int {
		if requested == nil {
			return DefaultLimit
		}

		return *requested
	})
}

func unmarshalEnvelopeJSON(
	data []byte,
	resolver PropertyResolver,
	coercer Coercer,
	effectiveLimit func(requested *int) int,
) (Envelope, error) {

	var dto envelopeJSON

	if err := jsoniter.ConfigFastest.Unmarshal(data, &dto); err != nil {
		return Envelope{}, newConstraintError("", "", "", errors.Join(ErrMalformedConstraint, err))
	}

	builder := NewEnvelopeBuilder().
		Limit(effectiveLimit(dto.Limit)).
		Offset(dto.Offset).
		ComputeSize(dto.ComputeSize).
		Subclass(dto.Class).
		FetchDepth(dto.Depth).
		Expand(dto.Expand...)

	if dto.Constraints != nil {
		node, err := nodeFromJSON(dto.Constraints, resolver, coercer)
		if err != nil {
			return Envelope{}, err
		}

		group, ok := node.(Group)
		if !ok {
			return Envelope{}, newConstraintError(
				node.(Leaf).FieldPath(), "", "",
				fmt.Errorf("%w: top-level constraints must be a group", ErrMalformedConstraint),
			)
		}

		builder.Constraints(group)
	}

	for _, ordering := range dto.Orderings {
		property, err := resolve(resolver, ordering.Field)
		if err != nil {
			return Envelope{}, newConstraintError(KeyOrder, "", ordering.Field, err)
		}

		builder.OrderBy(NewOrdering(property, ordering.Ascending))
	}

	envelope, err := builder.Finalize()
	if err != nil {
		return Envelope{}, newConstraintError("", "", "", err)
	}

	return envelope, nil
}

func nodeToJSON(node Node) *nodeJSON {
	switch n := node.(type) {
	case Group:
		dto := &nodeJSON{Group: n.kind.String(), Children: make([]*nodeJSON, 0, len(n.children))}
		for _, child := range n.children {
			dto.Children = append(dto.Children, nodeToJSON(child))
		}

		return dto

	case Leaf:
		dto := &nodeJSON{Field: n.fieldPath, Op: n.op.String(), Other: n.otherFieldPath}
		dto.Value = formatOptional(n.value)
		dto.From = formatOptional(n.from)
		dto.To = formatOptional(n.to)

		return dto

	default:
		return nil
	}
}

func formatOptional(v any) *string {
	if v == nil {
		return nil
	}

	s := FormatValue(v)

	return &s
}

func nodeFromJSON(dto *nodeJSON, resolver PropertyResolver, coercer Coercer) (Node, error) {
	if dto.Group != "" {
		children := make([]Node, 0, len(dto.Children))

		for _, childDTO := range dto.Children {
			if childDTO == nil {
				continue
			}

			child, err := nodeFromJSON(childDTO, resolver, coercer)
			if err != nil {
				return nil, err
			}

			children = append(children, child)
		}

		switch dto.Group {
		case GroupAnd.String():
			return And(children...), nil
		case GroupOr.String():
			return Or(children...), nil
		default:
			return nil, newConstraintError("", "", dto.Group, fmt.Errorf("%w: unknown group kind", ErrMalformedConstraint))
		}
	}

	op, err := ParseOperatorName(dto.Op)
	if err != nil {
		return nil, newConstraintError(dto.Field, dto.Op, "", err)
	}

	leaf, err := leafFromJSON(dto, op, resolver, coercer)
	if err != nil {
		return nil, newConstraintError(dto.Field, dto.Op, jsonLeafValue(dto), err)
	}

	return leaf, nil
}

func leafFromJSON(dto *nodeJSON, op Operator, resolver PropertyResolver, coercer Coercer) (Leaf, error) {
	property, err := resolve(resolver, dto.Field)
	if err != nil {
		return Leaf{}, err
	}

	if property.SizeProperty {
		switch op {
		case OpEq, OpNeq, OpGe, OpGt, OpLe, OpLt, OpRange:
		default:
			return Leaf{}, fmt.Errorf("%w: %s is not applicable to a size property", ErrMalformedConstraint, op)
		}

		if !property.Type.IsNumeric() {
			return Leaf{}, fmt.Errorf("%w: size property has non-numeric type %s", ErrMalformedConstraint, property.Type)
		}
	}

	if op.SupportsPropertyRef() {
		other, otherErr := resolve(resolver, dto.Other)
		if otherErr != nil {
			return Leaf{}, otherErr
		}

		if other.SizeProperty {
			return Leaf{}, fmt.Errorf("%w: %s cannot reference the size property %q", ErrMalformedConstraint, op, other.FieldPath)
		}

		return NewPropertyComparison(op, property, other), nil
	}

	switch op {
	case OpIsNull, OpNotNull:
		return NewNullCheck(property, op), nil

	case OpStartsWith, OpContains:
		if property.Type.Kind != KindString || dto.Value == nil {
			return Leaf{}, fmt.Errorf("%w: %s requires a string field and a value", ErrMalformedConstraint, op)
		}

		return NewLike(property, op, *dto.Value), nil

	case OpRange:
		from, fromErr := parseOptional(coercer, property.Type, dto.From)
		if fromErr != nil {
			return Leaf{}, fromErr
		}

		to, toErr := parseOptional(coercer, property.Type, dto.To)
		if toErr != nil {
			return Leaf{}, toErr
		}

		if from == nil && to == nil {
			return Leaf{}, fmt.Errorf("%w: range without any bound", ErrMalformedConstraint)
		}

		return NewRange(property, from, to), nil

	default:
		if dto.Value == nil {
			return Leaf{}, fmt.Errorf("%w: %s requires a value", ErrMalformedConstraint, op)
		}

		value, parseErr := coercer.Parse(property.Type, *dto.Value)
		if parseErr != nil {
			return Leaf{}, parseErr
		}

		return NewComparison(property, op, value), nil
	}
}

func parseOptional(coercer Coercer, ft FieldType, raw *string) (any, error) {
	if raw == nil {
		return nil, nil
	}

	return coercer.Parse(ft, *raw)
}

func jsonLeafValue(dto *nodeJSON) string {
	switch {
	case dto.Value != nil:
		return *dto.Value
	case dto.From != nil || dto.To != nil:
		return JoinRange(deref(dto.From), deref(dto.To))
	default:
		return dto.Other
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
