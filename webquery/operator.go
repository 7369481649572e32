package webquery

import (
	"fmt"
	"strings"
)

// Operator is the closed set of comparison operators a Leaf can carry.
type Operator int

const (
	OpEq Operator = iota
	OpNeq
	OpIsNull
	OpNotNull
	OpContains
	OpStartsWith
	OpRange
	OpGe
	OpGt
	OpLe
	OpLt
	OpEqRef
	OpNeqRef
	OpLeRef
	OpLtRef
	OpGeRef
	OpGtRef

	operatorCount
)

const (
	controlPrefix  = "_"
	functionPrefix = "_f_"
	nullToken      = "_null"
	notNullToken   = "_notnull"
)

// RangeSeparator separates the bounds of a range parameter, a bound must not contain it.
const RangeSeparator = ".."

type operatorInfo struct {
	name        string
	takesParam  bool
	propertyRef bool
}

var operatorTable = [operatorCount]operatorInfo{
	OpEq:         {name: "eq", takesParam: true},
	OpNeq:        {name: "neq", takesParam: true},
	OpIsNull:     {name: "isnull"},
	OpNotNull:    {name: "notnull"},
	OpContains:   {name: "contains", takesParam: true},
	OpStartsWith: {name: "starts", takesParam: true},
	OpRange:      {name: "range", takesParam: true},
	OpGe:         {name: "ge", takesParam: true},
	OpGt:         {name: "gt", takesParam: true},
	OpLe:         {name: "le", takesParam: true},
	OpLt:         {name: "lt", takesParam: true},
	OpEqRef:      {name: "eqref", takesParam: true, propertyRef: true},
	OpNeqRef:     {name: "neqref", takesParam: true, propertyRef: true},
	OpLeRef:      {name: "leref", takesParam: true, propertyRef: true},
	OpLtRef:      {name: "ltref", takesParam: true, propertyRef: true},
	OpGeRef:      {name: "geref", takesParam: true, propertyRef: true},
	OpGtRef:      {name: "gtref", takesParam: true, propertyRef: true},
}

// grammarFunctions are the function names accepted from constraint strings.
var grammarFunctions = map[string]Operator{
	"eq":       OpEq,
	"neq":      OpNeq,
	"starts":   OpStartsWith,
	"contains": OpContains,
	"range":    OpRange,
}

func (op Operator) valid() bool {
	return op >= 0 && op < operatorCount
}

func (op Operator) String() string {
	if !op.valid() {
		return fmt.Sprintf("operator(%d)", int(op))
	}

	return operatorTable[op].name
}

// Tag returns the short textual tag of the operator, e.g. "_f_eq_" or "_null".
func (op Operator) Tag() string {
	switch op {
	case OpIsNull:
		return nullToken
	case OpNotNull:
		return notNullToken
	default:
		return functionPrefix + op.String() + "_"
	}
}

// TakesParam reports whether the operator needs a parameter value.
func (op Operator) TakesParam() bool {
	return op.valid() && operatorTable[op].takesParam
}

// SupportsPropertyRef reports whether the operator compares two properties instead of a property and a literal.
func (op Operator) SupportsPropertyRef() bool {
	return op.valid() && operatorTable[op].propertyRef
}

// ParseOperatorName maps an operator name as returned by String back to the Operator.
func ParseOperatorName(name string) (Operator, error) {
	for op := OpEq; op < operatorCount; op++ {
		if operatorTable[op].name == name {
			return op, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown operator %q", ErrMalformedConstraint, name)
}

// Tokenize splits an encoded constraint string into its operator and parameter.
//
//	constraint := equality | control
//	equality   := <any string not starting with '_'>
//	control    := "_null" | "_notnull" | "_f_" function-name "_" param
//
// For OpIsNull and OpNotNull the returned parameter is empty.
func Tokenize(encoded string) (Operator, string, error) {
	if !strings.HasPrefix(encoded, controlPrefix) {
		return OpEq, encoded, nil
	}

	switch strings.ToLower(encoded) {
	case nullToken:
		return OpIsNull, "", nil
	case notNullToken:
		return OpNotNull, "", nil
	}

	if rest, ok := strings.CutPrefix(encoded, functionPrefix); ok {
		if name, param, found := strings.Cut(rest, "_"); found {
			if op, known := grammarFunctions[name]; known {
				return op, param, nil
			}
		}
	}

	return 0, "", fmt.Errorf("%w: unknown constraint %q", ErrMalformedConstraint, encoded)
}

// SplitRange splits a range parameter "A..B", "..B" or "A.." into its bounds.
// An empty bound means open on that side, at least one bound must be present.
func SplitRange(param string) (from string, to string, err error) {
	if strings.Count(param, RangeSeparator) != 1 {
		return "", "", fmt.Errorf("%w: range %q must have the shape A..B, ..B or A..", ErrMalformedConstraint, param)
	}

	from, to, _ = strings.Cut(param, RangeSeparator)
	if from == "" && to == "" {
		return "", "", fmt.Errorf("%w: range %q has no bounds", ErrMalformedConstraint, param)
	}

	return from, to, nil
}

// JoinRange is the inverse of SplitRange.
func JoinRange(from string, to string) string {
	return from + RangeSeparator + to
}
