package webquery

import (
	"errors"
	"fmt"
)

var ErrMalformedConstraint = errors.New("malformed constraint")
var ErrCoercionFailed = errors.New("value coercion failed")
var ErrUnresolvableField = errors.New("unknown field")
var ErrInvalidPaging = errors.New("invalid paging parameter")
var ErrInvalidDecoderConfig = errors.New("invalid decoder configuration")

// ConstraintError is the single "bad constraint" error class.
//
// It carries the original field, operator and value for diagnostics and wraps one of the class sentinels:
//   - ErrMalformedConstraint
//   - ErrCoercionFailed
//   - ErrUnresolvableField
//   - ErrInvalidPaging
//
// Use errors.Is to find out which one.
type ConstraintError struct {
	Field    string
	Operator string
	Value    string
	Err      error
}

func (e *ConstraintError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("bad constraint on %q (value %q): %v", e.Field, e.Value, e.Err)
	}

	return fmt.Sprintf("bad constraint on %q (operator %s, value %q): %v", e.Field, e.Operator, e.Value, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsBadConstraint reports whether err is (or wraps) a ConstraintError.
func IsBadConstraint(err error) bool {
	var constraintErr *ConstraintError

	return errors.As(err, &constraintErr)
}

func newConstraintError(field string, op string, value string, err error) *ConstraintError {
	return &ConstraintError{Field: field, Operator: op, Value: value, Err: err}
}
