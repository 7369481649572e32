package webquery

import (
	"fmt"
	"slices"
	"strings"
)

// Kind is the closed set of value types a field can have.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindLong
	KindShort
	KindBoolean
	KindEnum
	KindGuid
	KindDate
)

var kindNames = [...]string{
	KindString:  "string",
	KindInteger: "integer",
	KindLong:    "long",
	KindShort:   "short",
	KindBoolean: "boolean",
	KindEnum:    "enum",
	KindGuid:    "guid",
	KindDate:    "date",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return kindNames[k]
}

// ParseKind maps a type name as used in schema files to a Kind.
// "uuid" is accepted as an alias of "guid", "int" of "integer" and "bool" of "boolean".
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string":
		return KindString, nil
	case "integer", "int":
		return KindInteger, nil
	case "long":
		return KindLong, nil
	case "short":
		return KindShort, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "enum":
		return KindEnum, nil
	case "guid", "uuid":
		return KindGuid, nil
	case "date":
		return KindDate, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", name)
	}
}

// FieldType is attached to a field by the PropertyResolver.
// It determines which coercion and which operators are legal.
type FieldType struct {
	Kind     Kind
	Variants []string // only for KindEnum
}

var (
	TypeString  = FieldType{Kind: KindString}
	TypeInteger = FieldType{Kind: KindInteger}
	TypeLong    = FieldType{Kind: KindLong}
	TypeShort   = FieldType{Kind: KindShort}
	TypeBoolean = FieldType{Kind: KindBoolean}
	TypeGuid    = FieldType{Kind: KindGuid}
	TypeDate    = FieldType{Kind: KindDate}
)

// TypeEnum creates an enum FieldType with the given variant names.
func TypeEnum(variants ...string) FieldType {
	return FieldType{Kind: KindEnum, Variants: slices.Clone(variants)}
}

// IsNumeric reports whether values of this type are integral numbers.
func (ft FieldType) IsNumeric() bool {
	switch ft.Kind {
	case KindInteger, KindLong, KindShort:
		return true
	default:
		return false
	}
}

func (ft FieldType) String() string {
	if ft.Kind == KindEnum {
		return fmt.Sprintf("enum(%s)", strings.Join(ft.Variants, "|"))
	}

	return ft.Kind.String()
}
