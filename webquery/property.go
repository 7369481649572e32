package webquery

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// StorePath is the opaque, backend-specific location of a property in the data store.
// The core only passes it through to the FragmentBackend.
type StorePath interface {
	String() string
}

// Path is the simplest StorePath: a name the backend understands directly.
type Path string

func (p Path) String() string {
	return string(p)
}

// Property is what a PropertyResolver knows about a field path.
type Property struct {
	FieldPath    string
	Type         FieldType
	StorePath    StorePath
	SizeProperty bool // the property is the cardinality of a related collection
}

// PropertyResolver maps dot-separated field paths to properties.
// Implementations must be safe for concurrent use; Resolve fails with ErrUnresolvableField for unknown paths.
type PropertyResolver interface {
	Resolve(fieldPath string) (Property, error)
}

// StaticResolver is a read-only PropertyResolver backed by a map, built once and shared between requests.
type StaticResolver struct {
	properties map[string]Property
}

// NewStaticResolver creates a StaticResolver. The FieldPath of each property is used as its key.
func NewStaticResolver(properties ...Property) (StaticResolver, error) {
	resolver := StaticResolver{properties: make(map[string]Property, len(properties))}

	for _, property := range properties {
		if property.FieldPath == "" {
			return StaticResolver{}, errors.New("property with empty field path supplied")
		}

		if _, exists := resolver.properties[property.FieldPath]; exists {
			return StaticResolver{}, fmt.Errorf("duplicate property %q supplied", property.FieldPath)
		}

		if property.StorePath == nil {
			property.StorePath = Path(property.FieldPath)
		}

		if property.Type.Kind == KindEnum {
			property.Type.Variants = slices.Clone(property.Type.Variants)
		}

		resolver.properties[property.FieldPath] = property
	}

	return resolver, nil
}

func (r StaticResolver) Resolve(fieldPath string) (Property, error) {
	property, ok := r.properties[fieldPath]
	if !ok {
		return Property{}, fmt.Errorf("%w: %q", ErrUnresolvableField, fieldPath)
	}

	return property, nil
}

// FieldPaths returns all known field paths in sorted order.
func (r StaticResolver) FieldPaths() []string {
	return slices.Sorted(maps.Keys(r.properties))
}

// resolve wraps resolver errors that do not already carry ErrUnresolvableField.
func resolve(resolver PropertyResolver, fieldPath string) (Property, error) {
	property, err := resolver.Resolve(fieldPath)
	if err != nil {
		if errors.Is(err, ErrUnresolvableField) {
			return Property{}, err
		}

		return Property{}, errors.Join(ErrUnresolvableField, err)
	}

	if property.FieldPath == "" {
		property.FieldPath = fieldPath
	}

	if property.StorePath == nil {
		property.StorePath = Path(fieldPath)
	}

	return property, nil
}
