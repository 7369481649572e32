package postgresengine

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

type schemaFile struct {
	Table          string               `yaml:"table"`
	SubclassColumn string               `yaml:"subclass_column"`
	Fields         map[string]fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Type     string    `yaml:"type"`
	Column   string    `yaml:"column"`
	Variants []string  `yaml:"variants"`
	SizeOf   *sizeSpec `yaml:"size_of"`
}

type sizeSpec struct {
	Table      string `yaml:"table"`
	ForeignKey string `yaml:"foreign_key"`
	ParentKey  string `yaml:"parent_key"`
}

// Schema is an immutable webquery.PropertyResolver for one table, safe for concurrent use.
type Schema struct {
	table          string
	subclassColumn string
	properties     webquery.StaticResolver
}

// LoadSchemaFile reads a YAML schema from a file.
func LoadSchemaFile(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return Schema{}, errors.Join(ErrInvalidSchema, err)
	}
	defer f.Close()

	return LoadSchema(f)
}

// LoadSchema reads a YAML schema. Unknown keys are rejected.
func LoadSchema(r io.Reader) (Schema, error) {
	var file schemaFile

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&file); err != nil {
		return Schema{}, errors.Join(ErrInvalidSchema, err)
	}

	return buildSchema(file)
}

func buildSchema(file schemaFile) (Schema, error) {
	if file.Table == "" {
		return Schema{}, fmt.Errorf("%w: %w", ErrInvalidSchema, ErrEmptyTableName)
	}

	properties := make([]webquery.Property, 0, len(file.Fields))

	for _, name := range slices.Sorted(maps.Keys(file.Fields)) {
		property, err := buildProperty(name, file.Fields[name])
		if err != nil {
			return Schema{}, fmt.Errorf("%w: field %q: %w", ErrInvalidSchema, name, err)
		}

		properties = append(properties, property)
	}

	resolver, err := webquery.NewStaticResolver(properties...)
	if err != nil {
		return Schema{}, errors.Join(ErrInvalidSchema, err)
	}

	return Schema{table: file.Table, subclassColumn: file.SubclassColumn, properties: resolver}, nil
}

func buildProperty(name string, spec fieldSpec) (webquery.Property, error) {
	kind := webquery.KindInteger
	if spec.Type != "" || spec.SizeOf == nil {
		parsed, err := webquery.ParseKind(spec.Type)
		if err != nil {
			return webquery.Property{}, err
		}

		kind = parsed
	}

	fieldType := webquery.FieldType{Kind: kind}

	if kind == webquery.KindEnum {
		if len(spec.Variants) == 0 {
			return webquery.Property{}, errors.New("enum without variants")
		}

		fieldType = webquery.TypeEnum(spec.Variants...)
	}

	if spec.SizeOf == nil {
		column := spec.Column
		if column == "" {
			column = name
		}

		return webquery.Property{FieldPath: name, Type: fieldType, StorePath: Column(column)}, nil
	}

	if !fieldType.IsNumeric() {
		return webquery.Property{}, fmt.Errorf("size property must be numeric, not %s", fieldType)
	}

	if spec.SizeOf.Table == "" || spec.SizeOf.ForeignKey == "" || spec.SizeOf.ParentKey == "" {
		return webquery.Property{}, errors.New("size_of needs table, foreign_key and parent_key")
	}

	return webquery.Property{
		FieldPath:    name,
		Type:         fieldType,
		StorePath:    CollectionSize(*spec.SizeOf),
		SizeProperty: true,
	}, nil
}

func (s Schema) Resolve(fieldPath string) (webquery.Property, error) {
	return s.properties.Resolve(fieldPath)
}

func (s Schema) Table() string {
	return s.table
}

// SubclassColumn is the discriminator column for subclass filters, "" if the table has none.
func (s Schema) SubclassColumn() string {
	return s.subclassColumn
}

// FieldPaths returns all field paths in sorted order.
func (s Schema) FieldPaths() []string {
	return s.properties.FieldPaths()
}
