package legacy

import (
	"strconv"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

// MapBuilder accumulates a FlatMap the way legacy callers did, one constraint at a time.
// It is not safe for concurrent use and can be built exactly once, any use after Build panics.
type MapBuilder struct {
	m     FlatMap
	built bool
}

func NewMapBuilder() *MapBuilder {
	return &MapBuilder{m: FlatMap{}}
}

// Add appends encoded constraints for a field, several values are alternatives.
func (b *MapBuilder) Add(field string, encoded ...string) *MapBuilder {
	b.mustBeOpen()
	b.m[field] = append(b.m[field], encoded...)

	return b
}

func (b *MapBuilder) AddNull(field string) *MapBuilder {
	return b.Add(field, webquery.OpIsNull.Tag())
}

func (b *MapBuilder) AddNotNull(field string) *MapBuilder {
	return b.Add(field, webquery.OpNotNull.Tag())
}

// AddRange appends a range constraint, an empty bound is open.
func (b *MapBuilder) AddRange(field string, from string, to string) *MapBuilder {
	return b.Add(field, rangeTag+webquery.JoinRange(from, to))
}

func (b *MapBuilder) Offset(offset int) *MapBuilder {
	return b.set(webquery.KeyOffset, strconv.Itoa(offset))
}

func (b *MapBuilder) Limit(limit int) *MapBuilder {
	return b.set(webquery.KeyLimit, strconv.Itoa(limit))
}

// Order appends sort keys, a leading "-" means descending.
func (b *MapBuilder) Order(fields ...string) *MapBuilder {
	return b.Add(webquery.KeyOrder, fields...)
}

func (b *MapBuilder) Class(name string) *MapBuilder {
	return b.set(webquery.KeyClass, name)
}

func (b *MapBuilder) ComputeSize(computeSize bool) *MapBuilder {
	return b.set(webquery.KeyComputeSize, strconv.FormatBool(computeSize))
}

// Build finalizes the builder and returns the map.
func (b *MapBuilder) Build() FlatMap {
	b.mustBeOpen()
	b.built = true

	return b.m.Clone()
}

func (b *MapBuilder) set(key string, value string) *MapBuilder {
	b.mustBeOpen()
	b.m[key] = []string{value}

	return b
}

func (b *MapBuilder) mustBeOpen() {
	if b.built {
		panic("legacy: MapBuilder used after Build")
	}
}
