package webquery

import (
	"fmt"
	"slices"
)

// DefaultLimit is applied when a request does not carry a limit.
const DefaultLimit = 200

// Ordering is one sort key, the first Ordering of an Envelope is the primary one.
type Ordering struct {
	fieldPath string
	storePath StorePath
	ascending bool
}

// NewOrdering creates an Ordering on the given property.
func NewOrdering(property Property, ascending bool) Ordering {
	storePath := property.StorePath
	if storePath == nil {
		storePath = Path(property.FieldPath)
	}

	return Ordering{fieldPath: property.FieldPath, storePath: storePath, ascending: ascending}
}

func (o Ordering) FieldPath() string {
	return o.fieldPath
}

func (o Ordering) StorePath() StorePath {
	return o.storePath
}

func (o Ordering) IsAscending() bool {
	return o.ascending
}

func (o Ordering) String() string {
	if o.ascending {
		return o.fieldPath
	}

	return descendingMarker + o.fieldPath
}

// Envelope is a decoded request-level query: the predicate tree plus paging, ordering and fetch hints.
// It is immutable and safe to pass around by value.
type Envelope struct {
	constraints    Group
	orderings      []Ordering
	limit          int
	offset         int
	computeSize    bool
	subclassFilter string
	fetchDepth     int
	expand         []string
}

// Constraints is the top-level predicate tree, an And group unless built otherwise.
func (e Envelope) Constraints() Group {
	return e.constraints
}

func (e Envelope) Orderings() []Ordering {
	return slices.Clone(e.orderings)
}

func (e Envelope) Limit() int {
	return e.limit
}

func (e Envelope) Offset() int {
	return e.offset
}

// ComputeSize reports whether the caller wants the total number of matches, ignoring limit and offset.
func (e Envelope) ComputeSize() bool {
	return e.computeSize
}

// SubclassFilter returns the requested subtype, ok is false if results are not restricted to one.
func (e Envelope) SubclassFilter() (string, bool) {
	return e.subclassFilter, e.subclassFilter != ""
}

func (e Envelope) FetchDepth() int {
	return e.fetchDepth
}

func (e Envelope) Expand() []string {
	return slices.Clone(e.expand)
}

// EnvelopeBuilder accumulates the parts of an Envelope.
// It must be confined to one goroutine, Finalize copies everything out of it.
type EnvelopeBuilder struct {
	envelope Envelope
}

// NewEnvelopeBuilder creates a builder with an empty And group, offset 0 and DefaultLimit.
func NewEnvelopeBuilder() *EnvelopeBuilder {
	return &EnvelopeBuilder{
		envelope: Envelope{
			constraints: And(),
			limit:       DefaultLimit,
		},
	}
}

// Where appends constraints to the top-level group.
func (b *EnvelopeBuilder) Where(nodes ...Node) *EnvelopeBuilder {
	b.envelope.constraints = b.envelope.constraints.With(nodes...)

	return b
}

// Constraints replaces the top-level group, e.g. with an Or group.
func (b *EnvelopeBuilder) Constraints(group Group) *EnvelopeBuilder {
	b.envelope.constraints = group

	return b
}

func (b *EnvelopeBuilder) OrderBy(orderings ...Ordering) *EnvelopeBuilder {
	b.envelope.orderings = append(b.envelope.orderings, orderings...)

	return b
}

func (b *EnvelopeBuilder) Limit(limit int) *EnvelopeBuilder {
	b.envelope.limit = limit

	return b
}

func (b *EnvelopeBuilder) Offset(offset int) *EnvelopeBuilder {
	b.envelope.offset = offset

	return b
}

func (b *EnvelopeBuilder) ComputeSize(computeSize bool) *EnvelopeBuilder {
	b.envelope.computeSize = computeSize

	return b
}

func (b *EnvelopeBuilder) Subclass(name string) *EnvelopeBuilder {
	b.envelope.subclassFilter = name

	return b
}

func (b *EnvelopeBuilder) FetchDepth(depth int) *EnvelopeBuilder {
	b.envelope.fetchDepth = depth

	return b
}

func (b *EnvelopeBuilder) Expand(paths ...string) *EnvelopeBuilder {
	b.envelope.expand = append(b.envelope.expand, paths...)

	return b
}

// Finalize validates the accumulated values and returns an independent Envelope.
func (b *EnvelopeBuilder) Finalize() (Envelope, error) {
	e := b.envelope

	if e.limit < 0 {
		return Envelope{}, fmt.Errorf("%w: limit %d is negative", ErrInvalidPaging, e.limit)
	}

	if e.offset < 0 {
		return Envelope{}, fmt.Errorf("%w: offset %d is negative", ErrInvalidPaging, e.offset)
	}

	if e.fetchDepth < 0 {
		return Envelope{}, fmt.Errorf("%w: fetch depth %d is negative", ErrInvalidPaging, e.fetchDepth)
	}

	e.constraints = Group{kind: e.constraints.kind, children: slices.Clone(e.constraints.children)}
	e.orderings = slices.Clone(e.orderings)
	e.expand = slices.Clone(e.expand)

	return e, nil
}
