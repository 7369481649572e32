// Package legacy converts between the structured webquery.Envelope and the older flat map
// representation, where every field maps to a list of encoded constraints and paging travels
// in reserved pseudo-fields.
//
// The flat map can only express "field matches value1 OR value2 OR ..." per field and an AND over
// distinct fields, so the downgrade is partial: ToLegacyMap fails with ErrLegacyDowngrade for richer
// queries, and callers are expected to fall back to the structured channel then.
package legacy

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

var ErrLegacyDowngrade = errors.New("query cannot be represented as a legacy flat map")

// Suffixes of the historical "<field>_null" and "<field>_notnull" keys.
const (
	NullSuffix    = "_null"
	NotNullSuffix = "_notnull"
)

const (
	eqTag    = "_f_eq_"
	neqTag   = "_f_neq_"
	rangeTag = "_f_range_"
)

// FlatMap maps field names and reserved keys to encoded values.
// It is built once per request and must not be mutated after it was converted.
type FlatMap map[string][]string

// Clone returns a deep copy.
func (m FlatMap) Clone() FlatMap {
	clone := make(FlatMap, len(m))
	for key, values := range m {
		clone[key] = slices.Clone(values)
	}

	return clone
}

// Encode renders the map as a URL query string with sorted keys.
func (m FlatMap) Encode() string {
	return url.Values(m).Encode()
}

// Keys returns the keys in sorted order.
func (m FlatMap) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// ToLegacyMap downgrades an Envelope.
//
// The top-level group may contain leaves and Or groups of leaves; an Or group must constrain exactly
// one field, and each field may appear only once. Nested And groups, deeper nesting, Gt/Lt and the
// property reference operators have no flat representation.
func ToLegacyMap(envelope webquery.Envelope) (FlatMap, error) {
	m := FlatMap{}

	if err := downgradeConstraints(m, envelope.Constraints()); err != nil {
		return nil, err
	}

	m[webquery.KeyOffset] = []string{strconv.Itoa(envelope.Offset())}
	m[webquery.KeyLimit] = []string{strconv.Itoa(envelope.Limit())}

	for _, ordering := range envelope.Orderings() {
		m[webquery.KeyOrder] = append(m[webquery.KeyOrder], ordering.String())
	}

	if class, ok := envelope.SubclassFilter(); ok {
		m[webquery.KeyClass] = []string{class}
	}

	if envelope.ComputeSize() {
		m[webquery.KeyComputeSize] = []string{strconv.FormatBool(true)}
	}

	if envelope.FetchDepth() > 0 {
		m[webquery.KeyDepth] = []string{strconv.Itoa(envelope.FetchDepth())}
	}

	if expand := envelope.Expand(); len(expand) > 0 {
		m[webquery.KeyExpand] = []string{strings.Join(expand, ",")}
	}

	return m, nil
}

func downgradeConstraints(m FlatMap, top webquery.Group) error {
	if top.Kind() == webquery.GroupOr {
		return downgradeOrGroup(m, top)
	}

	for _, child := range top.Children() {
		switch node := child.(type) {
		case webquery.Leaf:
			if err := addLeaves(m, []webquery.Leaf{node}); err != nil {
				return err
			}

		case webquery.Group:
			if node.Kind() != webquery.GroupOr {
				return fmt.Errorf("%w: nested %s group %s", ErrLegacyDowngrade, node.Kind(), node)
			}

			if err := downgradeOrGroup(m, node); err != nil {
				return err
			}
		}
	}

	return nil
}

func downgradeOrGroup(m FlatMap, group webquery.Group) error {
	leaves := make([]webquery.Leaf, 0, group.Len())

	for _, child := range group.Children() {
		leaf, ok := child.(webquery.Leaf)
		if !ok {
			return fmt.Errorf("%w: group %s contains a nested group", ErrLegacyDowngrade, group)
		}

		leaves = append(leaves, leaf)
	}

	if len(leaves) == 0 {
		return nil
	}

	if fields := distinctFields(leaves); len(fields) != 1 {
		return fmt.Errorf(
			"%w: or group spans the fields [%s], only groups on one field can be converted",
			ErrLegacyDowngrade, strings.Join(fields, ", "),
		)
	}

	return addLeaves(m, leaves)
}

func distinctFields(leaves []webquery.Leaf) []string {
	fields := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		fields = append(fields, leaf.FieldPath())
	}

	slices.Sort(fields)

	return slices.Compact(fields)
}

// addLeaves adds leaves that all constrain the same field.
func addLeaves(m FlatMap, leaves []webquery.Leaf) error {
	field := leaves[0].FieldPath()

	if _, exists := m[field]; exists {
		return fmt.Errorf("%w: field %q is constrained more than once", ErrLegacyDowngrade, field)
	}

	values := make([]string, 0, len(leaves))

	for _, leaf := range leaves {
		encoded, err := encodeLeaf(leaf)
		if err != nil {
			return err
		}

		values = append(values, encoded)
	}

	m[field] = values

	return nil
}

func encodeLeaf(leaf webquery.Leaf) (string, error) {
	value := webquery.FormatValue(leaf.Value())

	switch leaf.Operator() {
	case webquery.OpEq:
		if strings.HasPrefix(value, "_") {
			return eqTag + value, nil
		}

		return value, nil

	case webquery.OpNeq:
		return neqTag + value, nil

	case webquery.OpIsNull, webquery.OpNotNull:
		return leaf.Operator().Tag(), nil

	case webquery.OpStartsWith, webquery.OpContains:
		return leaf.Operator().Tag() + value, nil

	case webquery.OpRange:
		from, to := leaf.Bounds()
		return encodeRange(leaf, webquery.FormatValue(from), webquery.FormatValue(to))

	case webquery.OpGe:
		return encodeRange(leaf, value, "")

	case webquery.OpLe:
		return encodeRange(leaf, "", value)

	default:
		return "", fmt.Errorf("%w: operator %s on %q has no legacy encoding", ErrLegacyDowngrade, leaf.Operator(), leaf.FieldPath())
	}
}

func encodeRange(leaf webquery.Leaf, from string, to string) (string, error) {
	if strings.Contains(from, webquery.RangeSeparator) || strings.Contains(to, webquery.RangeSeparator) {
		return "", fmt.Errorf("%w: range bound on %q contains the range separator", ErrLegacyDowngrade, leaf.FieldPath())
	}

	return rangeTag + webquery.JoinRange(from, to), nil
}

// FromLegacyMap rebuilds an Envelope from a flat map.
//
// Besides the regular constraint grammar it understands the historical "<field>_null" and
// "<field>_notnull" keys, as long as the full key is not itself a known field.
func FromLegacyMap(m FlatMap, resolver webquery.PropertyResolver, options ...webquery.DecoderOption) (webquery.Envelope, error) {
	decoder, err := webquery.NewDecoder(resolver, options...)
	if err != nil {
		return webquery.Envelope{}, err
	}

	return decoder.Decode(normalizeSuffixKeys(m, resolver))
}

func normalizeSuffixKeys(m FlatMap, resolver webquery.PropertyResolver) map[string][]string {
	params := make(map[string][]string, len(m))

	for _, key := range m.Keys() {
		field, token, ok := splitSuffixKey(key, resolver)
		if !ok {
			params[key] = append(params[key], m[key]...)
			continue
		}

		params[field] = append(params[field], token)
	}

	return params
}

func splitSuffixKey(key string, resolver webquery.PropertyResolver) (string, string, bool) {
	if strings.HasPrefix(key, "_") {
		return "", "", false
	}

	for _, suffix := range []string{NotNullSuffix, NullSuffix} {
		field, found := strings.CutSuffix(key, suffix)
		if !found || field == "" {
			continue
		}

		if _, err := resolver.Resolve(key); err == nil {
			return "", "", false
		}

		if _, err := resolver.Resolve(field); err != nil {
			return "", "", false
		}

		return field, suffix, true
	}

	return "", "", false
}
