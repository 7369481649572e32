package webquery

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Reserved parameter keys.
const (
	KeyOffset           = "_offset"
	KeyLimit            = "_limit"
	KeyOrder            = "_order"
	KeyClass            = "_class"
	KeyComputeSize      = "_computeSize"
	KeyComputeSizeAlias = "computeSize"
	KeyDepth            = "_depth"
	KeyExpand           = "_expand"
)

const (
	descendingMarker = "-"
	listSeparator    = ","
)

const (
	logMsgDefaultLimitApplied = "webquery: no limit requested, applying default"
	logMsgLimitCapped         = "webquery: requested limit exceeds maximum, capping"
	logAttrRequested          = "requested"
	logAttrLimit              = "limit"
	logAttrMaxLimit           = "max_limit"
)

// Decoder turns raw request parameters into an Envelope.
// It is immutable after construction and safe for concurrent use.
type Decoder struct {
	resolver     PropertyResolver
	coercer      Coercer
	defaultLimit int
	maxLimit     int
	logger       Logger
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder) error

// WithDefaultLimit sets the limit applied when the request has none, DefaultLimit if not set.
func WithDefaultLimit(limit int) DecoderOption {
	return func(d *Decoder) error {
		if limit < 0 {
			return fmt.Errorf("%w: negative default limit %d", ErrInvalidDecoderConfig, limit)
		}

		d.defaultLimit = limit

		return nil
	}
}

// WithMaxLimit sets the server-side ceiling for requested limits, 0 disables it.
func WithMaxLimit(limit int) DecoderOption {
	return func(d *Decoder) error {
		if limit < 0 {
			return fmt.Errorf("%w: negative max limit %d", ErrInvalidDecoderConfig, limit)
		}

		d.maxLimit = limit

		return nil
	}
}

// WithCoercer replaces the default Coercer, e.g. to use a different clock or location.
func WithCoercer(coercer Coercer) DecoderOption {
	return func(d *Decoder) error {
		d.coercer = coercer

		return nil
	}
}

// WithDecoderLogger sets a logger for paging decisions.
func WithDecoderLogger(logger Logger) DecoderOption {
	return func(d *Decoder) error {
		d.logger = logger

		return nil
	}
}

// NewDecoder creates a Decoder resolving fields with the given resolver.
func NewDecoder(resolver PropertyResolver, options ...DecoderOption) (Decoder, error) {
	if resolver == nil {
		return Decoder{}, fmt.Errorf("%w: nil property resolver", ErrInvalidDecoderConfig)
	}

	d := Decoder{
		resolver:     resolver,
		coercer:      NewCoercer(),
		defaultLimit: DefaultLimit,
	}

	for _, option := range options {
		if err := option(&d); err != nil {
			return Decoder{}, err
		}
	}

	if d.maxLimit > 0 && d.defaultLimit > d.maxLimit {
		return Decoder{}, fmt.Errorf(
			"%w: default limit %d exceeds max limit %d", ErrInvalidDecoderConfig, d.defaultLimit, d.maxLimit,
		)
	}

	return d, nil
}

// Factory returns a ConstraintFactory sharing the Decoder's resolver and coercer.
func (d Decoder) Factory() ConstraintFactory {
	return NewConstraintFactory(d.resolver, d.coercer)
}

// Resolver returns the PropertyResolver of the Decoder.
func (d Decoder) Resolver() PropertyResolver {
	return d.resolver
}

// DecodeQuery parses a URL query string like "status=active&_limit=10" and decodes it.
func (d Decoder) DecodeQuery(rawQuery string) (Envelope, error) {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Envelope{}, newConstraintError("", "", rawQuery, errors.Join(ErrMalformedConstraint, err))
	}

	return d.Decode(params)
}

// Decode builds an Envelope from a parameter map.
//
// Reserved keys set paging, ordering and hints, every other key is a field constraint.
// Several values for one field are alternatives (an Or group), distinct fields are combined with And.
// Fields are processed in sorted key order. The result is all or nothing, errors are *ConstraintError values.
func (d Decoder) Decode(params map[string][]string) (Envelope, error) {
	builder := NewEnvelopeBuilder()
	factory := d.Factory()

	limit, err := d.decodeLimit(params)
	if err != nil {
		return Envelope{}, err
	}
	builder.Limit(limit)

	offset, err := decodeNonNegative(params, KeyOffset, 0)
	if err != nil {
		return Envelope{}, err
	}
	builder.Offset(offset)

	depth, err := decodeNonNegative(params, KeyDepth, 0)
	if err != nil {
		return Envelope{}, err
	}
	builder.FetchDepth(depth)

	orderings, err := d.decodeOrderings(params[KeyOrder])
	if err != nil {
		return Envelope{}, err
	}
	builder.OrderBy(orderings...)

	if class, ok := first(params, KeyClass); ok {
		builder.Subclass(strings.TrimSpace(class))
	}

	computeSize, err := decodeComputeSize(params)
	if err != nil {
		return Envelope{}, err
	}
	builder.ComputeSize(computeSize)

	builder.Expand(splitList(params[KeyExpand])...)

	for _, key := range slices.Sorted(maps.Keys(params)) {
		if isReservedKey(key) {
			continue
		}

		if strings.HasPrefix(key, controlPrefix) {
			return Envelope{}, newConstraintError(
				key, "", strings.Join(params[key], listSeparator),
				fmt.Errorf("%w: unknown reserved key %q", ErrMalformedConstraint, key),
			)
		}

		values := params[key]
		if len(values) == 0 {
			continue
		}

		node, buildErr := factory.BuildAny(key, values)
		if buildErr != nil {
			return Envelope{}, buildErr
		}

		builder.Where(node)
	}

	envelope, err := builder.Finalize()
	if err != nil {
		return Envelope{}, newConstraintError("", "", "", err)
	}

	return envelope, nil
}

// DecodeJSON decodes the structured JSON channel with the Decoder's resolver and coercer.
// A missing limit gets the default limit and a larger one is capped, as in Decode.
func (d Decoder) DecodeJSON(data []byte) (Envelope, error) {
	return unmarshalEnvelopeJSON(data, d.resolver, d.coercer, d.effectiveLimit)
}

func (d Decoder) decodeLimit(params map[string][]string) (int, error) {
	raw, ok := first(params, KeyLimit)
	if !ok {
		return d.effectiveLimit(nil), nil
	}

	limit, err := parseNonNegative(KeyLimit, raw)
	if err != nil {
		return 0, err
	}

	return d.effectiveLimit(&limit), nil
}

// effectiveLimit applies the default limit and the max limit to a requested limit.
// Negative limits are passed through for EnvelopeBuilder.Finalize to reject.
func (d Decoder) effectiveLimit(requested *int) int {
	if requested == nil {
		if d.logger != nil {
			d.logger.Debug(logMsgDefaultLimitApplied, logAttrLimit, d.defaultLimit)
		}

		return d.defaultLimit
	}

	if d.maxLimit > 0 && *requested > d.maxLimit {
		if d.logger != nil {
			d.logger.Debug(logMsgLimitCapped, logAttrRequested, *requested, logAttrMaxLimit, d.maxLimit)
		}

		return d.maxLimit
	}

	return *requested
}

func (d Decoder) decodeOrderings(values []string) ([]Ordering, error) {
	var orderings []Ordering

	for _, entry := range splitList(values) {
		fieldPath, descending := strings.CutPrefix(entry, descendingMarker)

		property, err := resolve(d.resolver, fieldPath)
		if err != nil {
			return nil, newConstraintError(KeyOrder, "", entry, err)
		}

		orderings = append(orderings, NewOrdering(property, !descending))
	}

	return orderings, nil
}

func decodeNonNegative(params map[string][]string, key string, fallback int) (int, error) {
	raw, ok := first(params, key)
	if !ok {
		return fallback, nil
	}

	return parseNonNegative(key, raw)
}

func parseNonNegative(key string, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, newConstraintError(key, "", raw, errors.Join(ErrInvalidPaging, err))
	}

	if n < 0 {
		return 0, newConstraintError(key, "", raw, fmt.Errorf("%w: must not be negative", ErrInvalidPaging))
	}

	return n, nil
}

func decodeComputeSize(params map[string][]string) (bool, error) {
	for _, key := range []string{KeyComputeSize, KeyComputeSizeAlias} {
		raw, ok := first(params, key)
		if !ok {
			continue
		}

		if strings.TrimSpace(raw) == "" {
			return true, nil
		}

		computeSize, err := parseBoolean(strings.TrimSpace(raw))
		if err != nil {
			return false, newConstraintError(key, "", raw, err)
		}

		return computeSize, nil
	}

	return false, nil
}

func isReservedKey(key string) bool {
	switch key {
	case KeyOffset, KeyLimit, KeyOrder, KeyClass, KeyComputeSize, KeyComputeSizeAlias, KeyDepth, KeyExpand:
		return true
	default:
		return false
	}
}

func first(params map[string][]string, key string) (string, bool) {
	values, ok := params[key]
	if !ok || len(values) == 0 {
		return "", false
	}

	return values[0], true
}

// splitList flattens multi-value and comma separated lists, dropping blank entries.
func splitList(values []string) []string {
	var entries []string

	for _, value := range values {
		for _, entry := range strings.Split(value, listSeparator) {
			if entry = strings.TrimSpace(entry); entry != "" {
				entries = append(entries, entry)
			}
		}
	}

	return entries
}
