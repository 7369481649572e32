package webquery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

const (
	wildcard = "%"

	sentinelNow       = "now"
	sentinelToday     = "today"
	sentinelTomorrow  = "tomorrow"
	sentinelYesterday = "yesterday"
)

// zonedDateLayouts carry their own offset, localDateLayouts are interpreted in the Coercer's location.
var zonedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

var localDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Coercer converts raw constraint strings into typed values according to a FieldType.
//
// It is a pure function of its input plus the current time (only for the date sentinels),
// so a Coercer value can be shared between goroutines.
type Coercer struct {
	now      func() time.Time
	location *time.Location
}

// CoercerOption configures a Coercer.
type CoercerOption func(*Coercer)

// WithClock replaces time.Now as the source of "now" for the date sentinels.
func WithClock(now func() time.Time) CoercerOption {
	return func(c *Coercer) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation sets the location used for zone-less dates and for the day boundaries of the date sentinels.
func WithLocation(location *time.Location) CoercerOption {
	return func(c *Coercer) {
		if location != nil {
			c.location = location
		}
	}
}

// NewCoercer creates a Coercer, by default with time.Now and UTC.
func NewCoercer(options ...CoercerOption) Coercer {
	c := Coercer{
		now:      time.Now,
		location: time.UTC,
	}

	for _, option := range options {
		option(&c)
	}

	return c
}

// Parse converts raw into a value of the given FieldType.
//
// The resulting Go types are:
//   - String, Enum: string (for Enum the canonical variant name)
//   - Integer: int32, Short: int16, Long: int64
//   - Boolean: bool
//   - Guid: uuid.UUID
//   - Date: time.Time
func (c Coercer) Parse(ft FieldType, raw string) (any, error) {
	switch ft.Kind {
	case KindString:
		return raw, nil

	case KindInteger:
		v, err := parseInt(raw, 32)
		return int32(v), err

	case KindShort:
		v, err := parseInt(raw, 16)
		return int16(v), err

	case KindLong:
		return c.parseLong(raw)

	case KindBoolean:
		return parseBoolean(raw)

	case KindEnum:
		return parseEnum(ft.Variants, raw)

	case KindGuid:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.Join(ErrCoercionFailed, err)
		}

		return id, nil

	case KindDate:
		return c.ParseDate(raw)

	default:
		return nil, fmt.Errorf("%w: unsupported field type %s", ErrCoercionFailed, ft)
	}
}

func rejectNumericWildcard(raw string) error {
	if strings.Contains(raw, wildcard) {
		return fmt.Errorf("%w: wildcard %s is not allowed on numeric fields", ErrMalformedConstraint, wildcard)
	}

	return nil
}

func parseInt(raw string, bitSize int) (int64, error) {
	if err := rejectNumericWildcard(raw); err != nil {
		return 0, err
	}

	v, err := strconv.ParseInt(raw, 10, bitSize)
	if err != nil {
		return 0, errors.Join(ErrCoercionFailed, err)
	}

	return v, nil
}

// parseLong accepts a plain base-10 long or, for columns holding millisecond timestamps, a date string.
func (c Coercer) parseLong(raw string) (int64, error) {
	if err := rejectNumericWildcard(raw); err != nil {
		return 0, err
	}

	if looksLikeDate(raw) {
		t, err := c.ParseDate(raw)
		if err != nil {
			return 0, err
		}

		return t.UnixMilli(), nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrCoercionFailed, err)
	}

	return v, nil
}

// looksLikeDate decides whether a value for a Long field is a date string rather than a number:
// it must be at least 10 characters long and its first '-' must come after position 2.
//
// The heuristic is ambiguous for some inputs, e.g. "123-4567890" counts as a date (and then fails to parse).
func looksLikeDate(raw string) bool {
	return len(raw) >= 10 && strings.Index(raw, "-") > 2
}

func parseBoolean(raw string) (bool, error) {
	switch fold(raw) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q is not a boolean (true/yes/1, false/no/0)", ErrCoercionFailed, raw)
	}
}

func parseEnum(variants []string, raw string) (string, error) {
	if strings.Contains(raw, wildcard) {
		return "", fmt.Errorf("%w: wildcard %s is not allowed on enum fields", ErrMalformedConstraint, wildcard)
	}

	folded := fold(raw)
	for _, variant := range variants {
		if fold(variant) == folded {
			return variant, nil
		}
	}

	return "", fmt.Errorf("%w: %q is not one of [%s]", ErrCoercionFailed, raw, strings.Join(variants, ", "))
}

// ParseDate parses one of the sentinels now, today, tomorrow, yesterday (case-insensitive)
// or an ISO-8601 date or date-time.
func (c Coercer) ParseDate(raw string) (time.Time, error) {
	now := c.now().In(c.location)

	switch fold(raw) {
	case sentinelNow:
		return now, nil
	case sentinelToday:
		return startOfDay(now), nil
	case sentinelTomorrow:
		return startOfDay(now).AddDate(0, 0, 1), nil
	case sentinelYesterday:
		return startOfDay(now).AddDate(0, 0, -1), nil
	}

	for _, layout := range zonedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, c.location); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 date or date-time", ErrCoercionFailed, raw)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// fold applies Unicode case folding. A cases.Caser is stateful, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// FormatValue renders a coerced value back into its constraint-string form.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case uuid.UUID:
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
