// Package hwm provides the high-water-mark value model for incremental
// reads: typed watermark values with ordered comparison, step arithmetic,
// stable serialization, and SQL literal rendering, plus the registry that
// maps native column types to watermark kinds.
package hwm

import (
	"math"
	"strconv"
	"time"

	"github.com/tidemark-io/tidemark/pkg/errors"
)

// Kind identifies the type family of a high-water-mark value.
// Floating point kinds are intentionally absent: step arithmetic and
// "next value" semantics are undefined for continuous values.
type Kind string

const (
	// KindInt is the integer high-water-mark kind
	KindInt Kind = "integer"
	// KindDate is the calendar date high-water-mark kind
	KindDate Kind = "date"
	// KindTimestamp is the date-time high-water-mark kind
	KindTimestamp Kind = "timestamp"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999"
)

// Value is a typed high-water-mark value. Implementations support ordered
// comparison against values of the same kind, addition of a compatible
// Step, a stable serialization form (String, inverted by ParseValue) and
// a SQL literal rendering (Literal).
type Value interface {
	// Kind returns the value's type family
	Kind() Kind
	// Compare returns -1, 0 or 1; comparing across kinds is an error
	Compare(other Value) (int, error)
	// Add returns a new value advanced by step
	Add(step Step) (Value, error)
	// Literal renders the value as a SQL literal with type-aware quoting
	Literal() string
	// String returns the stable serialization form
	String() string
}

// IntValue is an integer high-water-mark value
type IntValue int64

// Int creates an integer high-water-mark value
func Int(v int64) IntValue { return IntValue(v) }

// Kind implements Value
func (v IntValue) Kind() Kind { return KindInt }

// Compare implements Value
func (v IntValue) Compare(other Value) (int, error) {
	o, ok := other.(IntValue)
	if !ok {
		return 0, compareError(v, other)
	}
	switch {
	case v < o:
		return -1, nil
	case v > o:
		return 1, nil
	}
	return 0, nil
}

// Add implements Value
func (v IntValue) Add(step Step) (Value, error) {
	s, ok := step.(IntStep)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"integer high-water-mark requires an integer step, got %T", step)
	}
	return v + IntValue(s), nil
}

// Literal implements Value; integers render unquoted
func (v IntValue) Literal() string { return strconv.FormatInt(int64(v), 10) }

// String implements Value
func (v IntValue) String() string { return strconv.FormatInt(int64(v), 10) }

// DateValue is a calendar date high-water-mark value with day granularity
type DateValue struct {
	t time.Time
}

// Date creates a date high-water-mark value
func Date(year int, month time.Month, day int) DateValue {
	return DateValue{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to a date high-water-mark value
func DateOf(t time.Time) DateValue {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Time returns the date as a UTC midnight time.Time
func (v DateValue) Time() time.Time { return v.t }

// Kind implements Value
func (v DateValue) Kind() Kind { return KindDate }

// Compare implements Value
func (v DateValue) Compare(other Value) (int, error) {
	o, ok := other.(DateValue)
	if !ok {
		return 0, compareError(v, other)
	}
	switch {
	case v.t.Before(o.t):
		return -1, nil
	case v.t.After(o.t):
		return 1, nil
	}
	return 0, nil
}

// Add implements Value. The step must be a whole number of days: a date
// high-water-mark has day granularity, so a finer step would produce
// boundaries the column cannot distinguish.
func (v DateValue) Add(step Step) (Value, error) {
	s, ok := step.(DurationStep)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"date high-water-mark requires a duration step, got %T", step)
	}
	d := time.Duration(s)
	if d%(24*time.Hour) != 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"date high-water-mark requires a whole number of days, got %s", d)
	}
	days := int(d / (24 * time.Hour))
	return DateValue{t: v.t.AddDate(0, 0, days)}, nil
}

// Literal implements Value; dates render as 'YYYY-MM-DD'
func (v DateValue) Literal() string { return "'" + v.t.Format(dateLayout) + "'" }

// String implements Value
func (v DateValue) String() string { return v.t.Format(dateLayout) }

// TimestampValue is a date-time high-water-mark value with microsecond
// granularity
type TimestampValue struct {
	t time.Time
}

// Timestamp creates a timestamp high-water-mark value
func Timestamp(t time.Time) TimestampValue {
	return TimestampValue{t: t.UTC().Truncate(time.Microsecond)}
}

// Time returns the timestamp as a UTC time.Time
func (v TimestampValue) Time() time.Time { return v.t }

// Kind implements Value
func (v TimestampValue) Kind() Kind { return KindTimestamp }

// Compare implements Value
func (v TimestampValue) Compare(other Value) (int, error) {
	o, ok := other.(TimestampValue)
	if !ok {
		return 0, compareError(v, other)
	}
	switch {
	case v.t.Before(o.t):
		return -1, nil
	case v.t.After(o.t):
		return 1, nil
	}
	return 0, nil
}

// Add implements Value
func (v TimestampValue) Add(step Step) (Value, error) {
	s, ok := step.(DurationStep)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"timestamp high-water-mark requires a duration step, got %T", step)
	}
	return TimestampValue{t: v.t.Add(time.Duration(s))}, nil
}

// Literal implements Value; timestamps render with the ANSI cast prefix
// so engines parse them with full precision
func (v TimestampValue) Literal() string {
	return "TIMESTAMP '" + v.t.Format(timestampLayout) + "'"
}

// String implements Value
func (v TimestampValue) String() string { return v.t.Format(time.RFC3339Nano) }

// ParseValue parses the stable serialization form produced by
// Value.String back into a Value. Unknown kinds fail with a data error so
// persisted records written by a newer version are rejected instead of
// being misread.
func ParseValue(kind Kind, s string) (Value, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid integer high-water-mark value")
		}
		return Int(n), nil
	case KindDate:
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid date high-water-mark value")
		}
		return DateOf(t), nil
	case KindTimestamp:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid timestamp high-water-mark value")
		}
		return Timestamp(t), nil
	}
	return nil, errors.Newf(errors.ErrorTypeData, "unknown high-water-mark kind %q", string(kind))
}

// FromScalar converts a scalar returned by an execution engine into a
// Value of the given kind. Integer conversions reject floating point
// scalars with a fractional part: the column's runtime values are only
// known after the first query, so this is where a fractional column
// surfaces.
func FromScalar(kind Kind, v interface{}) (Value, error) {
	switch kind {
	case KindInt:
		return intFromScalar(v)
	case KindDate:
		return dateFromScalar(v)
	case KindTimestamp:
		return timestampFromScalar(v)
	}
	return nil, errors.Newf(errors.ErrorTypeData, "unknown high-water-mark kind %q", string(kind))
}

func intFromScalar(v interface{}) (Value, error) {
	switch n := v.(type) {
	case int64:
		return Int(n), nil
	case int:
		return Int(int64(n)), nil
	case int32:
		return Int(int64(n)), nil
	case int16:
		return Int(int64(n)), nil
	case int8:
		return Int(int64(n)), nil
	case uint32:
		return Int(int64(n)), nil
	case float64:
		if math.Trunc(n) != n {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"fractional value %v cannot be used as an integer high-water-mark", n)
		}
		return Int(int64(n)), nil
	case float32:
		return intFromScalar(float64(n))
	case []byte:
		return intFromScalar(string(n))
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid integer scalar")
		}
		return Int(parsed), nil
	}
	return nil, errors.Newf(errors.ErrorTypeData, "cannot use %T as an integer high-water-mark", v)
}

func dateFromScalar(v interface{}) (Value, error) {
	switch t := v.(type) {
	case time.Time:
		return DateOf(t), nil
	case []byte:
		return dateFromScalar(string(t))
	case string:
		parsed, err := time.Parse(dateLayout, t)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid date scalar")
		}
		return DateOf(parsed), nil
	}
	return nil, errors.Newf(errors.ErrorTypeData, "cannot use %T as a date high-water-mark", v)
}

func timestampFromScalar(v interface{}) (Value, error) {
	switch t := v.(type) {
	case time.Time:
		return Timestamp(t), nil
	case []byte:
		return timestampFromScalar(string(t))
	case string:
		for _, layout := range []string{time.RFC3339Nano, timestampLayout, dateLayout} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return Timestamp(parsed), nil
			}
		}
		return nil, errors.Newf(errors.ErrorTypeData, "invalid timestamp scalar %q", t)
	}
	return nil, errors.Newf(errors.ErrorTypeData, "cannot use %T as a timestamp high-water-mark", v)
}

func compareError(v Value, other Value) error {
	if other == nil {
		return errors.New(errors.ErrorTypeValidation, "cannot compare against a nil high-water-mark value")
	}
	return errors.Newf(errors.ErrorTypeValidation,
		"cannot compare %s high-water-mark with %s", v.Kind(), other.Kind())
}
