// FILE: lixenwraith/sectcfg/millitime.go
package sectcfg

import (
	"fmt"
	"reflect"
	"time"
)

// MilliTimeLayout is the rendering used by MilliTime: ISO-8601 with exactly three
// fractional digits.
const MilliTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var milliTimeType = reflect.TypeOf(MilliTime{})

// parse layouts, tried in order. Fractional seconds are accepted by time.Parse
// after the seconds field even when the layout omits them.
var milliTimeParseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// MilliTime is a timestamp with millisecond precision. It never carries
// sub-millisecond digits: constructors and parsers reject them instead of rounding.
type MilliTime struct {
	t time.Time
}

// NewMilliTime builds a MilliTime from calendar fields. millisecond must be in [0, 999].
func NewMilliTime(year int, month time.Month, day, hour, minute, second, millisecond int, loc *time.Location) (MilliTime, error) {
	if millisecond < 0 || millisecond > 999 {
		return MilliTime{}, fmt.Errorf("%w: %d", ErrMillisecondRange, millisecond)
	}
	if loc == nil {
		loc = time.UTC
	}
	return MilliTime{t: time.Date(year, month, day, hour, minute, second, millisecond*int(time.Millisecond), loc)}, nil
}

// MilliTimeFrom wraps t, failing when t has precision finer than a millisecond.
func MilliTimeFrom(t time.Time) (MilliTime, error) {
	if t.Nanosecond()%int(time.Millisecond) != 0 {
		return MilliTime{}, fmt.Errorf("time %s has sub-millisecond precision", t.Format(time.RFC3339Nano))
	}
	return MilliTime{t: t}, nil
}

// ParseMilliTime parses an ISO-8601 timestamp. Inputs without a zone are read as UTC.
func ParseMilliTime(s string) (MilliTime, error) {
	var lastErr error
	for _, layout := range milliTimeParseLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			lastErr = err
			continue
		}
		return MilliTimeFrom(t)
	}
	return MilliTime{}, fmt.Errorf("invalid millisecond timestamp %q: %w", s, lastErr)
}

// Time returns the underlying time.
func (m MilliTime) Time() time.Time { return m.t }

// Millisecond returns the millisecond component in [0, 999].
func (m MilliTime) Millisecond() int { return m.t.Nanosecond() / int(time.Millisecond) }

// IsZero reports whether m holds the zero time.
func (m MilliTime) IsZero() bool { return m.t.IsZero() }

// Equal reports whether both values denote the same instant.
func (m MilliTime) Equal(o MilliTime) bool { return m.t.Equal(o.t) }

func (m MilliTime) String() string { return m.t.Format(MilliTimeLayout) }

// MarshalText implements encoding.TextMarshaler.
func (m MilliTime) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MilliTime) UnmarshalText(text []byte) error {
	parsed, err := ParseMilliTime(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
