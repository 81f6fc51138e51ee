// Package scalar holds the lenient JSON value types used by the document
// builders.
package scalar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Text is a scalar placed verbatim into the XML. It accepts JSON strings,
// numbers and booleans so callers may send codes either way.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		return fmt.Errorf("expected scalar, got %s", b[:1])
	}
	*t = Text(b)
	return nil
}

// String returns t trimmed of surrounding whitespace.
func (t Text) String() string { return strings.TrimSpace(string(t)) }

// Empty reports whether t carries no value.
func (t Text) Empty() bool { return t.String() == "" }

// Int parses t as a base-10 integer.
func (t Text) Int() (int, error) {
	return strconv.Atoi(t.String())
}

// Or returns t, or def when t is empty.
func (t Text) Or(def string) string {
	if t.Empty() {
		return def
	}
	return t.String()
}

// Decimal is a numeric field formatted with a field-specific number of
// decimal places. JSON numbers and numeric strings are both accepted.
type Decimal float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*d = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %q", s)
	}
	*d = Decimal(v)
	return nil
}

// Format renders d with exactly places decimal digits.
func (d Decimal) Format(places int) string {
	return strconv.FormatFloat(float64(d), 'f', places, 64)
}

// Cents returns d in hundredths, rounded half away from zero.
func (d Decimal) Cents() int64 {
	return int64(math.Round(float64(d) * 100))
}

// Dec returns a pointer to v, for optional fields.
func Dec(v float64) *Decimal {
	d := Decimal(v)
	return &d
}

// List holds a repeatable member that callers may send either as a single
// object or as an array.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item T
	if err := json.Unmarshal(b, &item); err != nil {
		return err
	}
	*l = List[T]{item}
	return nil
}
