// Package timefmt renders and parses the timestamp format the API exposes
// for created_at fields. The format is a fixed pattern, implemented as a
// stateless encode/decode pair rather than mutable serializer configuration.
package timefmt

import (
	"errors"
	"strings"
	"time"
)

// Layout is the wire format for timestamps: day-month-year, 24h clock.
const Layout = "02-01-2006 15:04:05"

// Encode renders t in the wire format.
func Encode(t time.Time) string {
	return t.Format(Layout)
}

// Decode parses a wire-format timestamp.
func Decode(s string) (time.Time, error) {
	return time.Parse(Layout, s)
}

// Timestamp is a time.Time that marshals to and from the wire format.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return nil, errors.New("timefmt: cannot encode zero timestamp")
	}
	return []byte(`"` + Encode(time.Time(t)) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return errors.New("timefmt: cannot decode empty timestamp")
	}
	parsed, err := Decode(s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

func (t Timestamp) Time() time.Time { return time.Time(t) }
