package models

import (
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout is the ISO local date-time used on the wire.
const DateTimeLayout = "2006-01-02T15:04:05"

var inputLayouts = []string{
	DateTimeLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// DateTime is a time.Time rendered without zone, in local time.
type DateTime struct {
	time.Time
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Local().Format(DateTimeLayout) + `"`), nil
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDateTime(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ParseDateTime accepts local ISO date-times and RFC 3339 timestamps.
func ParseDateTime(raw string) (time.Time, error) {
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q; expected %s", raw, DateTimeLayout)
}
