package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// DayLayout is the calendar-day key format.
const DayLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DayLayout,
}

var floatingLocation atomic.Pointer[time.Location]

// SetLocation sets the zone for inputs that carry no offset, such as plain
// days and datetime-local values. The default is UTC.
func SetLocation(loc *time.Location) {
	floatingLocation.Store(loc)
}

func location() *time.Location {
	if loc := floatingLocation.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

// Date is a point in time that accepts the loose formats browsers send.
type Date struct {
	time.Time
}

// NewDate returns midnight UTC of the given day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses RFC 3339 timestamps, datetime-local values and plain days.
// Values without an offset are read in the zone set by SetLocation.
func ParseDate(s string) (Date, error) {
	loc := location()
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// DayKey is the calendar day of d in loc.
func (d Date) DayKey(loc *time.Location) string {
	return d.In(loc).Format(DayLayout)
}

// SameMonth reports whether d falls in the month and year of ref, using ref's location.
func (d Date) SameMonth(ref time.Time) bool {
	local := d.In(ref.Location())
	return local.Year() == ref.Year() && local.Month() == ref.Month()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339Nano))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: expected string", ErrInvalidDate)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
