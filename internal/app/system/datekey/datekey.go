// Package datekey handles the YYYY-MM-DD keys that identify calendar days,
// and the clock that decides which day is "today" in the calendar's zone.
package datekey

import (
	"errors"
	"time"
)

// Layout is the key format.
const Layout = "2006-01-02"

// ErrInvalid is returned for strings that are not a real calendar day.
var ErrInvalid = errors.New("invalid date key")

// Parse validates s and returns midnight UTC of that day.
func Parse(s string) (time.Time, error) {
	if len(s) != len(Layout) {
		return time.Time{}, ErrInvalid
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, ErrInvalid
	}
	return t, nil
}

// Valid reports whether s is a well-formed day key.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Before reports whether day a comes strictly before day b. Both must be
// valid keys; the fixed-width format makes string order equal day order.
func Before(a, b string) bool { return a < b }

// Clock reports the current instant and the current day in a time zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a clock for loc using time.Now. A nil loc means UTC.
func NewClock(loc *time.Location) Clock {
	return NewClockAt(loc, time.Now)
}

// NewClockAt returns a clock whose instants come from now.
func NewClockAt(loc *time.Location, now func() time.Time) Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Clock{loc: loc, now: now}
}

// Now returns the current instant in UTC.
func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now().UTC()
	}
	return c.now().UTC()
}

// Today returns the current day key in the clock's zone.
func (c Clock) Today() string {
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	return c.Now().In(loc).Format(Layout)
}

// Location returns the clock's zone.
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}
