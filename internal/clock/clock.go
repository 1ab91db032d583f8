// Package clock defines the time reference used for every "today" and
// "current hour" decision: a fixed UTC offset, not an IANA zone.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the logical-day format used in comparisons and ledger keys.
const DateLayout = "2006-01-02"

// TimestampLayout is the zone-less local form the web UI writes for timed
// due values.
const TimestampLayout = "2006-01-02T15:04:05"

type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewFixed returns a clock pinned to UTC+offsetHours.
func NewFixed(offsetHours int) *Clock {
	name := fmt.Sprintf("UTC%+d", offsetHours)
	return &Clock{
		loc: time.FixedZone(name, offsetHours*60*60),
		now: time.Now,
	}
}

// WithNow replaces the time source. Used by tests and one-shot commands.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	return &Clock{loc: c.loc, now: now}
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the logical date of t as YYYY-MM-DD.
func (c *Clock) Today(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// Hour returns the local hour of t.
func (c *Clock) Hour(t time.Time) int {
	return t.In(c.loc).Hour()
}

// NextAt returns the first instant strictly after t whose local wall clock
// reads hour:minute.
func (c *Clock) NextAt(t time.Time, hour, minute int) time.Time {
	local := t.In(c.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, c.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// AddDays shifts a YYYY-MM-DD date by n days. Invalid input yields "".
func AddDays(date string, n int) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, n).Format(DateLayout)
}

// ParseHHMM parses "HH:MM" (minutes optional).
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	if len(parts) == 2 {
		minute, err = strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("invalid time of day %q", s)
		}
	}
	return hour, minute, nil
}
