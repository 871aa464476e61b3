package dates

import (
	"fmt"
	"time"
)

// ISOLayout is the calendar-date layout used for every record key.
const ISOLayout = "2006-01-02"

// Clock resolves "now" in a fixed time zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a clock reporting wall time in loc.
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// LoadClock creates a clock for an IANA zone name, falling back to UTC.
func LoadClock(zone string) (*Clock, error) {
	if zone == "" {
		return NewClock(time.UTC), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return NewClock(time.UTC), fmt.Errorf("unknown time zone %q: %w", zone, err)
	}
	return NewClock(loc), nil
}

// FixedClock always reports t. Used by tests and replays.
func FixedClock(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

// Now returns the current instant in the clock's zone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Location returns the clock's zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Today returns the current calendar date as a zone-free date value.
func (c *Clock) Today() time.Time {
	n := c.Now()
	return Date(n.Year(), n.Month(), n.Day())
}

// TodayISO returns the current calendar date formatted as YYYY-MM-DD.
func (c *Clock) TodayISO() string {
	return FormatISO(c.Today())
}

// Date builds a calendar date at midnight UTC. Calendar arithmetic is done in UTC
// so that DST transitions never shift a day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseISO parses a YYYY-MM-DD date.
func ParseISO(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ISOLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO date %q: %w", s, err)
	}
	return t, nil
}

// FormatISO formats t as YYYY-MM-DD.
func FormatISO(t time.Time) string {
	return t.Format(ISOLayout)
}

// AddDaysISO shifts an ISO date by n calendar days. Invalid input yields "".
func AddDaysISO(iso string, n int) string {
	t, err := ParseISO(iso)
	if err != nil {
		return ""
	}
	return FormatISO(t.AddDate(0, 0, n))
}

// WeekStart snaps t to the Monday of its week (00:00).
func WeekStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()-MondayIndex(t), 0, 0, 0, 0, t.Location())
}

// WeekEnd snaps t to the last nanosecond of the Sunday of its week.
func WeekEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+6-MondayIndex(t), 23, 59, 59, 999999999, t.Location())
}

// WeekdayIndex returns 0=Sunday..6=Saturday.
func WeekdayIndex(t time.Time) int {
	return int(t.Weekday())
}

// MondayIndex returns 0=Monday..6=Sunday.
func MondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// MondayIndexISO is MondayIndex for an ISO date; invalid input yields -1.
func MondayIndexISO(iso string) int {
	t, err := ParseISO(iso)
	if err != nil {
		return -1
	}
	return MondayIndex(t)
}

// InRange reports whether iso lies within [start, end] inclusive, compared as dates.
func InRange(iso string, start, end time.Time) bool {
	t, err := ParseISO(iso)
	if err != nil {
		return false
	}
	s := Date(start.Year(), start.Month(), start.Day())
	e := Date(end.Year(), end.Month(), end.Day())
	return !t.Before(s) && !t.After(e)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	da := Date(a.Year(), a.Month(), a.Day())
	db := Date(b.Year(), b.Month(), b.Day())
	return int(db.Sub(da).Hours() / 24)
}
