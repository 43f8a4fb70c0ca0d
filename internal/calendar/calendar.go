// Package calendar holds the date arithmetic shared by the screener.
//
// Every date is normalised to midnight UTC so that day counts never depend on
// the host time zone. Callers obtain "today" once at the composition root and
// thread it explicitly through the pipeline.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the ISO date layout used on every boundary (CSV, JSON, CLI).
const DateLayout = "2006-01-02"

// Date builds a normalised calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock part of t, keeping its wall-calendar day.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Today resolves the current calendar day in loc.
// Only composition roots (commands, scheduled jobs) should call this.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Truncate(time.Now().In(loc))
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a date in DateLayout.
func Format(t time.Time) string {
	return Truncate(t).Format(DateLayout)
}

// DaysBetween returns the signed number of calendar days from -> to.
func DaysBetween(from, to time.Time) int {
	return int(Truncate(to).Sub(Truncate(from)).Hours() / 24)
}

// DTE returns calendar days to expiration, floored at zero.
func DTE(expiration, today time.Time) int {
	days := DaysBetween(today, expiration)
	if days < 0 {
		return 0
	}
	return days
}

// IsThirdFriday reports whether d is the third Friday of its month
// (standard monthly options expiration).
func IsThirdFriday(d time.Time) bool {
	d = Truncate(d)
	if d.Weekday() != time.Friday {
		return false
	}
	first := Date(d.Year(), d.Month(), 1)
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	third := first.AddDate(0, 0, offset+14)
	return d.Equal(third)
}
