package calendar

import (
	"time"

	"gymdash/internal/core"
)

// StartOfMonth returns the 1st of d's month.
func StartOfMonth(d core.Date) core.Date {
	return core.NewDate(d.Year(), int(d.Month()), 1)
}

// EndOfMonth returns the last day of d's month.
func EndOfMonth(d core.Date) core.Date {
	return core.NewDate(d.Year(), int(d.Month()), d.DaysInMonth())
}

// AddMonths moves d by n months keeping the day of month, clamped to the
// target month's length (Jan 31 + 1 month = Feb 28/29).
func AddMonths(d core.Date, n int) core.Date {
	y, m := d.Year(), int(d.Month())-1+n
	y += m / 12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	target := core.NewDate(y, m+1, 1)
	day := d.Day()
	if last := target.DaysInMonth(); day > last {
		day = last
	}
	return core.NewDate(y, m+1, day)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) core.Date {
	if loc == nil {
		loc = time.Local
	}
	return core.DateOf(now.In(loc))
}

// ParseMonth reads "YYYY-MM". An empty string yields fallback's month.
func ParseMonth(s string, fallback core.Date) (core.Date, error) {
	if s == "" {
		return StartOfMonth(fallback), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.NewDate(t.Year(), int(t.Month()), 1), nil
}

// MonthKey renders "YYYY-MM".
func MonthKey(d core.Date) string {
	return d.Format("2006-01")
}
