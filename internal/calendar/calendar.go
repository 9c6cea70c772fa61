// Package calendar works with civil dates: a time.Time at midnight UTC whose
// year, month and day are the only meaningful fields. Instants are mapped to
// and from civil dates through the ledger's canonical location.
package calendar

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02"

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Parse reads a YYYY-MM-DD string into a civil date.
func Parse(s string) (time.Time, error) {
	d, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("Parse: %w", err)
	}
	return d, nil
}

// Of returns the civil date on which instant t falls in loc.
func Of(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return Date(y, m, d)
}

// Truncate drops any clock component of a value already meant as a date.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// StartOfDay is the first instant of civil date d in loc.
func StartOfDay(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

// NextDayStart is the first instant after civil date d ends in loc. An
// instant t belongs to d or earlier iff t.Before(NextDayStart(d, loc)).
func NextDayStart(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day+1, 0, 0, 0, 0, loc)
}

// MonthBounds returns the first and last civil dates of a calendar month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := Date(year, month, 1)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// AddMonthsClamped moves anchor n months forward keeping its day of month,
// clamped to the last day of the target month (Jan 31 + 1 = Feb 28/29).
func AddMonthsClamped(anchor time.Time, n int) time.Time {
	y, m, d := anchor.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	_, last := MonthBounds(target.Year(), target.Month())
	if d > last.Day() {
		d = last.Day()
	}
	return Date(target.Year(), target.Month(), d)
}

// DaysBetween counts whole days from a to b (both civil dates).
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}
