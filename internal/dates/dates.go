// Package dates provides the date-only values used throughout the
// reconciliation: settle dates, trade dates and business-day shifts.
// Broker reports disagree on date formats, so parsing lives here too.
package dates

import (
	"fmt"
	"time"
)

// Date is a calendar date without a time component. The zero value is
// "no date" and renders as an empty string.
type Date struct {
	year  int
	month time.Month
	day   int
}

// New creates a Date from year, month and day.
func New(year int, month time.Month, day int) Date {
	return Date{year: year, month: month, day: day}
}

// FromTime truncates t to its calendar date.
func FromTime(t time.Time) Date {
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// Layouts accepted by ParseAny, in the order the broker reports use them.
var layouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
	"20060102",
}

// Parse parses a date in ISO form (2006-01-02).
func Parse(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return FromTime(t), nil
}

// ParseAny tries each known broker date layout in turn.
func ParseAny(s string) (Date, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", s)
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the "no date" value.
func (d Date) IsZero() bool { return d == Date{} }

// String renders the date as 2006-01-02, or "" for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format("2006-01-02")
}

// Format renders the date in the given time layout.
func (d Date) Format(layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(layout)
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// Equal reports whether two dates are the same calendar day.
func (d Date) Equal(o Date) bool { return d == o }

// Before reports whether d is before o.
func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

// After reports whether d is after o.
func (d Date) After(o Date) bool { return d.Time().After(o.Time()) }

// AddDays returns the date n calendar days away.
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// AddBusinessDays returns the date n business days away, skipping
// Saturdays and Sundays. Negative n moves backwards, so a Monday minus
// one business day is the preceding Friday.
func (d Date) AddBusinessDays(n int) Date {
	if n == 0 {
		return d
	}
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	cur := d
	for n > 0 {
		cur = cur.AddDays(step)
		if wd := cur.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return cur
}

// Compare orders dates chronologically, with the zero value first.
func (d Date) Compare(o Date) int {
	switch {
	case d == o:
		return 0
	case d.Before(o):
		return -1
	default:
		return 1
	}
}
