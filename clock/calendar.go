package clock

import (
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the wire and storage format for calendar days.
const DateLayout = "2006-01-02"

// Day normalizes a timestamp to midnight UTC of its calendar day (in the timestamp's own location).
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func NewDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func StartOfMonth(year int, month time.Month) time.Time { return NewDay(year, month, 1) }

func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

func DaysInMonth(year int, month time.Month) int { return EndOfMonth(year, month).Day() }

// InMonth reports whether day falls inside (year, month).
func InMonth(day time.Time, year int, month time.Month) bool {
	return day.Year() == year && day.Month() == month
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// ParseDate parses a "YYYY-MM-DD" day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q (use YYYY-MM-DD)", s)
	}
	return t, nil
}

// ValidPeriod reports whether (year, month) is a usable payroll period.
func ValidPeriod(year, month int) bool {
	return year >= 2000 && year <= 2100 && month >= 1 && month <= 12
}
