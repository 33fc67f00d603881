package period

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange indicates a non-positive trailing-month count.
var ErrInvalidRange = errors.New("period: trailing month count must be >= 1")

// ErrInvalidMonth indicates a base month outside 1-12.
var ErrInvalidMonth = errors.New("period: base month must be between 1 and 12")

// Window is an inclusive calendar date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthWindow returns the inclusive range ending on the last day of
// (month, year) and starting on the first day of the month months-1
// months earlier, rolling the year back on underflow.
func MonthWindow(month, year, months int) (Window, error) {
	if months < 1 {
		return Window{}, ErrInvalidRange
	}
	if month < 1 || month > 12 {
		return Window{}, ErrInvalidMonth
	}

	startMonth := month - months + 1
	startYear := year
	for startMonth <= 0 {
		startMonth += 12
		startYear--
	}

	start := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	// First day of the following month minus one day is the calendar month end.
	end := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1)

	return Window{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the window. Only the calendar
// date matters; the time of day is ignored.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(w.Start) && !day.After(w.End)
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// KeyOf returns the MonthKey containing t.
func KeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Prev returns the preceding calendar month.
func (k MonthKey) Prev() MonthKey {
	if k.Month == time.January {
		return MonthKey{Year: k.Year - 1, Month: time.December}
	}
	return MonthKey{Year: k.Year, Month: k.Month - 1}
}

// Before reports whether k precedes other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// Time returns the first instant of the month, used as a series timestamp.
func (k MonthKey) Time() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// String renders the key as YYYY-MM.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}
