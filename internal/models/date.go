package models

import "time"

// DateLayout is the ISO calendar date format used on the wire and in forms.
const DateLayout = time.DateOnly

// WindowYears is the length of the default simulation window.
const WindowYears = 2

// Date truncates t to a calendar date, represented as midnight UTC of t's wall-clock date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultWindow is the range from today to today plus two years.
func DefaultWindow(now time.Time) DateRange {
	today := Date(now)
	return DateRange{Start: today, End: today.AddDate(WindowYears, 0, 0)}
}

// ParseDate parses an ISO calendar date such as 2026-01-31.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err //nolint:wrapcheck // callers annotate the error.
	}
	return Date(t), nil
}

// FormatDate renders d as an ISO calendar date.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}
