package domain

import (
	"fmt"
	"time"
)

// DateRange is a half-open interval [From, To). A zero To means unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Bounded() bool {
	return !r.To.IsZero()
}

func (r DateRange) Contains(t time.Time) bool {
	if t.Before(r.From) {
		return false
	}
	return !r.Bounded() || t.Before(r.To)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SinceDaysAgo returns an open-ended range starting at midnight `days` days
// before now.
func SinceDaysAgo(now time.Time, days int) DateRange {
	return DateRange{From: StartOfDay(now).AddDate(0, 0, -days)}
}

// LastDaysRange covers the `days` full days before today.
func LastDaysRange(now time.Time, days int) DateRange {
	today := StartOfDay(now)
	return DateRange{From: today.AddDate(0, 0, -days), To: today}
}

// LastMonthRange covers the previous full calendar month.
func LastMonthRange(now time.Time) DateRange {
	firstThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return DateRange{From: firstThisMonth.AddDate(0, -1, 0), To: firstThisMonth}
}

// InclusiveRange turns a start date and an inclusive end date into [start, end+1d).
func InclusiveRange(start, end time.Time) (DateRange, error) {
	start, end = StartOfDay(start), StartOfDay(end)
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return DateRange{From: start, To: end.AddDate(0, 0, 1)}, nil
}

// ParseDate accepts YYYY-MM-DD (midnight in loc) or RFC3339.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format: %q (expected YYYY-MM-DD or RFC3339)", s)
}
