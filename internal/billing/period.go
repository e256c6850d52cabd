package billing

import (
	"time"

	"geniereport/internal/config"
)

// Period is a half-open interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Duration() time.Duration {
	if !p.End.After(p.Start) {
		return 0
	}
	return p.End.Sub(p.Start)
}

func (p Period) Hours() float64 {
	return p.Duration().Hours()
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Resolver computes billing periods. A period runs from the first Weekday of
// a month at Hour to the same anchor in the following month, in Location.
type Resolver struct {
	Weekday  time.Weekday
	Hour     int
	Location *time.Location
}

func NewResolver(cfg config.Config) Resolver {
	return Resolver{Weekday: cfg.BillingDay, Hour: cfg.BillingHour, Location: cfg.Location}
}

func (r Resolver) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Anchor is the first r.Weekday on or after the 1st of the month, at r.Hour.
func (r Resolver) Anchor(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, r.location())
	offset := (int(r.Weekday) - int(first.Weekday()) + 7) % 7
	return time.Date(year, month, 1+offset, r.Hour, 0, 0, 0, r.location())
}

// PeriodContaining returns the billing period anchored in ref's month. A
// reference date before that month's anchor still maps to the month it falls
// in, so the 1st of a month selects the period starting later that month.
func (r Resolver) PeriodContaining(ref time.Time) Period {
	ref = ref.In(r.location())
	// time.Date normalises month 13 into January of the following year.
	next := time.Date(ref.Year(), ref.Month()+1, 1, 0, 0, 0, 0, r.location())
	return Period{
		Start: r.Anchor(ref.Year(), ref.Month()),
		End:   r.Anchor(next.Year(), next.Month()),
	}
}

// Overlap is the length of the intersection of a and b, zero when disjoint.
func Overlap(a, b Period) time.Duration {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	return Period{Start: start, End: end}.Duration()
}
