package billing

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"geniereport/internal/domain"
)

// OverlapHours is the number of hours of p that fall inside billing, without
// rounding.
func OverlapHours(p domain.RotationPeriod, billing Period) float64 {
	return Overlap(Period{Start: p.Start, End: p.End}, billing).Hours()
}

type UserHours struct {
	Username string
	Hours    float64
}

func allowedRotation(allowed []string, id string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, id)
}

// OrderedHours sums each user's overlap with billing across the allowed
// rotations (all rotations when allowed is empty). Users appear in the order
// they are first seen; users with no overlap are left out.
func OrderedHours(rotations []domain.TimelineRotation, allowed []string, billing Period) []UserHours {
	var out []UserHours
	index := make(map[string]int)
	for _, rotation := range rotations {
		if !allowedRotation(allowed, rotation.ID) {
			continue
		}
		for _, p := range rotation.Periods {
			if p.Username == "" {
				continue
			}
			hours := OverlapHours(p, billing)
			if hours <= 0 {
				continue
			}
			i, ok := index[p.Username]
			if !ok {
				i = len(out)
				index[p.Username] = i
				out = append(out, UserHours{Username: p.Username})
			}
			out[i].Hours += hours
		}
	}
	return out
}

// HoursByUser is OrderedHours keyed by username.
func HoursByUser(rotations []domain.TimelineRotation, allowed []string, billing Period) map[string]float64 {
	out := make(map[string]float64)
	for _, uh := range OrderedHours(rotations, allowed, billing) {
		out[uh.Username] = uh.Hours
	}
	return out
}

// Payment is hours times rate, rounded half away from zero to pennies.
func Payment(hours float64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(hours).Mul(rate).Round(2)
}

// OnCallAt lists the users assigned at instant at across the allowed
// rotations. An empty result means nobody is on call; it is not an error.
func OnCallAt(rotations []domain.TimelineRotation, allowed []string, at time.Time) []string {
	users := []string{}
	for _, rotation := range rotations {
		if !allowedRotation(allowed, rotation.ID) {
			continue
		}
		for _, p := range rotation.Periods {
			if p.Username == "" || slices.Contains(users, p.Username) {
				continue
			}
			if (Period{Start: p.Start, End: p.End}).Contains(at) {
				users = append(users, p.Username)
			}
		}
	}
	return users
}

// WeeklyInstants returns n instants, one week apart, starting with the next
// weekday at hour:00 in now's location. Today counts when it is weekday, even
// if hour has already passed.
func WeeklyInstants(now time.Time, weekday time.Weekday, hour, n int) []time.Time {
	offset := (int(weekday) - int(now.Weekday()) + 7) % 7
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, time.Date(now.Year(), now.Month(), now.Day()+offset+7*i, hour, 0, 0, 0, now.Location()))
	}
	return out
}

type OnCallWeek struct {
	At    time.Time
	Users []string
}

func WeeklyOnCall(rotations []domain.TimelineRotation, allowed []string, instants []time.Time) []OnCallWeek {
	out := make([]OnCallWeek, 0, len(instants))
	for _, at := range instants {
		out = append(out, OnCallWeek{At: at, Users: OnCallAt(rotations, allowed, at)})
	}
	return out
}

// NextOnCall finds the earliest period of username in the given rotation that
// starts after now.
func NextOnCall(rotations []domain.TimelineRotation, rotationID, username string, now time.Time) (domain.RotationPeriod, bool) {
	var best domain.RotationPeriod
	found := false
	for _, rotation := range rotations {
		if rotationID != "" && rotation.ID != rotationID {
			continue
		}
		for _, p := range rotation.Periods {
			if p.Username != username || !p.Start.After(now) {
				continue
			}
			if !found || p.Start.Before(best.Start) {
				best, found = p, true
			}
		}
	}
	return best, found
}

type PaymentLine struct {
	Username string
	Name     string // display name, the username when unknown
	Hours    float64
	Amount   decimal.Decimal
}

// PaymentLines prices each user's hours at rate. names may be nil.
func PaymentLines(hours []UserHours, rate decimal.Decimal, names map[string]string) []PaymentLine {
	out := make([]PaymentLine, 0, len(hours))
	for _, uh := range hours {
		name := names[uh.Username]
		if name == "" {
			name = uh.Username
		}
		out = append(out, PaymentLine{Username: uh.Username, Name: name, Hours: uh.Hours, Amount: Payment(uh.Hours, rate)})
	}
	return out
}
