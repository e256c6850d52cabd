package domain

import "time"

// Alert is an Opsgenie alert as returned by the list endpoint. CreatedAt is UTC.
type Alert struct {
	ID             string
	TinyID         string
	Message        string
	Owner          string
	CreatedAt      time.Time
	Acknowledged   bool
	AcknowledgedBy string // empty unless Acknowledged
	Tags           []string
}

type Schedule struct {
	ID        string
	Name      string
	Timezone  string
	Enabled   bool
	Rotations []Rotation
}

type Rotation struct {
	ID        string
	Name      string
	Type      string // "weekly", "daily", "hourly"
	StartDate time.Time
}

type User struct {
	ID       string
	Username string
	FullName string
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// RotationPeriod is one assignment of a user inside a rotation, [Start, End).
type RotationPeriod struct {
	RotationID string
	Username   string // empty for unassigned periods
	Start      time.Time
	End        time.Time
}

// TimelineRotation is a rotation together with its resolved periods for a
// timeline window. Periods are ordered by Start.
type TimelineRotation struct {
	ID      string
	Name    string
	Periods []RotationPeriod
}
