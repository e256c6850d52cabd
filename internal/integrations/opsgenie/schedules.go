package opsgenie

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"geniereport/internal/domain"
)

type rotationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	StartDate time.Time `json:"startDate"`
}

type scheduleResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timezone  string             `json:"timezone"`
	Enabled   bool               `json:"enabled"`
	Rotations []rotationResponse `json:"rotations"`
}

func (s scheduleResponse) toDomain() domain.Schedule {
	schedule := domain.Schedule{
		ID:       s.ID,
		Name:     s.Name,
		Timezone: s.Timezone,
		Enabled:  s.Enabled,
	}
	for _, r := range s.Rotations {
		schedule.Rotations = append(schedule.Rotations, domain.Rotation{
			ID:        r.ID,
			Name:      r.Name,
			Type:      r.Type,
			StartDate: r.StartDate,
		})
	}
	return schedule
}

type scheduleListResponse struct {
	Data   []scheduleResponse `json:"data"`
	Paging *struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// ListSchedules pages through every schedule in the account.
func (c *Client) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	for offset := 0; ; offset += PageLimit {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(PageLimit))
		params.Set("offset", strconv.Itoa(offset))

		var page scheduleListResponse
		if err := c.do(ctx, "list schedules", http.MethodGet, "/v2/schedules", params, nil, &page); err != nil {
			return schedules, err
		}
		for _, s := range page.Data {
			schedules = append(schedules, s.toDomain())
		}
		if len(page.Data) == 0 || page.Paging == nil || page.Paging.Next == "" {
			break
		}
	}
	log.Printf("opsgenie schedules fetch done total=%d", len(schedules))
	return schedules, nil
}

// GetSchedule fetches one schedule with its rotations.
func (c *Client) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	var resp struct {
		Data scheduleResponse `json:"data"`
	}
	err := c.do(ctx, "get schedule "+id, http.MethodGet, "/v2/schedules/"+url.PathEscape(id), nil, nil, &resp)
	if isStatus(err, http.StatusNotFound) {
		return domain.Schedule{}, &domain.NotFoundError{Kind: "schedule", Name: id}
	}
	if err != nil {
		return domain.Schedule{}, err
	}
	return resp.Data.toDomain(), nil
}

// FindScheduleByName returns the schedule whose name matches exactly, with
// its rotations loaded.
func (c *Client) FindScheduleByName(ctx context.Context, name string) (domain.Schedule, error) {
	schedules, err := c.ListSchedules(ctx)
	if err != nil {
		return domain.Schedule{}, err
	}
	for _, s := range schedules {
		if s.Name == name {
			return c.GetSchedule(ctx, s.ID)
		}
	}
	return domain.Schedule{}, &domain.NotFoundError{Kind: "schedule", Name: name}
}

// TimelineRequest selects the timeline window: Interval units of
// IntervalUnit ("days", "weeks" or "months") starting at Date.
type TimelineRequest struct {
	Date         time.Time
	Interval     int
	IntervalUnit string
}

type timelinePeriodResponse struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Type      string    `json:"type"`
	Recipient struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"recipient"`
}

type timelineRotationResponse struct {
	ID      string                   `json:"id"`
	Name    string                   `json:"name"`
	Order   float64                  `json:"order"`
	Periods []timelinePeriodResponse `json:"periods"`
}

type timelineResponse struct {
	Data struct {
		StartDate     time.Time `json:"startDate"`
		EndDate       time.Time `json:"endDate"`
		FinalTimeline struct {
			Rotations []timelineRotationResponse `json:"rotations"`
		} `json:"finalTimeline"`
	} `json:"data"`
}

// Timeline returns the final (override-applied) timeline of a schedule.
// Periods without a user recipient keep an empty Username.
func (c *Client) Timeline(ctx context.Context, scheduleID string, req TimelineRequest) ([]domain.TimelineRotation, error) {
	params := url.Values{}
	if !req.Date.IsZero() {
		params.Set("date", req.Date.UTC().Format(time.RFC3339))
	}
	if req.Interval > 0 {
		params.Set("interval", strconv.Itoa(req.Interval))
	}
	if req.IntervalUnit != "" {
		params.Set("intervalUnit", req.IntervalUnit)
	}

	var resp timelineResponse
	path := "/v2/schedules/" + url.PathEscape(scheduleID) + "/timeline"
	err := c.do(ctx, "get schedule timeline "+scheduleID, http.MethodGet, path, params, nil, &resp)
	if isStatus(err, http.StatusNotFound) {
		return nil, &domain.NotFoundError{Kind: "schedule", Name: scheduleID}
	}
	if err != nil {
		return nil, err
	}

	rotations := resp.Data.FinalTimeline.Rotations
	sort.SliceStable(rotations, func(i, j int) bool { return rotations[i].Order < rotations[j].Order })

	out := make([]domain.TimelineRotation, 0, len(rotations))
	for _, r := range rotations {
		tr := domain.TimelineRotation{ID: r.ID, Name: r.Name}
		for _, p := range r.Periods {
			period := domain.RotationPeriod{
				RotationID: r.ID,
				Start:      p.StartDate.UTC(),
				End:        p.EndDate.UTC(),
			}
			if p.Recipient.Type == "" || p.Recipient.Type == "user" {
				period.Username = p.Recipient.Name
			}
			tr.Periods = append(tr.Periods, period)
		}
		sort.SliceStable(tr.Periods, func(i, j int) bool { return tr.Periods[i].Start.Before(tr.Periods[j].Start) })
		out = append(out, tr)
	}
	log.Printf("opsgenie timeline fetch done schedule=%s rotations=%d", scheduleID, len(out))
	return out, nil
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// GetUser looks a user up by id or username.
func (c *Client) GetUser(ctx context.Context, identifier string) (domain.User, error) {
	var resp struct {
		Data userResponse `json:"data"`
	}
	err := c.do(ctx, "get user "+identifier, http.MethodGet, "/v2/users/"+url.PathEscape(identifier), nil, nil, &resp)
	if isStatus(err, http.StatusNotFound) {
		return domain.User{}, &domain.NotFoundError{Kind: "user", Name: identifier}
	}
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: resp.Data.ID, Username: resp.Data.Username, FullName: resp.Data.FullName}, nil
}

func isStatus(err error, status int) bool {
	var rse *domain.RemoteServiceError
	return errors.As(err, &rse) && rse.StatusCode == status
}

// DisplayNames maps each username to the user's full name. Lookups that fail
// fall back to the username so a report never loses a row over a name.
func (c *Client) DisplayNames(ctx context.Context, usernames []string) map[string]string {
	names := make(map[string]string, len(usernames))
	for _, username := range usernames {
		if _, done := names[username]; done || username == "" {
			continue
		}
		user, err := c.GetUser(ctx, username)
		if err != nil {
			log.Printf("opsgenie user lookup failed username=%s err=%v", username, err)
			names[username] = username
			continue
		}
		if user.Username == "" {
			user.Username = username
		}
		names[username] = user.DisplayName()
	}
	return names
}
