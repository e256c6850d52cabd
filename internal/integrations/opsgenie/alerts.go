package opsgenie

import (
	"context"
	"fmt"
	"iter"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"geniereport/internal/domain"
)

// PageLimit is the largest page the alert list endpoint serves.
const PageLimit = 100

const queryTimeLayout = "02-01-2006T15:04:05"

// AlertQuery selects alerts by creation time and tags. CreatedTo and both tag
// lists are optional.
type AlertQuery struct {
	CreatedFrom time.Time
	CreatedTo   time.Time
	RequireTags []string // all must be present
	ExcludeTags []string // none may be present
}

// Expression renders the Opsgenie search expression, with times formatted
// in loc. The caller's url.Values takes care of percent-encoding.
func (q AlertQuery) Expression(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var parts []string
	if !q.CreatedFrom.IsZero() {
		parts = append(parts, fmt.Sprintf("createdAt >= '%s'", q.CreatedFrom.In(loc).Format(queryTimeLayout)))
	}
	if !q.CreatedTo.IsZero() {
		parts = append(parts, fmt.Sprintf("createdAt < '%s'", q.CreatedTo.In(loc).Format(queryTimeLayout)))
	}
	if len(q.RequireTags) > 0 {
		parts = append(parts, tagTerms(q.RequireTags, " AND "))
	}
	if len(q.ExcludeTags) > 0 {
		parts = append(parts, "NOT ("+tagTerms(q.ExcludeTags, " OR ")+")")
	}
	return strings.Join(parts, " AND ")
}

func tagTerms(tags []string, sep string) string {
	terms := make([]string, 0, len(tags))
	for _, tag := range tags {
		if strings.ContainsAny(tag, " ()\"") {
			tag = strconv.Quote(tag)
		}
		terms = append(terms, "tag:"+tag)
	}
	return strings.Join(terms, sep)
}

type alertResponse struct {
	ID           string    `json:"id"`
	TinyID       string    `json:"tinyId"`
	Message      string    `json:"message"`
	Owner        string    `json:"owner"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"createdAt"`
	Tags         []string  `json:"tags"`
	Report       struct {
		AcknowledgedBy string `json:"acknowledgedBy"`
	} `json:"report"`
}

func (a alertResponse) toDomain() domain.Alert {
	alert := domain.Alert{
		ID:           a.ID,
		TinyID:       a.TinyID,
		Message:      a.Message,
		Owner:        a.Owner,
		CreatedAt:    a.CreatedAt.UTC(),
		Acknowledged: a.Acknowledged,
		Tags:         a.Tags,
	}
	if a.Acknowledged {
		alert.AcknowledgedBy = a.Report.AcknowledgedBy
	}
	return alert
}

type alertListResponse struct {
	Data []alertResponse `json:"data"`
}

// Alerts returns every alert matching q. Each range over the sequence runs a
// fresh pagination pass, oldest first. Pagination ends on a short or empty
// page; a failed page yields its error and ends the sequence.
//
// Opsgenie serves non-overlapping pages for a fixed query, so alerts are not
// de-duplicated across pages.
func (c *Client) Alerts(ctx context.Context, q AlertQuery) iter.Seq2[domain.Alert, error] {
	return func(yield func(domain.Alert, error) bool) {
		expr := q.Expression(c.location)
		log.Printf("opsgenie alerts fetch start query=%q", expr)
		total := 0
		for offset := 0; ; offset += PageLimit {
			params := url.Values{}
			params.Set("query", expr)
			params.Set("limit", strconv.Itoa(PageLimit))
			params.Set("offset", strconv.Itoa(offset))
			params.Set("sort", "createdAt")
			params.Set("order", "asc")

			var page alertListResponse
			if err := c.do(ctx, "list alerts", http.MethodGet, "/v2/alerts", params, nil, &page); err != nil {
				yield(domain.Alert{}, err)
				return
			}
			log.Printf("opsgenie alerts page offset=%d size=%d", offset, len(page.Data))

			for _, a := range page.Data {
				total++
				if !yield(a.toDomain(), nil) {
					return
				}
			}
			if len(page.Data) < PageLimit {
				log.Printf("opsgenie alerts fetch done total=%d", total)
				return
			}
		}
	}
}

// Collect drains seq. On error it returns the alerts gathered so far along
// with the error so callers can still report them.
func Collect(seq iter.Seq2[domain.Alert, error]) ([]domain.Alert, error) {
	var alerts []domain.Alert
	for alert, err := range seq {
		if err != nil {
			return alerts, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

type addTagsRequest struct {
	Tags []string `json:"tags"`
}

// AddTags adds tags to an alert. Opsgenie processes the request
// asynchronously and adding an existing tag is a no-op.
func (c *Client) AddTags(ctx context.Context, alertID string, tags []string) error {
	params := url.Values{}
	params.Set("identifierType", "id")
	path := "/v2/alerts/" + url.PathEscape(alertID) + "/tags"
	return c.do(ctx, "add tags to alert "+alertID, http.MethodPost, path, params, addTagsRequest{Tags: tags}, nil)
}
