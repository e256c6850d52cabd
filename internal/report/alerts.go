package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"geniereport/internal/stats"
	"geniereport/internal/toil"
)

const queryTimeLayout = "02-01-2006T15:04:05"

func WriteToil(w io.Writer, format Format, meta Meta, r toil.Report) error {
	if format == FormatJSON {
		return writeJSON(w, toilJSON(meta, r))
	}

	meta.writeBanner(w)
	fmt.Fprintf(w, "Toil for alerts created since %s\n\n", meta.Range.From.In(meta.loc()).Format(queryTimeLayout))
	for _, act := range r.Activity {
		fmt.Fprintf(w, "Message: %s\n", act.Alert.Message)
		fmt.Fprintf(w, "Alert %s was acknowledged by %s. Created at: %s.", act.Alert.TinyID, act.Actor, act.Alert.CreatedAt.In(meta.loc()).Format(time.RFC3339))
		switch {
		case act.Category == "":
		case act.Counted:
			fmt.Fprintf(w, " Counted as %s.", act.Category)
		default:
			fmt.Fprintf(w, " Within the quiet window for %s, not counted.", act.Category)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nSummary of the number of alerts acknowledged by each user:")
	if len(r.Users) == 0 {
		fmt.Fprintln(w, "No toil accrued.")
		return nil
	}
	for _, u := range r.Users {
		parts := make([]string, 0, len(u.Counts))
		for _, c := range u.Counts {
			parts = append(parts, fmt.Sprintf("%d alerts during %s", c.Count, c.Tag))
		}
		fmt.Fprintf(w, "%s acknowledged %s. This corresponds to %s TOIL.\n", u.Actor, joinAnd(parts), formatHours(u.Total))
	}
	return nil
}

func joinAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return "no alerts"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

type toilUserJSON struct {
	Actor  string         `json:"actor"`
	Counts map[string]int `json:"counts"`
	Total  float64        `json:"total"`
}

type toilActivityJSON struct {
	ID        string    `json:"id"`
	TinyID    string    `json:"tinyId"`
	Message   string    `json:"message"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"createdAt"`
	Category  string    `json:"category,omitempty"`
	Counted   bool      `json:"counted"`
}

type toilReportJSON struct {
	Report string `json:"report"`
	metaJSON
	Users    []toilUserJSON     `json:"users"`
	Activity []toilActivityJSON `json:"activity"`
}

func toilJSON(meta Meta, r toil.Report) toilReportJSON {
	out := toilReportJSON{
		Report:   "toil",
		metaJSON: meta.json(),
		Users:    []toilUserJSON{},
		Activity: []toilActivityJSON{},
	}
	for _, u := range r.Users {
		counts := make(map[string]int, len(u.Counts))
		for _, c := range u.Counts {
			counts[c.Tag] = c.Count
		}
		out.Users = append(out.Users, toilUserJSON{Actor: u.Actor, Counts: counts, Total: u.Total})
	}
	for _, a := range r.Activity {
		out.Activity = append(out.Activity, toilActivityJSON{
			ID:        a.Alert.ID,
			TinyID:    a.Alert.TinyID,
			Message:   a.Alert.Message,
			Actor:     a.Actor,
			CreatedAt: a.Alert.CreatedAt,
			Category:  a.Category,
			Counted:   a.Counted,
		})
	}
	return out
}

func WriteStats(w io.Writer, format Format, meta Meta, s stats.Summary) error {
	if format == FormatJSON {
		return writeJSON(w, statsJSON(meta, s))
	}

	meta.writeBanner(w)
	fmt.Fprintf(w, "Alerts from %s to %s\n", meta.Range.From.In(meta.loc()).Format(queryTimeLayout), meta.Range.To.In(meta.loc()).Format(queryTimeLayout))
	fmt.Fprintf(w, "\nTotal alerts processed: %d\n", s.TotalAlerts)

	fmt.Fprintln(w, "\n=== Company Totals ===")
	writeCounts(w, "  ", s.TimeTags, s.Company)
	for _, unit := range s.Units {
		fmt.Fprintf(w, "\n=== Business Unit: %s ===\n", unit.Name)
		fmt.Fprintln(w, "  Overall Totals:")
		writeCounts(w, "    ", s.TimeTags, unit.Totals)
		if len(unit.Clients) == 0 {
			fmt.Fprintln(w, "  No client-specific alerts found.")
			continue
		}
		fmt.Fprintln(w, "  By Client:")
		for _, client := range unit.Clients {
			fmt.Fprintf(w, "    Client: %s\n", client.Name)
			writeCounts(w, "      ", s.TimeTags, client.Totals)
		}
	}
	return nil
}

func writeCounts(w io.Writer, indent string, tags []string, counts stats.Counts) {
	for _, tag := range tags {
		fmt.Fprintf(w, "%s%s: %d\n", indent, tag, counts[tag])
	}
}

type statsClientJSON struct {
	Name   string       `json:"name"`
	Totals stats.Counts `json:"totals"`
}

type statsUnitJSON struct {
	Name    string            `json:"name"`
	Totals  stats.Counts      `json:"totals"`
	Clients []statsClientJSON `json:"clients"`
}

type statsReportJSON struct {
	Report string `json:"report"`
	metaJSON
	TotalAlerts int             `json:"totalAlerts"`
	Counted     int             `json:"counted"`
	Company     stats.Counts    `json:"company"`
	Units       []statsUnitJSON `json:"businessUnits"`
}

func statsJSON(meta Meta, s stats.Summary) statsReportJSON {
	out := statsReportJSON{
		Report:      "stats",
		metaJSON:    meta.json(),
		TotalAlerts: s.TotalAlerts,
		Counted:     s.Counted,
		Company:     s.Company,
		Units:       []statsUnitJSON{},
	}
	for _, u := range s.Units {
		unit := statsUnitJSON{Name: u.Name, Totals: u.Totals, Clients: []statsClientJSON{}}
		for _, c := range u.Clients {
			unit.Clients = append(unit.Clients, statsClientJSON{Name: c.Name, Totals: c.Totals})
		}
		out.Units = append(out.Units, unit)
	}
	return out
}
