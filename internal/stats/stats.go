package stats

import (
	"log"

	"geniereport/internal/classify"
	"geniereport/internal/domain"
)

// Counts holds one counter per configured time tag.
type Counts map[string]int

func newCounts(timeTags []string) Counts {
	c := make(Counts, len(timeTags))
	for _, tag := range timeTags {
		c[tag] = 0
	}
	return c
}

type ClientSummary struct {
	Name   string
	Totals Counts
}

type UnitSummary struct {
	Name    string
	Totals  Counts
	Clients []ClientSummary // first-seen order
}

type Summary struct {
	TimeTags    []string
	TotalAlerts int
	Counted     int
	Company     Counts
	Units       []UnitSummary // configuration order
}

// Summarize counts time tags per business unit and per client. An alert only
// counts when it has both a business unit and at least one time tag; each of
// its time tags is counted once.
func Summarize(alerts []domain.Alert, v classify.Vocabulary) Summary {
	s := Summary{
		TimeTags:    v.TimeTags,
		TotalAlerts: len(alerts),
		Company:     newCounts(v.TimeTags),
	}
	unitIndex := make(map[string]int, len(v.BusinessUnits))
	for i, bu := range v.BusinessUnits {
		unitIndex[bu] = i
		s.Units = append(s.Units, UnitSummary{Name: bu, Totals: newCounts(v.TimeTags)})
	}

	for _, alert := range alerts {
		res := classify.Classify(alert.Tags, v)
		if !res.HasBusinessUnit() || len(res.TimeTags) == 0 {
			continue
		}
		s.Counted++
		unit := &s.Units[unitIndex[res.BusinessUnit]]
		for _, tt := range res.TimeTags {
			unit.Totals[tt]++
			s.Company[tt]++
		}
		for _, name := range res.Clients {
			client := unit.client(name, v.TimeTags)
			for _, tt := range res.TimeTags {
				client.Totals[tt]++
			}
		}
	}
	log.Printf("stats summarize done alerts=%d counted=%d", s.TotalAlerts, s.Counted)
	return s
}

func (u *UnitSummary) client(name string, timeTags []string) *ClientSummary {
	for i := range u.Clients {
		if u.Clients[i].Name == name {
			return &u.Clients[i]
		}
	}
	u.Clients = append(u.Clients, ClientSummary{Name: name, Totals: newCounts(timeTags)})
	return &u.Clients[len(u.Clients)-1]
}
