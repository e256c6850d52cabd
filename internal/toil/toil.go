package toil

import (
	"log"
	"slices"
	"sort"
	"time"

	"geniereport/internal/classify"
	"geniereport/internal/config"
	"geniereport/internal/domain"
)

const unknownActor = "(unknown)"

// Category is a toil-earning alert tag and the value one counted
// acknowledgement of it is worth.
type Category struct {
	Tag   string
	Value float64
}

func CategoriesFromConfig(cfg config.Config) []Category {
	out := make([]Category, 0, len(cfg.ToilCategories))
	for _, c := range cfg.ToilCategories {
		out = append(out, Category{Tag: c.Tag, Value: c.Value})
	}
	return out
}

// Activity is one acknowledged alert. Category is empty when the alert
// carries none of the toil tags.
type Activity struct {
	Alert    domain.Alert
	Actor    string
	Category string
	Counted  bool
}

type CategoryCount struct {
	Tag   string
	Count int
}

type UserToil struct {
	Actor  string
	Counts []CategoryCount // one entry per configured category, in order
	Total  float64
}

type Report struct {
	Categories []Category
	Activity   []Activity
	Users      []UserToil
}

// Build aggregates toil over alerts. Only acknowledged alerts qualify; each
// takes the first configured category whose tag it carries. Alerts are
// processed oldest first whatever order they arrive in.
func Build(alerts []domain.Alert, categories []Category, quietWindow time.Duration) Report {
	acked := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Acknowledged {
			acked = append(acked, a)
		}
	}
	sort.SliceStable(acked, func(i, j int) bool { return acked[i].CreatedAt.Before(acked[j].CreatedAt) })

	agg := NewAggregator(quietWindow)
	report := Report{Categories: categories}
	for _, alert := range acked {
		actor := alert.AcknowledgedBy
		if actor == "" {
			actor = unknownActor
		}
		act := Activity{Alert: alert, Actor: actor}
		if cat, ok := categoryFor(alert, categories); ok {
			act.Category = cat.Tag
			act.Counted = agg.Record(actor, cat.Tag, alert.CreatedAt, cat.Value)
			if !act.Counted {
				log.Printf("toil suppressed alert=%s actor=%s category=%s", alert.TinyID, actor, cat.Tag)
			}
		}
		report.Activity = append(report.Activity, act)
	}

	for _, actor := range agg.Actors() {
		user := UserToil{Actor: actor, Total: agg.Total(actor)}
		for _, cat := range categories {
			user.Counts = append(user.Counts, CategoryCount{Tag: cat.Tag, Count: agg.Count(actor, cat.Tag)})
		}
		report.Users = append(report.Users, user)
	}
	log.Printf("toil build done alerts=%d acknowledged=%d users=%d", len(alerts), len(acked), len(report.Users))
	return report
}

// categoryFor classifies alert against the category tags in configured order.
func categoryFor(alert domain.Alert, categories []Category) (Category, bool) {
	tags := make([]string, len(categories))
	for i, c := range categories {
		tags[i] = c.Tag
	}
	tag, ok := classify.First(alert.Tags, tags)
	if !ok {
		return Category{}, false
	}
	return categories[slices.Index(tags, tag)], true
}
