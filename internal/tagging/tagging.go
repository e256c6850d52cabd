package tagging

import (
	"context"
	"fmt"
	"log"
	"slices"

	"geniereport/internal/domain"
)

// SkipChoice is always offered last and leaves the alert untouched.
const SkipChoice = "skip"

const alertLinkBase = "https://app.opsgenie.com/alert/detail/"

// Decision is the outcome of asking which tag an alert should get.
type Decision struct {
	Tag    string
	Skip   bool
	Reason string // optional explanation, shown in the summary
}

// DecideFunc picks one of choices for an alert. choices always ends with
// SkipChoice.
type DecideFunc func(ctx context.Context, alert domain.Alert, choices []string) (Decision, error)

// Tagger adds tags to an alert.
type Tagger interface {
	AddTags(ctx context.Context, alertID string, tags []string) error
}

type Outcome string

const (
	OutcomeTagged  Outcome = "tagged"
	OutcomePlanned Outcome = "planned"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type Result struct {
	Alert    domain.Alert
	Link     string
	Decision Decision
	Outcome  Outcome
	Err      error
}

// Choices returns the selectable tags for an alert: the configured business
// unit tags followed by SkipChoice.
func Choices(tags []string) []string {
	out := slices.Clone(tags)
	return append(out, SkipChoice)
}

func AlertLink(alertID string) string {
	return alertLinkBase + alertID
}

// Run asks decide about every alert in order and applies the chosen tag. A
// failed tag mutation is recorded on its result and the run goes on. A
// decision error ends the run; the results gathered so far are returned with
// it. With dryRun set nothing is written and chosen tags come back as
// OutcomePlanned.
func Run(ctx context.Context, alerts []domain.Alert, tags []string, decide DecideFunc, tagger Tagger, dryRun bool) ([]Result, error) {
	choices := Choices(tags)
	results := make([]Result, 0, len(alerts))
	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := Result{Alert: alert, Link: AlertLink(alert.ID)}

		decision, err := decide(ctx, alert, choices)
		if err != nil {
			return results, fmt.Errorf("deciding tag for alert %s: %w", alert.ID, err)
		}
		if decision.Tag == SkipChoice {
			decision.Skip = true
		}
		res.Decision = decision

		switch {
		case decision.Skip:
			res.Outcome = OutcomeSkipped
		case !slices.Contains(tags, decision.Tag):
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("tag '%s' is not one of %v", decision.Tag, tags)
		case dryRun:
			res.Outcome = OutcomePlanned
		default:
			if err := tagger.AddTags(ctx, alert.ID, []string{decision.Tag}); err != nil {
				log.Printf("tagging add failed alert=%s tag=%s err=%v", alert.ID, decision.Tag, err)
				res.Outcome = OutcomeFailed
				res.Err = err
			} else {
				log.Printf("tagging add done alert=%s tag=%s", alert.ID, decision.Tag)
				res.Outcome = OutcomeTagged
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// Tally counts results per outcome.
func Tally(results []Result) map[Outcome]int {
	out := make(map[Outcome]int)
	for _, r := range results {
		out[r.Outcome]++
	}
	return out
}
