package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"geniereport/internal/billing"
	"geniereport/internal/domain"
)

const periodLayout = "2006-01-02 15:04 MST"

// NobodyOnCall is printed for an on-call slot no period covers.
const NobodyOnCall = "Nobody"

type Payment struct {
	Period   billing.Period
	Rate     decimal.Decimal
	Currency string
	Lines    []billing.PaymentLine
}

func WritePayment(w io.Writer, format Format, meta Meta, p Payment) error {
	if format == FormatJSON {
		return writeJSON(w, paymentJSON(meta, p))
	}

	meta.writeBanner(w)
	fmt.Fprintf(w, "Billing period %s to %s\n\n", p.Period.Start.In(meta.loc()).Format(periodLayout), p.Period.End.In(meta.loc()).Format(periodLayout))
	if len(p.Lines) == 0 {
		fmt.Fprintln(w, "Nobody was on call during this billing period.")
		return nil
	}
	for _, l := range p.Lines {
		fmt.Fprintf(w, "%s was on call for %s hours and should be paid %s%s.\n", l.Name, formatHours(l.Hours), p.Currency, l.Amount.StringFixed(2))
	}
	return nil
}

type paymentLineJSON struct {
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Hours    float64 `json:"hours"`
	Amount   string  `json:"amount"`
}

type paymentReportJSON struct {
	Report string `json:"report"`
	metaJSON
	PeriodStart time.Time         `json:"periodStart"`
	PeriodEnd   time.Time         `json:"periodEnd"`
	Rate        string            `json:"rate"`
	Currency    string            `json:"currency"`
	Lines       []paymentLineJSON `json:"users"`
}

func paymentJSON(meta Meta, p Payment) paymentReportJSON {
	out := paymentReportJSON{
		Report:      "payment",
		metaJSON:    meta.json(),
		PeriodStart: p.Period.Start,
		PeriodEnd:   p.Period.End,
		Rate:        p.Rate.String(),
		Currency:    p.Currency,
		Lines:       []paymentLineJSON{},
	}
	for _, l := range p.Lines {
		out.Lines = append(out.Lines, paymentLineJSON{Username: l.Username, Name: l.Name, Hours: l.Hours, Amount: l.Amount.StringFixed(2)})
	}
	return out
}

// WriteOnCall prints the weekly digest. names maps usernames to what should
// be shown for them and may be nil.
func WriteOnCall(w io.Writer, format Format, weeks []billing.OnCallWeek, names map[string]string) error {
	display := func(u string) string {
		if n := names[u]; n != "" {
			return n
		}
		return u
	}

	if format == FormatJSON {
		type weekJSON struct {
			At     time.Time `json:"at"`
			Users  []string  `json:"users"`
			Nobody bool      `json:"nobody"`
		}
		out := struct {
			Report string     `json:"report"`
			Weeks  []weekJSON `json:"weeks"`
		}{Report: "oncall", Weeks: []weekJSON{}}
		for _, wk := range weeks {
			users := make([]string, 0, len(wk.Users))
			for _, u := range wk.Users {
				users = append(users, display(u))
			}
			out.Weeks = append(out.Weeks, weekJSON{At: wk.At, Users: users, Nobody: len(wk.Users) == 0})
		}
		return writeJSON(w, out)
	}

	for _, wk := range weeks {
		fmt.Fprintf(w, "On call for week starting %s:\n", wk.At.Format("2006-01-02"))
		if len(wk.Users) == 0 {
			fmt.Fprintln(w, NobodyOnCall)
			continue
		}
		for _, u := range wk.Users {
			fmt.Fprintln(w, display(u))
		}
	}
	return nil
}

type NextOnCall struct {
	Username        string
	Period          domain.RotationPeriod
	Found           bool
	LookAheadMonths int
}

func WriteNextOnCall(w io.Writer, format Format, loc *time.Location, n NextOnCall) error {
	if loc == nil {
		loc = time.UTC
	}
	if format == FormatJSON {
		out := struct {
			Report   string     `json:"report"`
			Username string     `json:"username"`
			Found    bool       `json:"found"`
			Start    *time.Time `json:"start,omitempty"`
			End      *time.Time `json:"end,omitempty"`
		}{Report: "next-oncall", Username: n.Username, Found: n.Found}
		if n.Found {
			start, end := n.Period.Start.In(loc), n.Period.End.In(loc)
			out.Start, out.End = &start, &end
		}
		return writeJSON(w, out)
	}

	if !n.Found {
		fmt.Fprintf(w, "%s is not on call in the next %d months for the specified rotation.\n", n.Username, n.LookAheadMonths)
		return nil
	}
	fmt.Fprintf(w, "%s is next on call on %s\n", n.Username, n.Period.Start.In(loc).Format("January 02, 2006"))
	return nil
}

func WriteSchedules(w io.Writer, format Format, schedules []domain.Schedule) error {
	if format == FormatJSON {
		type scheduleJSON struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		out := []scheduleJSON{}
		for _, s := range schedules {
			out = append(out, scheduleJSON{ID: s.ID, Name: s.Name})
		}
		return writeJSON(w, out)
	}
	fmt.Fprintln(w, "All Schedules:")
	for _, s := range schedules {
		fmt.Fprintf(w, "  %s (ID: %s)\n", s.Name, s.ID)
	}
	return nil
}

func WriteScheduleRotations(w io.Writer, format Format, s domain.Schedule) error {
	if format == FormatJSON {
		type rotationJSON struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Type string `json:"type,omitempty"`
		}
		out := struct {
			ID        string         `json:"id"`
			Name      string         `json:"name"`
			Rotations []rotationJSON `json:"rotations"`
		}{ID: s.ID, Name: s.Name, Rotations: []rotationJSON{}}
		for _, r := range s.Rotations {
			out.Rotations = append(out.Rotations, rotationJSON{ID: r.ID, Name: r.Name, Type: r.Type})
		}
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "Schedule ID for '%s' is '%s'\n", s.Name, s.ID)
	fmt.Fprintln(w, "Rotations:")
	for _, r := range s.Rotations {
		fmt.Fprintf(w, "  %s (ID: %s)\n", r.Name, r.ID)
	}
	return nil
}

// WriteNotFound reports a lookup that matched nothing. It is a normal,
// empty result.
func WriteNotFound(w io.Writer, format Format, nf *domain.NotFoundError) error {
	if format == FormatJSON {
		return writeJSON(w, struct {
			Found bool   `json:"found"`
			Kind  string `json:"kind"`
			Name  string `json:"name"`
		}{Kind: nf.Kind, Name: nf.Name})
	}
	fmt.Fprintf(w, "%s '%s' not found\n", capitalize(nf.Kind), nf.Name)
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
