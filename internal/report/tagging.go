package report

import (
	"fmt"
	"io"

	"geniereport/internal/storage/sqlite"
	"geniereport/internal/tagging"
)

func WriteTagging(w io.Writer, format Format, results []tagging.Result) error {
	if format == FormatJSON {
		type resultJSON struct {
			ID      string `json:"id"`
			TinyID  string `json:"tinyId"`
			Link    string `json:"link"`
			Tag     string `json:"tag,omitempty"`
			Outcome string `json:"outcome"`
			Reason  string `json:"reason,omitempty"`
			Error   string `json:"error,omitempty"`
		}
		out := []resultJSON{}
		for _, r := range results {
			rj := resultJSON{ID: r.Alert.ID, TinyID: r.Alert.TinyID, Link: r.Link, Outcome: string(r.Outcome), Reason: r.Decision.Reason}
			if !r.Decision.Skip {
				rj.Tag = r.Decision.Tag
			}
			if r.Err != nil {
				rj.Error = r.Err.Error()
			}
			out = append(out, rj)
		}
		return writeJSON(w, out)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No alerts found without the specified tags.")
		return nil
	}
	for _, r := range results {
		switch r.Outcome {
		case tagging.OutcomeTagged:
			fmt.Fprintf(w, "Added tag '%s' to alert '%s'.", r.Decision.Tag, r.Alert.ID)
		case tagging.OutcomePlanned:
			fmt.Fprintf(w, "Would add tag '%s' to alert '%s'.", r.Decision.Tag, r.Alert.ID)
		case tagging.OutcomeSkipped:
			fmt.Fprintf(w, "Skipped alert '%s'.", r.Alert.ID)
		case tagging.OutcomeFailed:
			fmt.Fprintf(w, "Error: unable to add tag '%s' to alert '%s': %v", r.Decision.Tag, r.Alert.ID, r.Err)
		}
		if r.Decision.Reason != "" {
			fmt.Fprintf(w, " (%s)", r.Decision.Reason)
		}
		fmt.Fprintf(w, " %s\n", r.Link)
	}
	tally := tagging.Tally(results)
	fmt.Fprintf(w, "\n%d tagged, %d planned, %d skipped, %d failed.\n",
		tally[tagging.OutcomeTagged], tally[tagging.OutcomePlanned], tally[tagging.OutcomeSkipped], tally[tagging.OutcomeFailed])
	return nil
}

// WriteHistory lists archived runs, newest first, with their lines.
func WriteHistory(w io.Writer, format Format, runs []sqlite.Run) error {
	if format == FormatJSON {
		type lineJSON struct {
			Subject string  `json:"subject"`
			Metric  string  `json:"metric"`
			Value   float64 `json:"value"`
		}
		type runJSON struct {
			ID        string     `json:"id"`
			Kind      string     `json:"kind"`
			From      string     `json:"from"`
			To        string     `json:"to,omitempty"`
			Partial   bool       `json:"partial"`
			CreatedAt string     `json:"createdAt"`
			Lines     []lineJSON `json:"lines"`
		}
		out := []runJSON{}
		for _, run := range runs {
			rj := runJSON{
				ID:        run.ID,
				Kind:      run.Kind,
				From:      run.From.Format("2006-01-02T15:04:05Z07:00"),
				Partial:   run.Partial,
				CreatedAt: run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				Lines:     []lineJSON{},
			}
			if !run.To.IsZero() {
				rj.To = run.To.Format("2006-01-02T15:04:05Z07:00")
			}
			for _, l := range run.Lines {
				rj.Lines = append(rj.Lines, lineJSON{Subject: l.Subject, Metric: l.Metric, Value: l.Value})
			}
			out = append(out, rj)
		}
		return writeJSON(w, out)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No archived runs.")
		return nil
	}
	for _, run := range runs {
		to := "open"
		if !run.To.IsZero() {
			to = run.To.Format("2006-01-02")
		}
		partial := ""
		if run.Partial {
			partial = " (partial)"
		}
		fmt.Fprintf(w, "%s %s %s..%s run %s%s\n", run.CreatedAt.Format("2006-01-02 15:04"), run.Kind, run.From.Format("2006-01-02"), to, run.ID, partial)
		for _, l := range run.Lines {
			fmt.Fprintf(w, "  %s %s=%s\n", l.Subject, l.Metric, formatHours(l.Value))
		}
	}
	return nil
}
