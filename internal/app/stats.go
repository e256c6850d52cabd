package app

import (
	"context"
	"io"
	"log"

	"github.com/spf13/cobra"

	"geniereport/internal/classify"
	"geniereport/internal/domain"
	"geniereport/internal/integrations/opsgenie"
	"geniereport/internal/metrics"
	"geniereport/internal/report"
	"geniereport/internal/stats"
	"geniereport/internal/storage/sqlite"
)

type statsOptions struct {
	lastWeek  bool
	lastMonth bool
	start     string
	end       string
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	opts := &statsOptions{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Alert counts per business unit, time tag and client",
		Long: `Summarizes alerts by business unit, time tag and client. An alert is counted
only when it carries a business unit tag and at least one time tag.

Examples:
  geniereport stats --last-week
  geniereport stats --last-month -o json
  geniereport stats --start 2026-03-01 --end 2026-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.RequireAPIKey(); err != nil {
				return err
			}
			r, err := opts.dateRange(env)
			if err != nil {
				return err
			}
			return env.deliver(cmd.Context(), env.stats(cmd.Context(), r))
		},
	}
	cmd.Flags().BoolVar(&opts.lastWeek, "last-week", false, "the seven days before today (default)")
	cmd.Flags().BoolVar(&opts.lastMonth, "last-month", false, "the previous calendar month")
	cmd.Flags().StringVar(&opts.start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.end, "end", "", "last day (inclusive), YYYY-MM-DD")
	cmd.MarkFlagsRequiredTogether("start", "end")
	cmd.MarkFlagsMutuallyExclusive("last-week", "last-month", "start")
	return cmd
}

func (o statsOptions) dateRange(env *runEnv) (domain.DateRange, error) {
	now := env.now()
	switch {
	case o.lastMonth:
		return domain.LastMonthRange(now), nil
	case o.start != "":
		start, err := domain.ParseDate(o.start, env.cfg.Location)
		if err != nil {
			return domain.DateRange{}, domain.NewConfigurationError("start", "%v", err)
		}
		end, err := domain.ParseDate(o.end, env.cfg.Location)
		if err != nil {
			return domain.DateRange{}, domain.NewConfigurationError("end", "%v", err)
		}
		r, err := domain.InclusiveRange(start, end)
		if err != nil {
			return domain.DateRange{}, domain.NewConfigurationError("end", "%v", err)
		}
		return r, nil
	default:
		return domain.LastDaysRange(now, 7), nil
	}
}

func (e *runEnv) stats(ctx context.Context, r domain.DateRange) outcome {
	meta := report.Meta{Range: r, Location: e.cfg.Location}
	q := opsgenie.AlertQuery{CreatedFrom: r.From, CreatedTo: r.To}

	alerts, fetchErr := opsgenie.Collect(e.opsgenieClient().Alerts(ctx, q))
	if fetchErr != nil {
		log.Printf("stats fetch stopped alerts=%d err=%v", len(alerts), fetchErr)
		meta.MarkPartial(fetchErr)
	}
	summary := stats.Summarize(alerts, classify.VocabularyFromConfig(e.cfg))

	run := &sqlite.Run{Kind: "stats", From: r.From, To: r.To}
	for _, tag := range summary.TimeTags {
		run.Lines = append(run.Lines, sqlite.Line{Subject: "company", Metric: tag, Value: float64(summary.Company[tag])})
	}
	for _, unit := range summary.Units {
		for _, tag := range summary.TimeTags {
			run.Lines = append(run.Lines, sqlite.Line{Subject: unit.Name, Metric: tag, Value: float64(unit.Totals[tag])})
		}
		for _, client := range unit.Clients {
			for _, tag := range summary.TimeTags {
				run.Lines = append(run.Lines, sqlite.Line{Subject: unit.Name + "/" + client.Name, Metric: tag, Value: float64(client.Totals[tag])})
			}
		}
	}

	return outcome{
		kind: "stats",
		date: r.From,
		render: func(w io.Writer, f report.Format) error {
			return report.WriteStats(w, f, meta, summary)
		},
		archive:  run,
		observe:  func(exp *metrics.Exporter) { exp.ObserveStats(summary) },
		partial:  meta.Partial,
		fetchErr: fetchErr,
	}
}
