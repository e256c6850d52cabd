package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"geniereport/internal/domain"
	"geniereport/internal/integrations/opsgenie"
	"geniereport/internal/metrics"
	"geniereport/internal/report"
	"geniereport/internal/storage/sqlite"
	"geniereport/internal/toil"
)

type toilOptions struct {
	days        int
	tags        []string
	quietWindow time.Duration
}

func newToilCmd(root *rootOptions) *cobra.Command {
	opts := &toilOptions{}
	cmd := &cobra.Command{
		Use:   "toil",
		Short: "Toil earned by acknowledging alerts",
		Long: `Counts acknowledgements per user and toil category. A user earns toil for an
acknowledgement only when the previous counted one in the same category is
more than the quiet window old.

Examples:
  geniereport toil --days 14
  geniereport toil --tags prod,db --quiet-window 45m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.RequireAPIKey(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				opts.days = env.cfg.NumDays
			}
			if !cmd.Flags().Changed("tags") {
				opts.tags = env.cfg.Tags
			}
			if !cmd.Flags().Changed("quiet-window") {
				opts.quietWindow = env.cfg.QuietWindow()
			}
			if opts.days < 0 || opts.quietWindow < 0 {
				return fmt.Errorf("--days and --quiet-window must not be negative")
			}
			return env.deliver(cmd.Context(), env.toil(cmd.Context(), *opts))
		},
	}
	cmd.Flags().IntVar(&opts.days, "days", 7, "alerts created this many days back; overrides num_days")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "only alerts carrying all of these tags; overrides tags")
	cmd.Flags().DurationVar(&opts.quietWindow, "quiet-window", 30*time.Minute, "suppression window per user and category; overrides quiet_window_seconds")
	return cmd
}

func (e *runEnv) toil(ctx context.Context, opts toilOptions) outcome {
	meta := report.Meta{Range: domain.SinceDaysAgo(e.now(), opts.days), Location: e.cfg.Location}
	q := opsgenie.AlertQuery{CreatedFrom: meta.Range.From, RequireTags: opts.tags}

	alerts, fetchErr := opsgenie.Collect(e.opsgenieClient().Alerts(ctx, q))
	if fetchErr != nil {
		log.Printf("toil fetch stopped alerts=%d err=%v", len(alerts), fetchErr)
		meta.MarkPartial(fetchErr)
	}
	rep := toil.Build(alerts, toil.CategoriesFromConfig(e.cfg), opts.quietWindow)

	run := &sqlite.Run{Kind: "toil", From: meta.Range.From}
	for _, u := range rep.Users {
		run.Lines = append(run.Lines, sqlite.Line{Subject: u.Actor, Metric: "toil_total", Value: u.Total})
		for _, c := range u.Counts {
			run.Lines = append(run.Lines, sqlite.Line{Subject: u.Actor, Metric: c.Tag + "_acknowledgements", Value: float64(c.Count)})
		}
	}

	return outcome{
		kind: "toil",
		date: e.now(),
		render: func(w io.Writer, f report.Format) error {
			return report.WriteToil(w, f, meta, rep)
		},
		archive:  run,
		observe:  func(exp *metrics.Exporter) { exp.ObserveToil(rep) },
		partial:  meta.Partial,
		fetchErr: fetchErr,
	}
}
