package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/spf13/cobra"

	"geniereport/internal/billing"
	"geniereport/internal/domain"
	"geniereport/internal/integrations/opsgenie"
	"geniereport/internal/metrics"
	"geniereport/internal/report"
	"geniereport/internal/storage/sqlite"
)

func newPaymentCmd(root *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "On-call hours and payment for a billing period",
		Long: `Sums each user's on-call hours inside the billing period and prices them at
payment_rate. A billing period starts on the first billing_weekday of a month
at billing_hour and ends at the same point of the next month.

Examples:
  geniereport payment
  geniereport payment --date 2026-03-15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.RequireSchedule(); err != nil {
				return err
			}
			ref, err := env.cfg.ReferenceDate(env.now())
			if err != nil {
				return err
			}
			if date != "" {
				if ref, err = domain.ParseDate(date, env.cfg.Location); err != nil {
					return domain.NewConfigurationError("date", "%v", err)
				}
			}
			out, err := env.payment(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return env.deliver(cmd.Context(), out)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "any day inside the billing period, YYYY-MM-DD (default opsgenie_date or today)")
	return cmd
}

func (e *runEnv) payment(ctx context.Context, ref time.Time) (outcome, error) {
	period := billing.NewResolver(e.cfg).PeriodContaining(ref)
	client := e.opsgenieClient()

	// The timeline is asked for whole days so the last partial day is covered.
	days := int(math.Ceil(period.Duration().Hours()/24)) + 1
	rotations, err := client.Timeline(ctx, e.cfg.OpsgenieScheduleID, opsgenie.TimelineRequest{
		Date:         period.Start,
		Interval:     days,
		IntervalUnit: "days",
	})
	if err != nil {
		return outcome{}, fmt.Errorf("fetching on-call timeline: %w", err)
	}

	hours := billing.OrderedHours(rotations, e.cfg.OpsgenieRotationIDs, period)
	usernames := make([]string, 0, len(hours))
	for _, uh := range hours {
		usernames = append(usernames, uh.Username)
	}
	names := client.DisplayNames(ctx, usernames)
	lines := billing.PaymentLines(hours, e.cfg.PaymentRateValue, names)
	log.Printf("payment built period_start=%s users=%d", period.Start.Format(time.RFC3339), len(lines))

	p := report.Payment{Period: period, Rate: e.cfg.PaymentRateValue, Currency: e.cfg.CurrencySymbol, Lines: lines}
	meta := report.Meta{Range: domain.DateRange{From: period.Start, To: period.End}, Location: e.cfg.Location}

	run := &sqlite.Run{Kind: "payment", From: period.Start, To: period.End}
	for _, l := range lines {
		run.Lines = append(run.Lines,
			sqlite.Line{Subject: l.Username, Metric: "hours", Value: l.Hours},
			sqlite.Line{Subject: l.Username, Metric: "payment", Value: l.Amount.InexactFloat64()},
		)
	}

	return outcome{
		kind: "payment",
		date: period.Start,
		render: func(w io.Writer, f report.Format) error {
			return report.WritePayment(w, f, meta, p)
		},
		archive: run,
		observe: func(exp *metrics.Exporter) { exp.ObservePayment(lines) },
	}, nil
}
