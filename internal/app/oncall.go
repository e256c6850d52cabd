package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"geniereport/internal/billing"
	"geniereport/internal/domain"
	"geniereport/internal/integrations/opsgenie"
	"geniereport/internal/report"
)

func newOnCallCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "oncall",
		Short: "Who is on call over the coming weeks",
		Long: `Lists who is on call at oncall_weekday oncall_hour for the next oncall_weeks
weeks. Today counts when it is the digest weekday. With --slack the digest
mentions users by their Slack handle.

Examples:
  geniereport oncall
  geniereport oncall --slack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.RequireSchedule(); err != nil {
				return err
			}
			out, err := env.onCall(cmd.Context())
			if err != nil {
				return err
			}
			return env.deliver(cmd.Context(), out)
		},
	}
}

func (e *runEnv) onCall(ctx context.Context) (outcome, error) {
	now := e.now()
	instants := billing.WeeklyInstants(now, e.cfg.OnCallDay, e.cfg.OnCallHour, e.cfg.OnCallWeeks)
	from := domain.StartOfDay(instants[0])
	days := int(instants[len(instants)-1].Sub(from).Hours()/24) + 1

	rotations, err := e.opsgenieClient().Timeline(ctx, e.cfg.OpsgenieScheduleID, opsgenie.TimelineRequest{
		Date:         from,
		Interval:     days,
		IntervalUnit: "days",
	})
	if err != nil {
		return outcome{}, fmt.Errorf("fetching on-call timeline: %w", err)
	}
	weeks := billing.WeeklyOnCall(rotations, e.cfg.OpsgenieRotationIDs, instants)
	log.Printf("oncall digest built weeks=%d", len(weeks))

	return outcome{
		kind: "oncall",
		date: now,
		render: func(w io.Writer, f report.Format) error {
			return report.WriteOnCall(w, f, weeks, nil)
		},
		slackRender: func(ctx context.Context) (renderFunc, error) {
			poster, err := e.slackPoster()
			if err != nil {
				return nil, err
			}
			var usernames []string
			for _, wk := range weeks {
				usernames = append(usernames, wk.Users...)
			}
			mentions := poster.Mentions(ctx, usernames)
			return func(w io.Writer, f report.Format) error {
				return report.WriteOnCall(w, f, weeks, mentions)
			}, nil
		},
	}, nil
}

func newNextOnCallCmd(root *rootOptions) *cobra.Command {
	var email, rotation string
	cmd := &cobra.Command{
		Use:   "next-oncall",
		Short: "When a user is next on call",
		Long: `Finds the earliest on-call period of a user, starting after now, in one
rotation. Looks look_ahead_months months ahead.

Examples:
  geniereport next-oncall -e alice@example.com
  geniereport next-oncall -e alice@example.com --rotation 5f3c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.RequireSchedule(); err != nil {
				return err
			}
			if rotation == "" && len(env.cfg.OpsgenieRotationIDs) > 0 {
				rotation = env.cfg.OpsgenieRotationIDs[0]
			}
			out, err := env.nextOnCall(cmd.Context(), email, rotation)
			if err != nil {
				return err
			}
			return env.deliver(cmd.Context(), out)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Opsgenie username (email) to look up")
	cmd.Flags().StringVar(&rotation, "rotation", "", "rotation id (default the first of opsgenie_rotation_ids, else any)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (e *runEnv) nextOnCall(ctx context.Context, username, rotationID string) (outcome, error) {
	now := e.now()
	rotations, err := e.opsgenieClient().Timeline(ctx, e.cfg.OpsgenieScheduleID, opsgenie.TimelineRequest{
		Date:         now,
		Interval:     e.cfg.LookAheadMonths,
		IntervalUnit: "months",
	})
	if err != nil {
		return outcome{}, fmt.Errorf("fetching on-call timeline: %w", err)
	}
	period, found := billing.NextOnCall(rotations, rotationID, username, now)
	log.Printf("next oncall lookup username=%s rotation=%s found=%t", username, rotationID, found)

	n := report.NextOnCall{Username: username, Period: period, Found: found, LookAheadMonths: e.cfg.LookAheadMonths}
	return outcome{
		kind: "next-oncall",
		date: now,
		render: func(w io.Writer, f report.Format) error {
			return report.WriteNextOnCall(w, f, e.cfg.Location, n)
		},
	}, nil
}
