package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"geniereport/internal/domain"
	"geniereport/internal/report"
)

func newSchedulesCmd(root *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "List schedules or show one schedule's rotations",
		Long: `Without --name lists every schedule. With --name prints the schedule's id and
its rotations; an unknown name is reported, not treated as a failure.

Examples:
  geniereport schedules
  geniereport schedules -n "Platform On-Call"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.RequireAPIKey(); err != nil {
				return err
			}
			out, err := env.schedules(cmd.Context(), name)
			if err != nil {
				return err
			}
			return env.deliver(cmd.Context(), out)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "schedule name to look up")
	return cmd
}

func (e *runEnv) schedules(ctx context.Context, name string) (outcome, error) {
	client := e.opsgenieClient()
	out := outcome{kind: "schedules", date: e.now()}

	if name == "" {
		schedules, err := client.ListSchedules(ctx)
		if err != nil {
			return outcome{}, fmt.Errorf("listing schedules: %w", err)
		}
		out.render = func(w io.Writer, f report.Format) error {
			return report.WriteSchedules(w, f, schedules)
		}
		return out, nil
	}

	schedule, err := client.FindScheduleByName(ctx, name)
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		out.render = func(w io.Writer, f report.Format) error {
			return report.WriteNotFound(w, f, nf)
		}
		return out, nil
	}
	if err != nil {
		return outcome{}, fmt.Errorf("looking up schedule '%s': %w", name, err)
	}
	out.render = func(w io.Writer, f report.Format) error {
		return report.WriteScheduleRotations(w, f, schedule)
	}
	return out, nil
}
