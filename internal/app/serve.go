package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"geniereport/internal/report"
	"geniereport/internal/schedule"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Post reports to Slack on a cron schedule",
		Long: `Runs until interrupted, posting the on-call digest on oncall_post_schedule and
the toil report on toil_post_schedule. Both are 5-field cron expressions in
the configured timezone; a blank expression disables that report.

Examples:
  ONCALL_POST_SCHEDULE="0 19 * * 3" geniereport serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if err := env.cfg.RequireSlack(); err != nil {
				return err
			}
			if err := env.cfg.RequireAPIKey(); err != nil {
				return err
			}
			sched, err := env.scheduler()
			if err != nil {
				return err
			}
			for _, next := range sched.NextRuns(env.now()) {
				fmt.Fprintf(env.stderr, "%s: next run at %s\n", next.Name, next.At.Format(time.RFC1123))
			}
			sched.Run(cmd.Context())
			log.Printf("serve stopped")
			return nil
		},
	}
}

// scheduler registers the posting jobs. Each job posts through its own
// environment so the jobs share no client state.
func (e *runEnv) scheduler() (*schedule.Scheduler, error) {
	sched := schedule.New(e.cfg.Location)

	oncall := schedule.Job{Name: "oncall_post", Spec: e.cfg.OnCallPostSchedule, Run: func(ctx context.Context) error {
		if err := e.cfg.RequireSchedule(); err != nil {
			return err
		}
		job := e.jobEnv()
		out, err := job.onCall(ctx)
		if err != nil {
			return err
		}
		return job.deliver(ctx, out)
	}}
	toilPost := schedule.Job{Name: "toil_post", Spec: e.cfg.ToilPostSchedule, Run: func(ctx context.Context) error {
		job := e.jobEnv()
		return job.deliver(ctx, job.toil(ctx, toilOptions{
			days:        e.cfg.NumDays,
			tags:        e.cfg.Tags,
			quietWindow: e.cfg.QuietWindow(),
		}))
	}}

	for _, job := range []schedule.Job{oncall, toilPost} {
		if err := sched.Add(job); err != nil {
			return nil, err
		}
	}
	if sched.Len() == 0 {
		return nil, fmt.Errorf("nothing to serve: set oncall_post_schedule or toil_post_schedule")
	}
	return sched, nil
}

// jobEnv is a fresh text-only environment that posts to Slack instead of
// printing.
func (e *runEnv) jobEnv() *runEnv {
	return &runEnv{
		cfg:       e.cfg,
		format:    report.FormatText,
		stdin:     e.stdin,
		stdout:    io.Discard,
		stderr:    e.stderr,
		postSlack: true,
		outputDir: e.outputDir,
	}
}
