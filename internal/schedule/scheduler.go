package schedule

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"geniereport/internal/domain"
)

// Job is a report run triggered on a 5-field cron expression (minute hour
// day-of-month month day-of-week), e.g. "0 19 * * 3" for Wednesdays at 19:00.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type scheduledJob struct {
	Job
	sched cron.Schedule
}

// Scheduler runs each job in its own goroutine. Runs of the same job never
// overlap; different jobs share no state.
type Scheduler struct {
	loc   *time.Location
	jobs  []scheduledJob
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{loc: loc, now: time.Now, after: time.After}
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Add registers job. A blank spec leaves the job disabled and is not an
// error.
func (s *Scheduler) Add(job Job) error {
	spec := strings.TrimSpace(job.Spec)
	if spec == "" {
		log.Printf("schedule %s disabled (no cron expression)", job.Name)
		return nil
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return domain.NewConfigurationError(job.Name+"_schedule", "invalid cron expression '%s': %v", spec, err)
	}
	job.Spec = spec
	s.jobs = append(s.jobs, scheduledJob{Job: job, sched: sched})
	log.Printf("schedule %s registered cron=%q", job.Name, spec)
	return nil
}

func (s *Scheduler) Len() int {
	return len(s.jobs)
}

type NextRun struct {
	Name string
	At   time.Time
}

// NextRuns reports when each job fires next after now, in registration order.
func (s *Scheduler) NextRuns(now time.Time) []NextRun {
	out := make([]NextRun, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, NextRun{Name: j.Name, At: j.sched.Next(now.In(s.loc))})
	}
	return out
}

// Run blocks until ctx is cancelled. A failing run is logged and the job
// waits for its next slot.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(j scheduledJob) {
			defer wg.Done()
			s.loop(ctx, j)
		}(j)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j scheduledJob) {
	for {
		now := s.now().In(s.loc)
		next := j.sched.Next(now)
		wait := next.Sub(now)
		log.Printf("schedule %s next run at %s (in %s)", j.Name, next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		select {
		case <-ctx.Done():
			return
		case <-s.after(wait):
		}
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		if err := j.Run(ctx); err != nil {
			log.Printf("schedule %s run failed after %s: %v", j.Name, time.Since(start).Round(time.Millisecond), err)
			continue
		}
		log.Printf("schedule %s run done in %s", j.Name, time.Since(start).Round(time.Millisecond))
	}
}
