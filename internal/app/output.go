package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"geniereport/internal/config"
	"geniereport/internal/metrics"
	"geniereport/internal/report"
	"geniereport/internal/storage/sqlite"
)

type renderFunc func(w io.Writer, format report.Format) error

// outcome is a finished report waiting to be delivered.
type outcome struct {
	kind   string
	date   time.Time // names the output file
	render renderFunc

	// slackRender, when set, replaces render for the Slack post.
	slackRender func(ctx context.Context) (renderFunc, error)

	// archive and observe are the optional side outputs; both may be nil.
	archive *sqlite.Run
	observe func(*metrics.Exporter)

	partial  bool
	fetchErr error
}

// deliver writes the report to stdout and every configured side output, then
// applies the fetch error policy.
func (e *runEnv) deliver(ctx context.Context, out outcome) error {
	var buf bytes.Buffer
	if err := out.render(&buf, e.format); err != nil {
		return fmt.Errorf("rendering %s report: %w", out.kind, err)
	}
	if _, err := e.stdout.Write(buf.Bytes()); err != nil {
		return err
	}

	if e.outputDir != "" {
		path, err := report.WriteReportFile(buf.String(), e.outputDir, out.kind, out.date, e.format)
		if err != nil {
			return fmt.Errorf("writing %s report file: %w", out.kind, err)
		}
		log.Printf("report file written kind=%s path=%s", out.kind, path)
	}

	if e.postSlack {
		if err := e.post(ctx, out); err != nil {
			return err
		}
	}

	if out.archive != nil && e.cfg.DBPath != "" {
		if err := e.archive(*out.archive, out.partial); err != nil {
			return err
		}
	}

	if out.observe != nil && e.cfg.MetricsTextfile != "" {
		exp := metrics.NewExporter()
		exp.ObserveRun(out.kind, out.partial, nowFn())
		out.observe(exp)
		if err := exp.WriteTextfile(e.cfg.MetricsTextfile); err != nil {
			return fmt.Errorf("writing metrics textfile: %w", err)
		}
	}

	return e.fetchPolicy(out.kind, out.fetchErr)
}

func (e *runEnv) post(ctx context.Context, out outcome) error {
	render := out.render
	if out.slackRender != nil {
		r, err := out.slackRender(ctx)
		if err != nil {
			return err
		}
		render = r
	}
	var text bytes.Buffer
	if err := render(&text, report.FormatText); err != nil {
		return fmt.Errorf("rendering %s report for slack: %w", out.kind, err)
	}
	poster, err := e.slackPoster()
	if err != nil {
		return err
	}
	return poster.Post(ctx, text.String())
}

func (e *runEnv) archive(run sqlite.Run, partial bool) error {
	db, err := sqlite.InitDB(e.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", e.cfg.DBPath, err)
	}
	defer db.Close()

	run.Partial = partial
	id, err := sqlite.SaveRun(db, run)
	if err != nil {
		return fmt.Errorf("archiving %s run: %w", run.Kind, err)
	}
	log.Printf("report archived kind=%s run=%s lines=%d", run.Kind, id, len(run.Lines))
	return nil
}

// fetchPolicy decides whether a report built from a failed fetch is a
// failure. The report itself has already been delivered either way.
func (e *runEnv) fetchPolicy(kind string, fetchErr error) error {
	if fetchErr == nil {
		return nil
	}
	if e.cfg.OnFetchError == config.FetchErrorSkip {
		log.Printf("%s fetch failed, reported partial data err=%v", kind, fetchErr)
		return nil
	}
	return fmt.Errorf("fetching %s data: %w", kind, fetchErr)
}
