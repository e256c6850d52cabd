package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one archived report invocation. The archive only records what a
// report printed; Opsgenie stays the source of truth.
type Run struct {
	ID        string
	Kind      string // toil, stats, payment
	From      time.Time
	To        time.Time
	Partial   bool
	CreatedAt time.Time
	Lines     []Line
}

// Line is one figure of a run, e.g. subject "alice@example.com", metric
// "toil_total".
type Line struct {
	Subject string
	Metric  string
	Value   float64
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		range_start DATETIME NOT NULL,
		range_end   DATETIME,
		partial     INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_report_runs_kind_created ON report_runs(kind, created_at);

	CREATE TABLE IF NOT EXISTS report_lines (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id  TEXT NOT NULL REFERENCES report_runs(id),
		subject TEXT NOT NULL,
		metric  TEXT NOT NULL,
		value   REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_report_lines_run ON report_lines(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SaveRun stores run and its lines in one transaction and returns the new
// run ID. CreatedAt defaults to now.
func SaveRun(db *sql.DB, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var rangeEnd any
	if !run.To.IsZero() {
		rangeEnd = run.To.UTC()
	}
	_, err = tx.Exec(
		`INSERT INTO report_runs (id, kind, range_start, range_end, partial, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.From.UTC(), rangeEnd, run.Partial, run.CreatedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO report_lines (run_id, subject, metric, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for _, line := range run.Lines {
		if _, err := stmt.Exec(run.ID, line.Subject, line.Metric, line.Value); err != nil {
			return "", fmt.Errorf("insert line: %w", err)
		}
	}
	return run.ID, tx.Commit()
}

// ListRuns returns the newest runs first, without their lines. An empty kind
// matches every kind.
func ListRuns(db *sql.DB, kind string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT id, kind, range_start, range_end, partial, created_at
		 FROM report_runs
		 WHERE (? = '' OR kind = ?)
		 ORDER BY created_at DESC
		 LIMIT ?`,
		kind, kind, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var rangeEnd sql.NullTime
		if err := rows.Scan(&r.ID, &r.Kind, &r.From, &rangeEnd, &r.Partial, &r.CreatedAt); err != nil {
			return nil, err
		}
		if rangeEnd.Valid {
			r.To = rangeEnd.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func GetRunLines(db *sql.DB, runID string) ([]Line, error) {
	rows, err := db.Query(`SELECT subject, metric, value FROM report_lines WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.Subject, &l.Metric, &l.Value); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
