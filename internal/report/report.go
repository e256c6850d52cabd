package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"geniereport/internal/domain"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", domain.NewConfigurationError("output", "must be 'text' or 'json', got '%s'", s)
	}
}

// Meta describes the run a report came from.
type Meta struct {
	Range      domain.DateRange
	Location   *time.Location
	Partial    bool
	FetchError string
}

func (m Meta) loc() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

// MarkPartial flags the report as incomplete because of err.
func (m *Meta) MarkPartial(err error) {
	m.Partial = true
	if err != nil {
		m.FetchError = err.Error()
	}
}

func (m Meta) writeBanner(w io.Writer) {
	if !m.Partial {
		return
	}
	fmt.Fprintln(w, "WARNING: this report is partial, fetching stopped early.")
	if m.FetchError != "" {
		fmt.Fprintf(w, "  cause: %s\n", m.FetchError)
	}
	fmt.Fprintln(w)
}

type metaJSON struct {
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Partial bool       `json:"partial"`
	Error   string     `json:"error,omitempty"`
}

func (m Meta) json() metaJSON {
	out := metaJSON{Partial: m.Partial, Error: m.FetchError}
	if !m.Range.From.IsZero() {
		from := m.Range.From.In(m.loc())
		out.From = &from
	}
	if m.Range.Bounded() {
		to := m.Range.To.In(m.loc())
		out.To = &to
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.2f", h)
}

// WriteReportFile stores a rendered report as <kind>_<YYYYMMDD>.<ext> under
// outputDir and returns the path.
func WriteReportFile(content, outputDir, kind string, reportDate time.Time, format Format) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	ext := "txt"
	if format == FormatJSON {
		ext = "json"
	}
	filename := fmt.Sprintf("%s_%s.%s", kind, reportDate.Format("20060102"), ext)
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}
