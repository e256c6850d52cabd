package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestLastMonthRangeAcrossYearBoundary(t *testing.T) {
	now := time.Date(2026, 1, 14, 15, 30, 0, 0, time.UTC)
	r := LastMonthRange(now)
	if want := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC); !r.From.Equal(want) {
		t.Fatalf("From = %s, want %s", r.From, want)
	}
	if want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC); !r.To.Equal(want) {
		t.Fatalf("To = %s, want %s", r.To, want)
	}
}

func TestLastDaysRange(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	r := LastDaysRange(now, 7)
	if want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC); !r.From.Equal(want) {
		t.Fatalf("From = %s, want %s", r.From, want)
	}
	if want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC); !r.To.Equal(want) {
		t.Fatalf("To = %s, want %s", r.To, want)
	}
	if !r.Contains(time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC)) {
		t.Fatal("expected last second of yesterday to be in range")
	}
	if r.Contains(r.To) {
		t.Fatal("range end must be exclusive")
	}
}

func TestSinceDaysAgoIsUnbounded(t *testing.T) {
	r := SinceDaysAgo(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), 7)
	if r.Bounded() {
		t.Fatal("expected open-ended range")
	}
	if !r.Contains(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("open-ended range should contain future instants")
	}
}

func TestInclusiveRange(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	r, err := InclusiveRange(start, end)
	if err != nil {
		t.Fatalf("InclusiveRange: %v", err)
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !r.To.Equal(want) {
		t.Fatalf("To = %s, want %s", r.To, want)
	}
	if _, err := InclusiveRange(end, start); err == nil {
		t.Fatal("expected error for reversed range")
	}
}

func TestParseDate(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	got, err := ParseDate("2026-07-01", loc)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got.Hour() != 0 || got.Location() != loc {
		t.Fatalf("expected local midnight, got %s", got)
	}
	if _, err := ParseDate("2026-07-01T10:00:00Z", loc); err != nil {
		t.Fatalf("ParseDate RFC3339: %v", err)
	}
	if _, err := ParseDate("01/07/2026", loc); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	remote := &RemoteServiceError{Op: "list alerts", StatusCode: 503, Body: "unavailable"}
	wrapped := fmt.Errorf("toil report: %w", remote)
	var rse *RemoteServiceError
	if !errors.As(wrapped, &rse) {
		t.Fatal("expected RemoteServiceError through wrapping")
	}
	if !rse.Retryable() {
		t.Fatal("503 should be retryable")
	}
	if (&RemoteServiceError{Op: "x", StatusCode: 401}).Retryable() {
		t.Fatal("401 should not be retryable")
	}
	if got := remote.Error(); got != "list alerts: opsgenie returned 503: unavailable" {
		t.Fatalf("unexpected message: %q", got)
	}

	if !IsNotFound(fmt.Errorf("lookup: %w", &NotFoundError{Kind: "schedule", Name: "Ops"})) {
		t.Fatal("expected IsNotFound")
	}
	if !IsConfigurationError(NewConfigurationError("opsgenie_api_key", "is required")) {
		t.Fatal("expected IsConfigurationError")
	}
}
