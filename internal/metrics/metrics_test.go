package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"geniereport/internal/billing"
	"geniereport/internal/stats"
	"geniereport/internal/toil"
)

func TestWriteTextfile(t *testing.T) {
	e := NewExporter()
	e.ObserveRun("toil", true, time.Unix(1772600000, 0))
	e.ObserveToil(toil.Report{Users: []toil.UserToil{{
		Actor:  "alice@example.com",
		Total:  1.5,
		Counts: []toil.CategoryCount{{Tag: "sleepinghours", Count: 3}},
	}}})
	e.ObserveStats(stats.Summary{
		TimeTags: []string{"OOH"},
		Units: []stats.UnitSummary{{
			Name:    "govpress",
			Totals:  stats.Counts{"OOH": 4},
			Clients: []stats.ClientSummary{{Name: "acme", Totals: stats.Counts{"OOH": 2}}},
		}},
	})
	e.ObservePayment([]billing.PaymentLine{{Username: "bob", Hours: 168, Amount: decimal.RequireFromString("1680.50")}})

	path := filepath.Join(t.TempDir(), "geniereport.prom")
	if err := e.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`geniereport_toil_total{actor="alice@example.com"} 1.5`,
		`geniereport_toil_acknowledgements{actor="alice@example.com",category="sleepinghours"} 3`,
		`geniereport_alerts{business_unit="govpress",time_tag="OOH"} 4`,
		`geniereport_client_alerts{business_unit="govpress",client="acme",time_tag="OOH"} 2`,
		`geniereport_oncall_hours{user="bob"} 168`,
		`geniereport_oncall_payment{user="bob"} 1680.5`,
		`geniereport_run_partial{report="toil"} 1`,
		`geniereport_run_timestamp_seconds{report="toil"} 1.7726e+09`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("textfile missing %q:\n%s", want, out)
		}
	}
}
