package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"geniereport/internal/billing"
	"geniereport/internal/stats"
	"geniereport/internal/toil"
)

// Exporter collects the figures of one report run and writes them as a
// node_exporter textfile. Each run gets its own registry so a file only ever
// holds the latest run.
type Exporter struct {
	reg *prometheus.Registry

	toilTotal    *prometheus.GaugeVec
	toilCount    *prometheus.GaugeVec
	alertCount   *prometheus.GaugeVec
	clientCount  *prometheus.GaugeVec
	onCallHours  *prometheus.GaugeVec
	paymentTotal *prometheus.GaugeVec
	runPartial   *prometheus.GaugeVec
	runTimestamp *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		toilTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geniereport_toil_total",
			Help: "Toil accrued per user over the report range",
		}, []string{"actor"}),
		toilCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geniereport_toil_acknowledgements",
			Help: "Counted acknowledgements per user and toil category",
		}, []string{"actor", "category"}),
		alertCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geniereport_alerts",
			Help: "Alerts per business unit and time tag",
		}, []string{"business_unit", "time_tag"}),
		clientCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geniereport_client_alerts",
			Help: "Alerts per business unit, client and time tag",
		}, []string{"business_unit", "client", "time_tag"}),
		onCallHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geniereport_oncall_hours",
			Help: "On-call hours per user inside the billing period",
		}, []string{"user"}),
		paymentTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geniereport_oncall_payment",
			Help: "On-call payment per user for the billing period",
		}, []string{"user"}),
		runPartial: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geniereport_run_partial",
			Help: "1 when the last run stopped on a fetch error",
		}, []string{"report"}),
		runTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geniereport_run_timestamp_seconds",
			Help: "Unix time of the last run",
		}, []string{"report"}),
	}
	e.reg.MustRegister(e.toilTotal, e.toilCount, e.alertCount, e.clientCount,
		e.onCallHours, e.paymentTotal, e.runPartial, e.runTimestamp)
	return e
}

func (e *Exporter) ObserveRun(report string, partial bool, at time.Time) {
	v := 0.0
	if partial {
		v = 1
	}
	e.runPartial.WithLabelValues(report).Set(v)
	e.runTimestamp.WithLabelValues(report).Set(float64(at.Unix()))
}

func (e *Exporter) ObserveToil(r toil.Report) {
	for _, u := range r.Users {
		e.toilTotal.WithLabelValues(u.Actor).Set(u.Total)
		for _, c := range u.Counts {
			e.toilCount.WithLabelValues(u.Actor, c.Tag).Set(float64(c.Count))
		}
	}
}

func (e *Exporter) ObserveStats(s stats.Summary) {
	for _, unit := range s.Units {
		for _, tag := range s.TimeTags {
			e.alertCount.WithLabelValues(unit.Name, tag).Set(float64(unit.Totals[tag]))
			for _, client := range unit.Clients {
				e.clientCount.WithLabelValues(unit.Name, client.Name, tag).Set(float64(client.Totals[tag]))
			}
		}
	}
}

func (e *Exporter) ObservePayment(lines []billing.PaymentLine) {
	for _, l := range lines {
		e.onCallHours.WithLabelValues(l.Username).Set(l.Hours)
		e.paymentTotal.WithLabelValues(l.Username).Set(l.Amount.InexactFloat64())
	}
}

// WriteTextfile atomically replaces path with the collected metrics.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.reg); err != nil {
		return err
	}
	log.Printf("metrics textfile written path=%s", path)
	return nil
}
