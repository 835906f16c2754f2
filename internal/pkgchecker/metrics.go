package pkgchecker

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels of rpm_depcheck_checks_total.
const (
	ResultSatisfied   = "satisfied"
	ResultUnsatisfied = "unsatisfied"
	ResultError       = "error"
)

// Metrics counts the outcome of batch checks. Every Metrics has its own
// registry so runs in the same process do not share counters.
type Metrics struct {
	registry *prometheus.Registry

	checks   *prometheus.CounterVec
	missing  prometheus.Counter
	excluded prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates and registers the collectors of one run.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpm_depcheck_checks_total",
				Help: "Number of package checks by result.",
			},
			[]string{"result"},
		),
		missing: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rpm_depcheck_missing_requirements_total",
				Help: "Number of requirements no provide satisfied.",
			},
		),
		excluded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rpm_depcheck_excluded_requirements_total",
				Help: "Number of rpmlib and file requirements skipped.",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rpm_depcheck_check_duration_seconds",
				Help:    "Time taken to check one package.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	m.registry.MustRegister(m.checks, m.missing, m.excluded, m.duration)
	return m
}

// Observe records one finished job. A nil Metrics ignores the call.
func (m *Metrics) Observe(r Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	switch {
	case r.Err != nil:
		m.checks.WithLabelValues(ResultError).Inc()
	case r.Report.Satisfied:
		m.checks.WithLabelValues(ResultSatisfied).Inc()
	default:
		m.checks.WithLabelValues(ResultUnsatisfied).Inc()
	}
	m.missing.Add(float64(len(r.Report.Missing)))
	m.excluded.Add(float64(r.Report.Excluded))
	m.duration.Observe(elapsed.Seconds())
}

// WriteTextfile writes the metrics in the text exposition format read by the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
