package pkgchecker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunRecordsMetrics(t *testing.T) {
	jobs := append(manyJobs(8),
		Job{Name: "broken", RPM: "broken.rpm"},
		Job{Name: "files", Requires: []string{"/bin/sh", "rpmlib(PayloadIsZstd) <= 5.4.18-1"}},
	)
	metrics := NewMetrics()
	c := &Checker{Metrics: metrics}

	batch := c.Run(context.Background(), jobs, 3, nil)
	if len(batch.Results) != len(jobs) {
		t.Fatalf("got %d results", len(batch.Results))
	}

	tests := []struct {
		result string
		want   float64
	}{
		{ResultSatisfied, 7},
		{ResultUnsatisfied, 2},
		{ResultError, 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(metrics.checks.WithLabelValues(tt.result)); got != tt.want {
			t.Errorf("checks{result=%q} = %v, want %v", tt.result, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(metrics.missing); got != 2 {
		t.Errorf("missing = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.excluded); got != 2 {
		t.Errorf("excluded = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(metrics.duration); got != 1 {
		t.Errorf("duration collectors = %d, want 1", got)
	}
}

func TestMetricsWriteTextfile(t *testing.T) {
	metrics := NewMetrics()
	metrics.Observe(Result{Name: "a"}, 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "depcheck.prom")
	if err := metrics.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	for _, want := range []string{
		"# TYPE rpm_depcheck_checks_total counter",
		`rpm_depcheck_checks_total{result="unsatisfied"} 1`,
		"rpm_depcheck_check_duration_seconds_count 1",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics lack %q:\n%s", want, data)
		}
	}

	if err := metrics.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestNilMetricsObserve(t *testing.T) {
	var metrics *Metrics
	metrics.Observe(Result{Name: "a"}, time.Second)
}
