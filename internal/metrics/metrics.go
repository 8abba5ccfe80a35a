// Package metrics exports the statistics of a collection run in the
// Prometheus text format, for a node exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Report outcomes.
const (
	Kept        = "kept"
	Removed     = "removed"
	Spam        = "spam"
	MissingBody = "missing_body"
)

// Run collects the statistics of one run.
type Run struct {
	registry *prometheus.Registry
	reports  *prometheus.GaugeVec
	requests *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	finished *prometheus.GaugeVec
	failed   *prometheus.GaugeVec
}

// New creates an empty set of run metrics on its own registry.
func New() *Run {
	m := &Run{
		registry: prometheus.NewRegistry(),
		reports: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tripcorpus_reports",
			Help: "Trip reports handled in the last run, by outcome.",
		}, []string{"phase", "outcome"}),
		requests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tripcorpus_requests",
			Help: "HTTP requests sent in the last run, by host.",
		}, []string{"phase", "host"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tripcorpus_run_duration_seconds",
			Help: "Wall time of the last run.",
		}, []string{"phase"}),
		finished: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tripcorpus_run_finished_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}, []string{"phase"}),
		failed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tripcorpus_run_failed",
			Help: "1 if the last run halted on an error.",
		}, []string{"phase"}),
	}
	m.registry.MustRegister(m.reports, m.requests, m.duration, m.finished, m.failed)
	return m
}

func label(phase int) string {
	return strconv.Itoa(phase)
}

// Reports sets the number of reports with the given outcome.
func (m *Run) Reports(phase int, outcome string, n int) {
	m.reports.WithLabelValues(label(phase), outcome).Set(float64(n))
}

// Requests sets the number of requests sent to each host.
func (m *Run) Requests(phase int, perHost map[string]int) {
	for host, n := range perHost {
		m.requests.WithLabelValues(label(phase), host).Set(float64(n))
	}
}

// Finish records the timing and status of a run.
func (m *Run) Finish(phase int, started, finished time.Time, failed bool) {
	m.duration.WithLabelValues(label(phase)).Set(finished.Sub(started).Seconds())
	m.finished.WithLabelValues(label(phase)).Set(float64(finished.Unix()))
	status := 0.0
	if failed {
		status = 1
	}
	m.failed.WithLabelValues(label(phase)).Set(status)
}

// Gatherer exposes the registry.
func (m *Run) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteFile atomically writes the metrics to path.
func (m *Run) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
