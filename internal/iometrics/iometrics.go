// Package iometrics keeps Prometheus metrics of harvest runs. A run is a
// short-lived process, so metrics are written to a textfile for the node
// exporter instead of being served.
package iometrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gnames/irts/pkg/harvest"
)

const namespace = "irts"

// Metrics implements harvest.Recorder on its own registry.
type Metrics struct {
	reg *prometheus.Registry

	items    *prometheus.CounterVec
	admitted *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
}

// New creates metrics registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		items: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "harvest",
				Name:      "items_total",
				Help:      "Number of harvested items by source and outcome",
			},
			[]string{"source", "status"},
		),
		admitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "harvest",
				Name:      "admitted_total",
				Help:      "Number of items that received a new identity",
			},
			[]string{"source"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "harvest",
				Name:      "source_failures_total",
				Help:      "Number of aborted source harvests",
			},
			[]string{"source"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "harvest",
				Name:      "source_duration_seconds",
				Help:      "Duration of a source harvest in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
			},
			[]string{"source"},
		),
		lastRun: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "harvest",
				Name:      "last_run_timestamp_seconds",
				Help:      "Time when a source harvest finished",
			},
			[]string{"source"},
		),
	}
}

// ItemDone counts an item outcome.
func (m *Metrics) ItemDone(source string, status harvest.ItemStatus) {
	m.items.WithLabelValues(source, string(status)).Inc()
}

// Admitted counts a new identity.
func (m *Metrics) Admitted(source string) {
	m.admitted.WithLabelValues(source).Inc()
}

// SourceDone records duration and outcome of a source harvest.
func (m *Metrics) SourceDone(source string, d time.Duration, err error) {
	m.duration.WithLabelValues(source).Observe(d.Seconds())
	m.lastRun.WithLabelValues(source).SetToCurrentTime()
	if err != nil {
		m.failures.WithLabelValues(source).Inc()
	}
}

// Registry gives access to collected metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteToTextfile writes metrics in the text exposition format. The file
// is replaced atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return WriteError(path, err)
	}
	slog.Info("Metrics written", "path", path)
	return nil
}
