// Package metrics records run figures as Prometheus gauges and writes them in
// the node_exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/panbanda/cpd/pkg/detector"
)

// Metrics holds the collectors for one cpd run.
type Metrics struct {
	registry *prometheus.Registry

	FilesScanned    prometheus.Gauge
	FilesSkipped    prometheus.Gauge
	Clones          prometheus.Gauge
	DuplicatedLines prometheus.Gauge
	TotalLines      prometheus.Gauge
	Percentage      prometheus.Gauge
	Duration        prometheus.Gauge
	CloneLines      prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "cpd", Name: name, Help: help})
	}
	m := &Metrics{
		registry:        prometheus.NewRegistry(),
		FilesScanned:    gauge("files_scanned", "Number of files tokenized."),
		FilesSkipped:    gauge("files_skipped", "Number of files skipped as unreadable, binary or too large."),
		Clones:          gauge("clones", "Number of clones found."),
		DuplicatedLines: gauge("duplicated_lines", "Number of distinct lines covered by a clone."),
		TotalLines:      gauge("total_lines", "Number of lines scanned."),
		Percentage:      gauge("duplicated_lines_percentage", "Share of scanned lines that are duplicated."),
		Duration:        gauge("duration_seconds", "Wall time of the detection run."),
		CloneLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cpd",
			Name:      "clone_lines",
			Help:      "Size of each clone in lines.",
			Buckets:   []float64{5, 10, 20, 50, 100, 250, 500},
		}),
	}

	m.registry.MustRegister(
		m.FilesScanned,
		m.FilesSkipped,
		m.Clones,
		m.DuplicatedLines,
		m.TotalLines,
		m.Percentage,
		m.Duration,
		m.CloneLines,
	)
	return m
}

// Observe records a detection result.
func (m *Metrics) Observe(res *detector.Result) {
	m.FilesScanned.Set(float64(res.FilesScanned))
	m.FilesSkipped.Set(float64(len(res.Skipped)))
	m.Clones.Set(float64(res.Len()))
	m.DuplicatedLines.Set(float64(res.DuplicatedLines))
	m.TotalLines.Set(float64(res.TotalLines))
	m.Percentage.Set(res.Percentage)
	m.Duration.Set(res.Duration.Seconds())
	for _, c := range res.Clones {
		m.CloneLines.Observe(float64(c.Lines))
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes the collected metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
