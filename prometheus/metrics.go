// Package prometheus instruments extraction with Prometheus metrics.
package prometheus

import (
	"iter"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/prometheus/client_golang/prometheus"
)

// File outcomes.
const (
	OutcomeIndexed = "indexed"
	OutcomeEmpty   = "empty"
)

// Metrics holds the extraction metrics of one process in a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	Files    *prometheus.CounterVec
	Records  *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates and registers the extraction metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docindex_files_total",
			Help: "Files extracted, by outcome.",
		}, []string{"outcome"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docindex_records_total",
			Help: "Records extracted, by kind.",
		}, []string{"kind"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docindex_extract_duration_seconds",
			Help:    "Time spent extracting a single file.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.Files, m.Records, m.Duration)
	return m
}

// WriteToTextfile writes the metrics in the text exposition format, for
// collection by a node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// InstrumentExtractor wraps next so every extracted file updates m.
func (m *Metrics) InstrumentExtractor(next docindex.Extractor) docindex.Extractor {
	return &extractor{next: next, metrics: m}
}

type extractor struct {
	next    docindex.Extractor
	metrics *Metrics
}

func (e *extractor) Extract(file docindex.FileDescriptor) iter.Seq[docindex.Record] {
	return func(yield func(docindex.Record) bool) {
		var records int
		defer func(begin time.Time) {
			e.metrics.Duration.Observe(time.Since(begin).Seconds())
			outcome := OutcomeEmpty
			if records > 0 {
				outcome = OutcomeIndexed
			}
			e.metrics.Files.WithLabelValues(outcome).Inc()
		}(time.Now())

		for rec := range e.next.Extract(file) {
			records++
			e.metrics.Records.WithLabelValues(rec.Kind().String()).Inc()
			if !yield(rec) {
				return
			}
		}
	}
}
