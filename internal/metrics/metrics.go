// Package metrics exposes ingestion and categorization counters on a private
// Prometheus registry.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"fjacquet/csv-ingest/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "csv_ingest"

// Row outcomes.
const (
	RowProcessed = "processed"
	RowDuplicate = "duplicate"
	RowError     = "error"
)

// IngestMetrics records one process' ingestion activity.
type IngestMetrics struct {
	registry *prometheus.Registry

	filesTotal             *prometheus.CounterVec
	fileDuration           *prometheus.HistogramVec
	rowsTotal              *prometheus.CounterVec
	categorizationTotal    *prometheus.CounterVec
	categorizationDuration *prometheus.HistogramVec
}

// NewIngestMetrics creates the collectors and registers them.
func NewIngestMetrics() *IngestMetrics {
	registry := prometheus.NewRegistry()

	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Ingested files by status.",
		},
		[]string{"institution", "status"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "file_duration_seconds",
			Help:      "File ingestion duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	rowsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "CSV rows by outcome.",
		},
		[]string{"outcome"},
	)
	categorizationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "categorization",
			Name:      "results_total",
			Help:      "Categorization results by tier.",
		},
		[]string{"tier"},
	)
	categorizationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "categorization",
			Name:      "duration_seconds",
			Help:      "Time to categorize one transaction by tier.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tier"},
	)

	registry.MustRegister(filesTotal, fileDuration, rowsTotal, categorizationTotal, categorizationDuration)

	return &IngestMetrics{
		registry:               registry,
		filesTotal:             filesTotal,
		fileDuration:           fileDuration,
		rowsTotal:              rowsTotal,
		categorizationTotal:    categorizationTotal,
		categorizationDuration: categorizationDuration,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *IngestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private registry.
func (m *IngestMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFile records a finished file.
func (m *IngestMetrics) ObserveFile(institution string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.filesTotal.WithLabelValues(institution, status).Inc()
	m.fileDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveReport adds the row counters of report.
func (m *IngestMetrics) ObserveReport(report *models.IngestionReport) {
	if report == nil {
		return
	}
	m.rowsTotal.WithLabelValues(RowProcessed).Add(float64(report.Processed))
	m.rowsTotal.WithLabelValues(RowDuplicate).Add(float64(report.Duplicates))
	m.rowsTotal.WithLabelValues(RowError).Add(float64(report.ErrorCount()))
}

// ObserveCategorization records one categorization result.
func (m *IngestMetrics) ObserveCategorization(tier models.Tier, elapsed time.Duration) {
	m.categorizationTotal.WithLabelValues(string(tier)).Inc()
	m.categorizationDuration.WithLabelValues(string(tier)).Observe(elapsed.Seconds())
}

// WriteToTextfile writes the registry for the node exporter textfile
// collector. An empty path is a no-op.
func (m *IngestMetrics) WriteToTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
