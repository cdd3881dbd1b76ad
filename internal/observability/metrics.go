package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion and reconciliation pipelines.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	StageDuration   *prometheus.HistogramVec // label: stage={validate,fetch,load,quality_gate,reconcile}

	// Weather fetch metrics.
	OutletsValidated prometheus.Gauge
	FetchRequests    *prometheus.CounterVec // label: outcome={success,retry,failure}
	OutletsSkipped   prometheus.Counter
	RowsFetched      prometheus.Counter

	// Load metrics.
	RowsCommitted prometheus.Counter
	ChunksWritten prometheus.Counter

	// Quality gate metrics.
	QualityCheckFailures *prometheus.CounterVec // label: check

	// Reconciliation metrics.
	ReconciledRecords *prometheus.CounterVec // label: flag
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.StageDuration,
		m.OutletsValidated,
		m.FetchRequests,
		m.OutletsSkipped,
		m.RowsFetched,
		m.RowsCommitted,
		m.ChunksWritten,
		m.QualityCheckFailures,
		m.ReconciledRecords,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800, 7200},
		}, []string{"stage"}),
		OutletsValidated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "outlets_validated",
			Help:      "Number of outlets with usable coordinates in the current run.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "fetch_requests_total",
			Help:      "Archive API requests by outcome.",
		}, []string{"outcome"}),
		OutletsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "outlets_skipped_total",
			Help:      "Outlets skipped after exhausting fetch retries.",
		}),
		RowsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "rows_fetched_total",
			Help:      "Hourly readings fetched from the archive API.",
		}),
		RowsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "rows_committed_total",
			Help:      "Readings committed to the weather table.",
		}),
		ChunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "chunks_written_total",
			Help:      "Insert chunks committed by the bulk loader.",
		}),
		QualityCheckFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "quality_check_failures_total",
			Help:      "Quality gate check failures by check name.",
		}, []string{"check"}),
		ReconciledRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "reconciled_records_total",
			Help:      "Reconciliation fact rows produced by quality flag.",
		}, []string{"flag"}),
	}
}
