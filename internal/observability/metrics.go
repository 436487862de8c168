package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// drought indicator pipeline.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ResultsProduced  prometheus.Counter
	RunErrors        prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Acquisition and artifact metrics.
	AcquisitionRequests *prometheus.CounterVec   // labels: source={era5,gdo}, outcome={success,error}
	AcquisitionDuration *prometheus.HistogramVec // labels: source={era5,gdo}
	ArtifactLookups     *prometheus.CounterVec   // labels: kind={raw,processed}, result={hit,miss}
	IndicatorRuns       *prometheus.CounterVec   // labels: product, outcome={completed,empty,failed}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "requests_consumed_total",
			Help:      "Total analysis requests read from the source topic.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "results_produced_total",
			Help:      "Total run results written to the sink topic.",
		}),
		RunErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "run_errors_total",
			Help:      "Total analysis runs that failed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drought_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drought_etl",
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 50},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drought_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-run-load cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		AcquisitionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "acquisition_requests_total",
			Help:      "Source acquisition attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		AcquisitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "drought_etl",
			Name:      "acquisition_duration_seconds",
			Help:      "Source acquisition duration in seconds.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 30, 120, 600},
		}, []string{"source"}),
		ArtifactLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "artifact_lookups_total",
			Help:      "Artifact store lookups by kind and result.",
		}, []string{"kind", "result"}),
		IndicatorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drought_etl",
			Name:      "indicator_runs_total",
			Help:      "Indicator runs by product and outcome.",
		}, []string{"product", "outcome"}),
	}

	prometheus.MustRegister(
		m.RequestsConsumed,
		m.ResultsProduced,
		m.RunErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AcquisitionRequests,
		m.AcquisitionDuration,
		m.ArtifactLookups,
		m.IndicatorRuns,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// call it repeatedly without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RequestsConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_etl", Name: "requests_consumed_total"}),
		ResultsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_etl", Name: "results_produced_total"}),
		RunErrors:               prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_etl", Name: "run_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "drought_etl", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "drought_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "drought_etl", Name: "batch_processing_duration_seconds"}),
		AcquisitionRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "drought_etl", Name: "acquisition_requests_total"}, []string{"source", "outcome"}),
		AcquisitionDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "drought_etl", Name: "acquisition_duration_seconds"}, []string{"source"}),
		ArtifactLookups:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "drought_etl", Name: "artifact_lookups_total"}, []string{"kind", "result"}),
		IndicatorRuns:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "drought_etl", Name: "indicator_runs_total"}, []string{"product", "outcome"}),
	}
}
