package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aq_unifier"

// Metrics holds the Prometheus counters, histograms, and gauges for the unification pipeline.
type Metrics struct {
	FilesProcessed        *prometheus.CounterVec // labels: source, outcome={ok,<failure reason>}
	ObservationsExtracted *prometheus.CounterVec // labels: source
	Runs                  *prometheus.CounterVec // labels: outcome={success,failure}
	RunDuration           prometheus.Histogram

	// Output table metrics, set after every successful run.
	OutputRows         prometheus.Gauge
	NoDataHours        prometheus.Gauge
	ColumnCompleteness *prometheus.GaugeVec // labels: variable

	SinkWrites       *prometheus.CounterVec // labels: sink={parquet,csv,postgres,kafka}, outcome={success,error}
	LastSuccess      prometheus.Gauge
	SchedulerRunning prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Raw files handled by extraction, by source and outcome.",
		}, []string{"source", "outcome"}),
		ObservationsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_extracted_total",
			Help:      "Observations produced by extraction, by source.",
		}, []string{"source"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-unify-write run.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		OutputRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_rows",
			Help:      "Rows in the last published table.",
		}),
		NoDataHours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "no_data_hours",
			Help:      "Hours without any pollutant value in the last published table.",
		}),
		ColumnCompleteness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "column_completeness_ratio",
			Help:      "Share of non-missing hours per variable in the last published table.",
		}, []string{"variable"}),
		SinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Writes to each sink by outcome.",
		}, []string{"sink", "outcome"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesProcessed,
		m.ObservationsExtracted,
		m.Runs,
		m.RunDuration,
		m.OutputRows,
		m.NoDataHours,
		m.ColumnCompleteness,
		m.SinkWrites,
		m.LastSuccess,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
