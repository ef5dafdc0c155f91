package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_staging"

// Metrics holds the Prometheus counters, histograms, and gauges for staging runs.
type Metrics struct {
	Runs            *prometheus.CounterVec // labels: status={succeeded,failed}
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge

	// Record flow.
	Members     *prometheus.CounterVec // labels: kind={observation,station,skipped}
	Records     *prometheus.CounterVec // labels: dataset={observation,station}, stage={read,inserted}
	Rejections  *prometheus.CounterVec // labels: rule
	Duplicates  *prometheus.CounterVec // labels: reason={exception,key}
	LoadSeconds prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Staging runs by final status.",
		}, []string{"status"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a staging run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete staging run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		Members: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_members_total",
			Help:      "Archive members by classification.",
		}, []string{"kind"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records by dataset and the last stage they reached.",
		}, []string{"dataset", "stage"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Observations dropped by the first plausibility rule they broke.",
		}, []string{"rule"}),
		Duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Observations removed during deduplication.",
		}, []string{"reason"}),
		LoadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of the stage-then-merge transaction.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// NewMetrics creates and registers all staging metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Runs,
		m.PipelineRunning,
		m.RunDuration,
		m.LastSuccess,
		m.Members,
		m.Records,
		m.Rejections,
		m.Duplicates,
		m.LoadSeconds,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
