package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a tracker run.
type Metrics struct {
	RowsLoaded        prometheus.Gauge
	RowsRetained      prometheus.Gauge
	CellsFilled       prometheus.Gauge
	PipelineCompleted prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage={load,clean,derive,render,sink}

	// Chart and sink metrics.
	ChartsRendered *prometheus.CounterVec // labels: chart={cases,vaccinations,snapshot}
	ChartsSkipped  *prometheus.CounterVec // labels: chart
	SinkRecords    *prometheus.CounterVec // labels: sink={kafka,sqlite}
}

// NewMetrics creates and registers all tracker metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsLoaded,
		m.RowsRetained,
		m.CellsFilled,
		m.PipelineCompleted,
		m.StageDuration,
		m.ChartsRendered,
		m.ChartsSkipped,
		m.SinkRecords,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_tracker",
			Name:      "rows_loaded",
			Help:      "Rows read from the input CSV.",
		}),
		RowsRetained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_tracker",
			Name:      "rows_retained",
			Help:      "Rows left after filtering to the tracked locations.",
		}),
		CellsFilled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_tracker",
			Name:      "cells_filled",
			Help:      "Missing cells replaced by forward fill.",
		}),
		PipelineCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_tracker",
			Name:      "pipeline_completed",
			Help:      "1 once the pipeline has finished, 0 before.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covid_tracker",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		ChartsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "charts_rendered_total",
			Help:      "Charts rendered and handed to the display.",
		}, []string{"chart"}),
		ChartsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "charts_skipped_total",
			Help:      "Charts skipped because they had nothing to draw.",
		}, []string{"chart"}),
		SinkRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "sink_records_total",
			Help:      "Observations written to each sink.",
		}, []string{"sink"}),
	}
}
