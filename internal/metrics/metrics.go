// Package metrics holds the Prometheus collectors for analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cellpressure"

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Analyses run, by SOC mode and outcome.",
	}, []string{"mode", "status"})

	RowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_processed_total",
		Help:      "Measurement rows processed by the analysis engine.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Wall time of one analysis run.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"mode"})

	PlotsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "plots_rendered_total",
		Help:      "SVG plots rendered, by plot type.",
	}, []string{"type"})
)

// ObserveAnalysis records one finished run.
func ObserveAnalysis(mode string, rows int, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	AnalysesTotal.WithLabelValues(mode, status).Inc()
	RowsProcessed.Add(float64(rows))
	AnalysisDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}
