package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decisions served, partitioned by whether the decision cache answered
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_decisions_total",
			Help: "Total number of ad decisions served",
		},
		[]string{"cache"},
	)

	decisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ads_decision_duration_seconds",
			Help:    "Ad decision latency in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// Share of the pod duration budget filled by computed decisions
	podFillRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ads_pod_fill_ratio",
			Help:    "Filled duration divided by the pod duration budget",
			Buckets: []float64{0, 0.2, 0.4, 0.6, 0.8, 0.9, 1},
		},
	)

	storeDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_store_degraded_total",
			Help: "Total number of store calls that fell back to the degraded answer",
		},
		[]string{"store"},
	)

	// 0=closed, 1=half-open, 2=open
	storeBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ads_store_breaker_state",
			Help: "Circuit breaker state of a store (0=closed, 1=half-open, 2=open)",
		},
		[]string{"store"},
	)

	trackingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_tracking_events_total",
			Help: "Total number of tracking events received",
		},
		[]string{"event_type", "result"},
	)

	reportRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ads_report_rows_written_total",
			Help: "Total number of report rows written by the aggregation job",
		},
	)
)
