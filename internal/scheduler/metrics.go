package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gosweep_runs_total",
			Help: "Total number of finished runs by result",
		},
		[]string{"result"},
	)

	runsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gosweep_runs_active",
			Help: "Number of simulator processes currently running",
		},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gosweep_run_duration_seconds",
			Help:    "Wall time of a simulator process from launch to exit",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	gateWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gosweep_gate_wait_seconds",
			Help:    "Time an admitted run waited for the start gate",
			Buckets: prometheus.DefBuckets,
		},
	)

	reportRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gosweep_report_rows_total",
			Help: "Total number of rows appended to the report",
		},
	)
)
