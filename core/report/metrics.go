package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shule",
			Subsystem: "report",
			Name:      "generations_total",
			Help:      "Report generations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	generationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shule",
			Subsystem: "report",
			Name:      "generation_duration_seconds",
			Help:      "Duration of report generations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
