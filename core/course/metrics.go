package course

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shule",
			Subsystem: "course",
			Name:      "conflicts_total",
			Help:      "Rejected course bookings by conflicting dimension.",
		},
		[]string{"dimension"},
	)

	lockWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shule",
			Subsystem: "course",
			Name:      "schedule_lock_wait_seconds",
			Help:      "Time spent waiting for the per school and day schedule lock.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)
