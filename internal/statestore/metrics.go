package statestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vigil_statestore_operation_duration_ms",
		Help:    "Latency of state store operations in milliseconds, by operation and backend.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
	}, []string{"operation", "backend"})

	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_statestore_operation_errors_total",
		Help: "Count of state store operations that returned an error, by operation and backend.",
	}, []string{"operation", "backend"})
)
