package eventstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsBuffered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_eventstore_events_buffered_total",
		Help: "Count of events handed to the event store writer.",
	})

	eventsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_eventstore_events_written_total",
		Help: "Count of events successfully copied into the analytical event store.",
	})

	flushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_eventstore_flush_failures_total",
		Help: "Count of failed batch flushes.",
	})

	flushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vigil_eventstore_flush_duration_seconds",
		Help:    "Batch flush latency.",
		Buckets: prometheus.DefBuckets,
	})
)
