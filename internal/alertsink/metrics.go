package alertsink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_alertsink_received_total",
		Help: "Count of alerts submitted to the sink by either detection engine.",
	})

	alertsDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_alertsink_deduped_total",
		Help: "Count of alerts dropped as duplicates of an already-persisted alert_key.",
	})

	alertsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_alertsink_persisted_total",
		Help: "Count of alerts durably appended to the alert store.",
	})

	persistRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_alertsink_persist_retries_total",
		Help: "Count of alert-store append attempts beyond the first for a single alert.",
	})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_alertsink_persist_failures_total",
		Help: "Count of alerts that exhausted retry and could not be persisted.",
	})
)
