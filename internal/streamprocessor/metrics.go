package streamprocessor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_streamprocessor_events_processed_total",
		Help: "Count of events run through real-time rule evaluation.",
	})

	rulesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_streamprocessor_rule_matches_total",
		Help: "Count of real-time rule predicate matches, by rule_id.",
	}, []string{"rule_id"})

	ruleEvaluationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_streamprocessor_rule_evaluation_errors_total",
		Help: "Count of rule evaluation errors, by rule_id.",
	}, []string{"rule_id"})

	stateStoreDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_streamprocessor_statestore_degraded",
		Help: "1 when stateful evaluation is running against local-memory fallback or suspended, else 0.",
	})

	alertsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_streamprocessor_alerts_emitted_total",
		Help: "Count of alerts emitted by the real-time layer.",
	})

	preAggregateFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_streamprocessor_preaggregate_flushed_total",
		Help: "Sum of counter deltas flushed from the local pre-aggregation buffer into the shared state store.",
	})

	preAggregateFlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_streamprocessor_preaggregate_flush_errors_total",
		Help: "Count of failed pre-aggregation buffer flushes to the shared state store.",
	})
)
