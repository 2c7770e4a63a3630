package ruleengine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_ruleengine_cycles_total",
		Help: "Count of scheduled-engine cycles attempted.",
	})

	cyclesPostponed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_ruleengine_cycles_postponed_total",
		Help: "Count of cycles postponed due to a suspected store-wide outage.",
	})

	ruleExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_ruleengine_rule_executions_total",
		Help: "Count of scheduled rule executions, by rule_id.",
	}, []string{"rule_id"})

	ruleExecutionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_ruleengine_rule_execution_errors_total",
		Help: "Count of scheduled rule execution errors, by rule_id.",
	}, []string{"rule_id"})

	alertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_ruleengine_alerts_emitted_total",
		Help: "Count of alerts emitted by the scheduled engine, by rule_id.",
	}, []string{"rule_id"})

	cycleBackoffSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_ruleengine_cycle_backoff_seconds",
		Help: "Current cycle interval, including any outage backoff inflation.",
	})
)
