package rulecatalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_rulecatalog_refresh_errors_total",
		Help: "Count of failed admin rule table refreshes.",
	})

	rulesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_rulecatalog_rules_loaded",
		Help: "Count of active rules in the last successful catalog snapshot.",
	})
)
