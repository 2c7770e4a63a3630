package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_eventbus_messages_published_total",
		Help: "Count of messages published, by topic.",
	}, []string{"topic"})

	messagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_eventbus_messages_consumed_total",
		Help: "Count of messages consumed, by topic.",
	}, []string{"topic"})

	handlerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_eventbus_handler_errors_total",
		Help: "Count of handler invocations that returned an error.",
	})
)
