package normalizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dErrors "vigil/pkg/domainerrors"
)

var (
	parsesSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_normalizer_parses_succeeded_total",
		Help: "Count of payloads successfully parsed, by parser ID.",
	}, []string{"parser_id"})

	parseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_normalizer_parse_errors_total",
		Help: "Count of payloads where the selected parser returned an error.",
	}, []string{"parser_id"})

	parsesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_normalizer_parses_rejected_total",
		Help: "Count of payloads no registered parser accepted (always recovered into a failed event).",
	})
)

var errNoParserAccepted = dErrors.New(dErrors.CodeInvalidInput, "no registered parser accepted the input")
