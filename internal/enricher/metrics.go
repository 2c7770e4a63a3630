package enricher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stageDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "vigil_enricher_stage_duration_ms",
	Help:    "Latency of each enrichment stage in milliseconds.",
	Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50},
}, []string{"stage"})

// metricsRecorder exists so the Enricher doesn't reach for the global
// promauto vector directly from multiple goroutines in the same call —
// it's a thin named seam, not a second metrics system.
type metricsRecorder struct{}

func newMetricsRecorder() *metricsRecorder { return &metricsRecorder{} }

func (m *metricsRecorder) observeStage(stage string, d time.Duration) {
	stageDurationMs.WithLabelValues(stage).Observe(float64(d.Microseconds()) / 1000.0)
}
