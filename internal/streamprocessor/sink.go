package streamprocessor

import (
	"context"

	"vigil/internal/domain"
)

// AlertSink is the detection layer's write port into internal/alertsink
// (spec §4.7): both detection engines only ever append through here, never
// deduplicating or persisting themselves.
type AlertSink interface {
	Emit(ctx context.Context, alert *domain.Alert) error
}
