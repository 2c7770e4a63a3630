// Package alertsink is the detection layer's single write path (spec
// §4.7): it deduplicates by alert_key within dedup_window_seconds and
// durably appends surviving alerts, acknowledging the producer only after
// persistence succeeds.
package alertsink

import (
	"context"

	"vigil/internal/domain"
)

// Store is the durable append-only port behind Sink. Append is idempotent
// on alert_key: a duplicate key within the store's retention is silently
// absorbed and inserted reports false, never an error (spec §8 round-trip
// law c: "re-emitting an already-delivered alert within the dedup window
// produces no duplicate in the alert store").
type Store interface {
	Append(ctx context.Context, alert *domain.Alert) (inserted bool, err error)
}
