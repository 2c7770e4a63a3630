package ruleengine

import (
	"context"

	"vigil/internal/domain"
)

// RuleSource is the admin rule catalog's read port, scheduled-layer view
// (internal/rulecatalog provides the concrete tenant-scoped polling
// implementation described in spec §6).
type RuleSource interface {
	ActiveScheduledRules(ctx context.Context) ([]*domain.Rule, error)
}

// AlertSink is the scheduled engine's write port into internal/alertsink
// (spec §4.7), defined locally so this package never imports
// internal/streamprocessor for what is structurally the same one-method
// port.
type AlertSink interface {
	Emit(ctx context.Context, alert *domain.Alert) error
}
