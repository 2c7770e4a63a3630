// Package domain holds identifier newtypes shared by every pipeline stage.
// Each ID is an opaque string: the spec treats tenant_id, event_id, rule_id
// and alert_id as caller-supplied opaque strings (not necessarily UUIDs),
// since events and rules may originate outside this system. The types exist
// purely so the compiler rejects passing a RuleID where a TenantID is
// expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "vigil/pkg/domainerrors"
)

type (
	TenantID string
	EventID  string
	RuleID   string
	AlertID  string
)

// NewEventID mints a fresh, unique event identifier for callers that do not
// receive one from upstream (e.g. synthesizing a degraded-pipeline alert's
// evidence event).
func NewEventID() EventID {
	return EventID(uuid.New().String())
}

// NewAlertID mints a fresh alert identifier. Deduplication is governed by
// Alert.AlertKey, not by this identifier.
func NewAlertID() AlertID {
	return AlertID(uuid.New().String())
}

// RequireTenantID validates the tenant isolation invariant (spec §3): every
// entity in the system is partitioned by a non-empty tenant_id.
func RequireTenantID(t TenantID) error {
	if strings.TrimSpace(string(t)) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant_id must not be empty")
	}
	return nil
}

// RequireEventID validates that an event carries a non-empty, stable
// identifier.
func RequireEventID(e EventID) error {
	if strings.TrimSpace(string(e)) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "event_id must not be empty")
	}
	return nil
}
