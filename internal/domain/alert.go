package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

// WindowBucket quantizes time for dedup and aggregation (GLOSSARY:
// "floor(now / window_seconds)").
func WindowBucket(now time.Time, windowSeconds int) int64 {
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	return now.Unix() / int64(windowSeconds)
}

// AlertKey computes the deterministic dedup fingerprint described in spec
// §3: a function of (rule_id, tenant_id, aggregation values, window
// bucket), so retries never multiply alerts (invariant 8.5).
func AlertKey(ruleID id.RuleID, tenantID id.TenantID, aggregateValues []string, bucket int64) string {
	h := sha256.New()
	h.Write([]byte(ruleID))
	h.Write([]byte{0})
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(aggregateValues, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte{byte(bucket), byte(bucket >> 8), byte(bucket >> 16), byte(bucket >> 24)})
	return hex.EncodeToString(h.Sum(nil))
}

// Alert is the append-only detection output (spec §3).
type Alert struct {
	AlertID        id.AlertID
	TenantID       id.TenantID
	RuleID         id.RuleID
	CreatedAt      time.Time
	SourceEventIDs []id.EventID
	AlertKey       string
	Severity       string
	Summary        string
	Evidence       map[string]string
}

// NewAlert constructs an Alert, validating the invariants in spec §3: a
// non-empty tenant scope, rule reference, and dedup key.
func NewAlert(tenantID id.TenantID, ruleID id.RuleID, alertKey, severity, summary string, sourceEventIDs []id.EventID, evidence map[string]string, now time.Time) (*Alert, error) {
	if err := id.RequireTenantID(tenantID); err != nil {
		return nil, err
	}
	if ruleID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "alert requires rule_id")
	}
	if alertKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "alert requires alert_key")
	}
	if evidence == nil {
		evidence = map[string]string{}
	}
	return &Alert{
		AlertID:        id.NewAlertID(),
		TenantID:       tenantID,
		RuleID:         ruleID,
		CreatedAt:      now,
		SourceEventIDs: sourceEventIDs,
		AlertKey:       alertKey,
		Severity:       severity,
		Summary:        summary,
		Evidence:       evidence,
	}, nil
}
