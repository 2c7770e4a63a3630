package domain

import (
	"time"

	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

// EngineType classifies a rule as belonging to the real-time stream
// processor or the scheduled rule engine (spec §4.3 Classification).
type EngineType string

const (
	EngineRealTime  EngineType = "real-time"
	EngineScheduled EngineType = "scheduled"
)

// TrackingType selects the state-store primitive a stateful rule uses
// (spec §3 StatefulConfig).
type TrackingType string

const (
	TrackingCounter TrackingType = "counter"
	TrackingSet     TrackingType = "set"
	TrackingList    TrackingType = "list"
)

// StatefulConfig is the structured sub-entity controlling aggregation,
// thresholds, and state-store tracking mode for a stateful rule (spec §3).
type StatefulConfig struct {
	KeyPrefix        string
	AggregateOn      []string
	Threshold        int
	WindowSeconds    int
	TrackingType     TrackingType
	StateFields      []string
	ComparisonField  string
	// BatchedCounting opts a counter into the local-memory pre-aggregation
	// buffer (SPEC_FULL §4 supplement) instead of a per-event shared-store
	// round trip. Its zero value keeps every rule on the exact, per-event
	// path unless a rule explicitly accepts the precision/throughput
	// tradeoff for a high-traffic, non-precision-critical counter.
	BatchedCounting bool
}

// Validate enforces the StatefulConfig invariants implied by spec §3 and
// §4.4/§4.5: a non-negative threshold, a positive window, and a tracking
// type appropriate to the rule's engine.
func (c StatefulConfig) Validate() error {
	if c.KeyPrefix == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "stateful_config.key_prefix must not be empty")
	}
	if c.Threshold < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "stateful_config.threshold must be non-negative")
	}
	if c.WindowSeconds <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "stateful_config.window_seconds must be positive")
	}
	switch c.TrackingType {
	case TrackingCounter, TrackingSet, TrackingList:
	case "":
		// defaults to counter per spec §3 table
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "stateful_config.tracking_type must be counter, set, or list")
	}
	if c.TrackingType == TrackingSet && c.ComparisonField == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "set tracking requires comparison_field")
	}
	return nil
}

// EffectiveTrackingType returns the tracking type, defaulting to counter per
// spec §3's table.
func (c StatefulConfig) EffectiveTrackingType() TrackingType {
	if c.TrackingType == "" {
		return TrackingCounter
	}
	return c.TrackingType
}

// Rule is the unit of detection logic (spec §3).
type Rule struct {
	RuleID         id.RuleID
	TenantID       id.TenantID
	Name           string
	Description    string
	Query          string
	IsActive       bool
	EngineType     EngineType
	IsStateful     bool
	StatefulConfig *StatefulConfig
	CreatedAt      time.Time
}

// Validate enforces spec §3's rule invariant: a real-time rule's query must
// already have been classified as expressible via pattern/keyword/substring
// tests — callers are expected to have run it through the router
// (internal/transpiler) before persisting engine_type=real-time. Here we
// only check structural well-formedness; semantic classification lives in
// the transpiler package, which is the single place allowed to assign
// engine_type (spec §4.3: "never inferred at execution time").
func (r *Rule) Validate() error {
	if err := id.RequireTenantID(r.TenantID); err != nil {
		return err
	}
	if r.RuleID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "rule_id must not be empty")
	}
	if r.EngineType != EngineRealTime && r.EngineType != EngineScheduled {
		return dErrors.New(dErrors.CodeInvariantViolation, "engine_type must be real-time or scheduled")
	}
	if r.IsStateful {
		if r.StatefulConfig == nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "stateful rule requires stateful_config")
		}
		if err := r.StatefulConfig.Validate(); err != nil {
			return err
		}
	}
	return nil
}
