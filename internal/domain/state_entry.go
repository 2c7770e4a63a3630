package domain

import "time"

// StateEntryKind mirrors TrackingType for the value actually stored, as
// opposed to the rule configuration that requested it.
type StateEntryKind string

const (
	StateEntryCounter StateEntryKind = "counter"
	StateEntrySet     StateEntryKind = "set"
	StateEntryList    StateEntryKind = "list"
)

// StateEntry is the conceptual value behind a state-store key (spec §3):
// keyed by (key_prefix, tenant_id, aggregate_values...), holding either a
// counter, a set of strings, or a capped list of strings, each with an
// absolute expiry. The actual storage lives behind internal/statestore;
// this type documents the shape for callers building evidence snapshots.
type StateEntry struct {
	Kind      StateEntryKind
	Counter   int64
	Members   []string
	ExpiresAt time.Time
}
