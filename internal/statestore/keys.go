package statestore

import "strings"

const keySeparator = ":"

// BuildKey composes a state-store key from a key_prefix, tenant_id, and the
// ordered aggregate/state-field values (spec §3 StateEntry, §4.4 step 1).
// tenant_id is always the second segment (a non-leading segment, per spec
// §4.6's tenant isolation invariant) so no two tenants can ever collide on
// the same key even if their aggregate values are identical.
func BuildKey(prefix, tenantID string, values ...string) string {
	parts := make([]string, 0, len(values)+2)
	parts = append(parts, prefix, tenantID)
	parts = append(parts, values...)
	return strings.Join(parts, keySeparator)
}

// FieldValuesOrUnknown resolves aggregate_on/state_fields against a field
// lookup function, substituting "unknown" for any field the event doesn't
// carry (spec §4.4 step 1, boundary behavior in §8: "Missing aggregation
// field: the key substitutes 'unknown' and evaluation proceeds").
func FieldValuesOrUnknown(fields []string, lookup func(field string) (string, bool)) []string {
	values := make([]string, len(fields))
	for i, f := range fields {
		if v, ok := lookup(f); ok && v != "" {
			values[i] = v
		} else {
			values[i] = "unknown"
		}
	}
	return values
}
