// Package statestore implements the correlation substrate (spec §4.6):
// atomic counter/set/list primitives with absolute-expiry TTLs, scoped by
// composite keys that always carry tenant_id as a non-leading segment so
// cross-tenant collisions are structurally impossible (spec §3, §8
// invariant 6).
package statestore

import (
	"context"
	"time"
)

// Store is the correlation substrate's port. Every method is a single I/O
// suspension point (spec §5) and must be safe under concurrent callers;
// Incr in particular must be atomic (spec §8 invariant 4).
type Store interface {
	// Incr atomically increments the counter at key and returns the
	// post-increment value.
	Incr(ctx context.Context, key string) (int64, error)

	// IncrBy atomically adds delta to the counter at key and returns the
	// post-increment value. It exists for callers that batch several local
	// increments into one shared-store round trip (spec §9 design note: a
	// non-precision-critical counter's local pre-aggregation flush).
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// SetExpire sets an absolute-from-now TTL on key. Calling Incr then
	// SetExpire is not atomic as a pair (spec §4.6): a racing observer may
	// transiently see an unexpired key, corrected by the next call.
	SetExpire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes key immediately, used after a counter alert fires to
	// prevent immediate duplicate firings (spec §4.4 step 4).
	Delete(ctx context.Context, key string) error

	// SetAdd atomically adds member to the set at key, reporting whether it
	// was new. wasNew=true is the "first time seen" signal the rule engine's
	// set mode depends on (spec §4.5).
	SetAdd(ctx context.Context, key, member string) (wasNew bool, err error)

	// SetMembers returns every member currently in the set at key.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// ListPrepend prepends value to the list at key.
	ListPrepend(ctx context.Context, key, value string) error

	// ListTrim caps the list at key to its first maxLen entries (most
	// recently prepended first), per spec §4.5 "retain last 100 entries".
	ListTrim(ctx context.Context, key string, maxLen int) error

	// ListLength returns the current length of the list at key.
	ListLength(ctx context.Context, key string) (int, error)

	// ListMembers returns the list at key, most recently prepended first.
	ListMembers(ctx context.Context, key string) ([]string, error)

	// GetTTL returns the remaining TTL on key, or a negative duration if
	// the key does not exist or carries no expiry.
	GetTTL(ctx context.Context, key string) (time.Duration, error)
}
