// Package requestcontext provides I/O-independent context accessors for
// request-scoped and cycle-scoped values.
//
// This package defines context keys and getter/setter functions for values
// set by the stream processor, the rule engine, or test harnesses, and
// consumed by the pipeline stages underneath them. Keeping it free of
// net/http and bus-client dependencies lets every stage import only what it
// needs.
//
// Usage in pipeline stages (read values):
//
//	tenant := requestcontext.TenantID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in the processor/engine (set values):
//
//	ctx = requestcontext.WithTenantID(ctx, tenant)
//	ctx = requestcontext.WithRequestID(ctx, cycleID)
//
// Usage in tests (inject a fixed clock and tenant):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithTenantID(ctx, "tenant-a")
package requestcontext

import (
	"context"
	"time"

	id "vigil/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	tenantIDKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyTenantID    = tenantIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// TenantID retrieves the tenant scope for the current event or rule cycle.
// Returns the zero value (empty string) if not set.
func TenantID(ctx context.Context) id.TenantID {
	if t, ok := ctx.Value(ContextKeyTenantID).(id.TenantID); ok {
		return t
	}
	return ""
}

// WithTenantID injects a tenant scope into the context.
func WithTenantID(ctx context.Context, tenantID id.TenantID) context.Context {
	return context.WithValue(ctx, ContextKeyTenantID, tenantID)
}

// RequestID retrieves the correlation ID (a bus message ID, a rule-engine
// cycle ID) from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context, falling back to
// time.Now() when unset. Stages that need "now" for TTL and window-bucket
// arithmetic should call this instead of time.Now() directly, so tests can
// pin the clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed time into a context. Used by tests that assert
// TTL-boundary and window-bucket behavior deterministically.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
