// Package eventbus implements the event bus external interface (spec §6):
// a durable ordered log partitioned by tenant-or-source, plus a companion
// dead-letter topic for infrastructure failures that defeat even the
// lenient normalizer.
package eventbus

import "context"

// Message is a single record read off the bus. Key is the partitioning key
// (tenant-or-source); Value is the raw JSON payload handed to the
// normalizer unchanged.
type Message struct {
	Key   string
	Value []byte
}

// Handler processes one Message. Returning an error does not stop the
// consume loop; the bus implementation counts it in the handler-errors
// metric and continues (spec §7:
// "Rule-evaluation errors are per-rule" generalizes here to "per-message").
type Handler func(ctx context.Context, msg Message) error

// Bus is the event bus port every producer (log shippers, collectors) and
// consumer (the normalizer) depends on. Partitioning is always by
// tenant-or-source so ordering is preserved per tenant.
type Bus interface {
	// Publish writes value to the bus, partitioned by key.
	Publish(ctx context.Context, key string, value []byte) error

	// PublishDeadLetter writes value to the companion dead-letter topic,
	// tagged with reason, when an infrastructure failure (not a parsing
	// failure — those always produce a parsing_status=failed event
	// instead) prevents normal processing.
	PublishDeadLetter(ctx context.Context, key string, value []byte, reason string) error

	// Consume runs handler for every message until ctx is canceled.
	Consume(ctx context.Context, handler Handler) error

	// Close releases any underlying connection.
	Close() error
}
