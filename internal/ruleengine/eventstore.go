package ruleengine

import (
	"context"

	id "vigil/pkg/domain"
)

// EventRow is one result row from the event store's analytical-SQL query.
// EventID is populated "where available" (spec §4.5): aggregation queries
// group multiple source events into one row and carry no single event_id.
type EventRow struct {
	EventID id.EventID
	Fields  map[string]string
}

// Field looks up a column by name, matching the lookup shape
// internal/statestore.FieldValuesOrUnknown expects.
func (r EventRow) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// EventStore is the scheduled engine's read port into the analytical event
// store (spec §6 "Event store (input and output)"). query is already a
// complete, tenant-scoped SQL statement produced by internal/transpiler
// plus injectTenantPredicate.
type EventStore interface {
	Query(ctx context.Context, query string) ([]EventRow, error)
}
