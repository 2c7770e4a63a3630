package ruleengine

import (
	"context"
	"database/sql"
	"fmt"

	id "vigil/pkg/domain"
)

// PostgresEventStore executes transpiled analytical-SQL directly against
// the events table, mirroring the teacher's raw database/sql query style
// (internal/ratelimit/store/globalthrottle/store_postgres.go) rather than
// a generated query layer, since every statement here is already fully
// built by internal/transpiler and has no fixed parameter shape to
// generate accessors for.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// Query runs the given statement and scans every returned column into a
// string-keyed row. event_id is lifted out into EventRow.EventID when the
// column is present; aggregation queries (GROUP BY ... HAVING) have no
// such column and leave it empty.
func (s *PostgresEventStore) Query(ctx context.Context, query string) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read event columns: %w", err)
	}

	var out []EventRow
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			fields[col] = stringifyColumn(values[i])
		}

		row := EventRow{Fields: fields}
		if eventID, ok := fields["event_id"]; ok {
			row.EventID = id.EventID(eventID)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return out, nil
}

func stringifyColumn(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
