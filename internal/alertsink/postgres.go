package alertsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"vigil/internal/domain"
)

// PostgresStore persists alerts to the append-only alert_events table
// (spec §6 "Alert store (output)"). Idempotent inserts follow the
// teacher's outbox ON CONFLICT DO NOTHING idiom, keyed on alert_key
// instead of a random row id so dedup is enforced by the database itself,
// not just by the in-process Sink.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pgxpool.Pool. The pool, its
// connection limits, and its lifecycle are owned by the caller (cmd/pipeline).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const insertAlertQuery = `
	INSERT INTO alert_events (
		alert_id, tenant_id, rule_id, alert_key, severity, summary,
		source_event_ids, evidence, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (alert_key) DO NOTHING
`

func (s *PostgresStore) Append(ctx context.Context, alert *domain.Alert) (bool, error) {
	evidence, err := json.Marshal(alert.Evidence)
	if err != nil {
		return false, fmt.Errorf("marshal alert evidence: %w", err)
	}
	sourceIDs, err := json.Marshal(alert.SourceEventIDs)
	if err != nil {
		return false, fmt.Errorf("marshal alert source_event_ids: %w", err)
	}

	tag, err := s.pool.Exec(ctx, insertAlertQuery,
		string(alert.AlertID),
		string(alert.TenantID),
		string(alert.RuleID),
		alert.AlertKey,
		alert.Severity,
		alert.Summary,
		sourceIDs,
		evidence,
		alert.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
