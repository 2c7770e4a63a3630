package rulecatalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vigil/internal/domain"
	id "vigil/pkg/domain"
)

const fetchActiveRulesQuery = `
SELECT rule_id, tenant_id, name, description, query, engine_type,
       is_stateful, stateful_config, created_at
FROM rules
WHERE is_active = true
ORDER BY tenant_id, rule_id`

// statefulConfigRow mirrors StatefulConfig's JSON shape in the rules
// table's stateful_config column.
type statefulConfigRow struct {
	KeyPrefix         string   `json:"key_prefix"`
	AggregateOn       []string `json:"aggregate_on"`
	Threshold         int      `json:"threshold"`
	WindowSeconds     int      `json:"window_seconds"`
	TrackingType      string   `json:"tracking_type"`
	StateFields       []string `json:"state_fields"`
	ComparisonField   string   `json:"comparison_field"`
	BatchedCounting   bool     `json:"batched_counting"`
}

// PostgresReader loads the full active-rule set with a single query,
// mirroring the raw database/sql style of internal/ruleengine's event
// store: the rules table's stateful_config column has no fixed shape
// sqlc could usefully generate a typed accessor for, so it's decoded here
// from JSON instead.
type PostgresReader struct {
	db *sql.DB
}

func NewPostgresReader(db *sql.DB) *PostgresReader {
	return &PostgresReader{db: db}
}

func (r *PostgresReader) FetchActiveRules(ctx context.Context) ([]*domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx, fetchActiveRulesQuery)
	if err != nil {
		return nil, fmt.Errorf("query active rules: %w", err)
	}
	defer rows.Close()

	var out []*domain.Rule
	for rows.Next() {
		var (
			ruleID, tenantID, name, description, query, engineType string
			isStateful                                             bool
			statefulConfig                                         sql.NullString
			createdAt                                              sql.NullTime
		)
		if err := rows.Scan(&ruleID, &tenantID, &name, &description, &query, &engineType,
			&isStateful, &statefulConfig, &createdAt); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}

		rule := &domain.Rule{
			RuleID:      id.RuleID(ruleID),
			TenantID:    id.TenantID(tenantID),
			Name:        name,
			Description: description,
			Query:       query,
			IsActive:    true,
			EngineType:  domain.EngineType(engineType),
			IsStateful:  isStateful,
			CreatedAt:   createdAt.Time,
		}
		if isStateful && statefulConfig.Valid {
			cfg, err := decodeStatefulConfig(statefulConfig.String)
			if err != nil {
				return nil, fmt.Errorf("decode stateful_config for rule %s: %w", ruleID, err)
			}
			rule.StatefulConfig = cfg
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active rules: %w", err)
	}
	return out, nil
}

func decodeStatefulConfig(raw string) (*domain.StatefulConfig, error) {
	var row statefulConfigRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return nil, err
	}
	return &domain.StatefulConfig{
		KeyPrefix:         row.KeyPrefix,
		AggregateOn:       row.AggregateOn,
		Threshold:         row.Threshold,
		WindowSeconds:     row.WindowSeconds,
		TrackingType:      domain.TrackingType(row.TrackingType),
		StateFields:       row.StateFields,
		ComparisonField:   row.ComparisonField,
		BatchedCounting:   row.BatchedCounting,
	}, nil
}
