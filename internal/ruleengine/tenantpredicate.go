package ruleengine

import (
	"fmt"
	"strings"

	id "vigil/pkg/domain"
)

// injectTenantPredicate appends "AND tenant_id = '<t>'" to a transpiled
// query regardless of the rule body (spec §4.5 defense-in-depth measure).
// internal/transpiler emits exactly two shapes: "SELECT * FROM events
// WHERE <clause>" and the aggregation form "SELECT ... WHERE <clause>
// GROUP BY ... HAVING ...". The predicate must land inside the WHERE
// clause, before any GROUP BY, or it would filter the wrong rows.
func injectTenantPredicate(query string, tenantID id.TenantID) string {
	predicate := fmt.Sprintf(" AND tenant_id = '%s'", sqlEscapeTenant(string(tenantID)))
	if idx := strings.Index(query, " GROUP BY "); idx >= 0 {
		return query[:idx] + predicate + query[idx:]
	}
	return query + predicate
}

func sqlEscapeTenant(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
