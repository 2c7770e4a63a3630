package streamprocessor

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"vigil/internal/domain"
	id "vigil/pkg/domain"
)

// DefaultRefreshInterval is the bounded rule-cache refresh interval (spec
// §4.4: "refreshed from the admin store at a bounded interval, default
// 60 s"). It also doubles as the grace period the degrade controller
// allows a state-store outage before suspending stateful evaluation.
const DefaultRefreshInterval = 60 * time.Second

// RuleSource is the admin rule catalog's read port, as seen by the
// real-time layer (internal/rulecatalog provides the concrete tenant-scoped
// polling implementation described in spec §6).
type RuleSource interface {
	ActiveRealTimeRules(ctx context.Context) ([]*domain.Rule, error)
}

// CompiledRule pairs a rule with the predicate tree compiled from its
// transpiled query, so evaluation never re-parses SQL per event.
type CompiledRule struct {
	Rule      *domain.Rule
	Predicate predicateNode
}

// RuleCache holds an atomic, copy-on-write snapshot of every tenant's
// compiled real-time rules (grounded on the copy-on-write threat-intel
// snapshot pattern in internal/enricher/ioc.go), refreshed on
// DefaultRefreshInterval by default.
type RuleCache struct {
	snapshot atomic.Pointer[map[id.TenantID][]*CompiledRule]
	source   RuleSource
	logger   *slog.Logger
}

func NewRuleCache(source RuleSource, logger *slog.Logger) *RuleCache {
	rc := &RuleCache{source: source, logger: logger}
	empty := map[id.TenantID][]*CompiledRule{}
	rc.snapshot.Store(&empty)
	return rc
}

// RulesForTenant returns the tenant's compiled real-time rules in
// declaration order (lexical rule_id, matching the scheduled layer's tie
// break so evaluation order is predictable across both engines).
func (rc *RuleCache) RulesForTenant(tenantID id.TenantID) []*CompiledRule {
	m := *rc.snapshot.Load()
	return m[tenantID]
}

// Refresh pulls the current active real-time rule set, compiles each
// rule's predicate, and atomically swaps in the new snapshot. A rule that
// fails to compile is logged and dropped from the snapshot rather than
// aborting the whole refresh.
func (rc *RuleCache) Refresh(ctx context.Context) error {
	rules, err := rc.source.ActiveRealTimeRules(ctx)
	if err != nil {
		return err
	}

	byTenant := map[id.TenantID][]*CompiledRule{}
	for _, r := range rules {
		pred, err := compilePredicate(stripSelectClause(r.Query))
		if err != nil {
			if rc.logger != nil {
				rc.logger.Warn("dropping rule with uncompilable predicate",
					"rule_id", r.RuleID, "tenant_id", r.TenantID, "error", err)
			}
			continue
		}
		byTenant[r.TenantID] = append(byTenant[r.TenantID], &CompiledRule{Rule: r, Predicate: pred})
	}
	for tenant := range byTenant {
		sort.Slice(byTenant[tenant], func(i, j int) bool {
			return byTenant[tenant][i].Rule.RuleID < byTenant[tenant][j].Rule.RuleID
		})
	}

	rc.snapshot.Store(&byTenant)
	return nil
}

// Run refreshes the cache immediately and then on every tick of interval
// until ctx is canceled. A refresh failure is logged; the previous
// snapshot keeps serving evaluation in the meantime.
func (rc *RuleCache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if err := rc.Refresh(ctx); err != nil && rc.logger != nil {
		rc.logger.Error("initial rule cache refresh failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rc.Refresh(ctx); err != nil && rc.logger != nil {
				rc.logger.Error("rule cache refresh failed", "error", err)
			}
		}
	}
}

// stripSelectClause extracts the WHERE predicate from a transpiled query of
// the form "SELECT * FROM events WHERE <clause>", which is the only shape
// internal/transpiler produces for rules classified real-time (aggregation
// queries always classify scheduled).
func stripSelectClause(query string) string {
	const marker = "WHERE "
	idx := strings.Index(query, marker)
	if idx < 0 {
		return query
	}
	return query[idx+len(marker):]
}
