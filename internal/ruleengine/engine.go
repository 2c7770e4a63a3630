// Package ruleengine implements the scheduled detection layer (spec
// §4.5): on a fixed cadence it executes every active scheduled rule
// against the event store, with long-term set/list stateful rules
// consulting internal/statestore instead of emitting directly.
package ruleengine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"vigil/internal/domain"
	"vigil/internal/statestore"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/platform/tracing"
	"vigil/pkg/requestcontext"
)

// DefaultInterval is the scheduled cycle cadence (spec §4.5: "fixed
// cadence, default 120 s").
const DefaultInterval = 120 * time.Second

// backoffCapMultiplier bounds the postponement backoff at 10x the base
// interval (spec §4.5 "cap: 10 × interval").
const backoffCapMultiplier = 10

// defaultStatelessWindowSeconds buckets alert_key for non-set/list rows
// (stateless rules and SQL-aggregated counter rows, whose threshold test
// already happened in the HAVING clause). It matches the cycle cadence so
// identical findings across adjacent cycles collapse into one alert.
const defaultStatelessWindowSeconds = int(DefaultInterval / time.Second)

// Engine runs the scheduled detection cycle.
type Engine struct {
	rules    RuleSource
	events   EventStore
	store    statestore.Store
	sink     AlertSink
	logger   *slog.Logger
	interval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterval overrides the default 120s cycle cadence.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

func New(rules RuleSource, events EventStore, store statestore.Store, sink AlertSink, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		rules:    rules,
		events:   events,
		store:    store,
		sink:     sink,
		logger:   logger,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives the scheduled cycle until ctx is canceled. A cycle that
// suspects a store-wide outage postpones the next attempt with
// exponential backoff, capped at 10x the base interval; a healthy cycle
// resets the interval back to baseline (spec §4.5 failure semantics).
func (e *Engine) Run(ctx context.Context) error {
	interval := e.interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	current := interval
	cycleBackoffSeconds.Set(current.Seconds())

	ticker := time.NewTicker(current)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cyclesRun.Inc()
			if err := e.runCycle(ctx); err != nil {
				cyclesPostponed.Inc()
				current = nextBackoff(current, interval)
				if e.logger != nil {
					e.logger.Error("scheduled cycle postponed", "error", err, "next_interval", current)
				}
			} else if current != interval {
				current = interval
				if e.logger != nil {
					e.logger.Info("scheduled cycle backoff cleared")
				}
			}
			cycleBackoffSeconds.Set(current.Seconds())
			ticker.Reset(current)
		}
	}
}

func nextBackoff(current, base time.Duration) time.Duration {
	next := current * 2
	ceiling := base * backoffCapMultiplier
	if next > ceiling {
		next = ceiling
	}
	return next
}

// runCycle fetches every active scheduled rule, groups by tenant, and
// executes tenants in parallel / rules within a tenant sequentially in
// lexical rule_id order (spec §4.5 "Tie-breaks and ordering"). If every
// rule attempted this cycle failed, that is treated as a store-wide
// outage and reported so Run backs off the next attempt.
func (e *Engine) runCycle(ctx context.Context) error {
	rules, err := e.rules.ActiveScheduledRules(ctx)
	if err != nil {
		return fmt.Errorf("load scheduled rules: %w", err)
	}

	byTenant := map[id.TenantID][]*domain.Rule{}
	for _, r := range rules {
		byTenant[r.TenantID] = append(byTenant[r.TenantID], r)
	}
	tenants := make([]id.TenantID, 0, len(byTenant))
	for t := range byTenant {
		tenants = append(tenants, t)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i] < tenants[j] })

	var attempted, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, tenant := range tenants {
		tenantRules := byTenant[tenant]
		sort.Slice(tenantRules, func(i, j int) bool { return tenantRules[i].RuleID < tenantRules[j].RuleID })
		g.Go(func() error {
			for _, rule := range tenantRules {
				attempted.Add(1)
				if err := e.runRule(gctx, rule); err != nil {
					failed.Add(1)
					ruleExecutionErrors.WithLabelValues(string(rule.RuleID)).Inc()
					if e.logger != nil {
						e.logger.Error("scheduled rule execution failed",
							"rule_id", rule.RuleID, "tenant_id", rule.TenantID, "error", err)
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if a, f := attempted.Load(), failed.Load(); a > 0 && f == a {
		return fmt.Errorf("all %d scheduled rule executions failed this cycle: %w", a, sentinel.ErrUnavailable)
	}
	return nil
}

// runRule executes one rule's transpiled query with its tenant predicate
// injected and converts results to alerts (spec §4.5).
func (e *Engine) runRule(ctx context.Context, rule *domain.Rule) error {
	ruleExecutions.WithLabelValues(string(rule.RuleID)).Inc()

	ctx, span := tracing.StartSpan(ctx, "ruleengine.eventStoreQuery")
	query := injectTenantPredicate(rule.Query, rule.TenantID)
	rows, err := e.events.Query(ctx, query)
	span.End()
	if err != nil {
		return err
	}

	trackingType := domain.TrackingCounter
	if rule.IsStateful && rule.StatefulConfig != nil {
		trackingType = rule.StatefulConfig.EffectiveTrackingType()
	}

	for _, row := range rows {
		var err error
		switch {
		case rule.IsStateful && trackingType == domain.TrackingSet:
			err = e.evaluateSet(ctx, rule, row)
		case rule.IsStateful && trackingType == domain.TrackingList:
			err = e.evaluateList(ctx, rule, row)
		default:
			err = e.emitStatelessRow(ctx, rule, row)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// emitStatelessRow handles every row that isn't long-term set/list
// tracking: stateless rules and SQL-aggregated counter rows, whose
// threshold test already happened in the HAVING clause, so each
// surviving row converts directly to one alert (spec §4.5 "Results are
// converted to alerts one row per row").
func (e *Engine) emitStatelessRow(ctx context.Context, rule *domain.Rule, row EventRow) error {
	bucket := domain.WindowBucket(requestcontext.Now(ctx), defaultStatelessWindowSeconds)
	aggregateValues := rowAggregateValues(rule, row)
	alertKey := domain.AlertKey(rule.RuleID, rule.TenantID, aggregateValues, bucket)
	return e.emitRowAlert(ctx, rule, row, alertKey)
}

// rowAggregateValues derives the dedup fingerprint's aggregation-values
// component (spec §8 invariant 5) for a row. Rows from a SQL-aggregated
// query are already grouped by AggregateOn, so those columns uniquely
// identify the group. A flat per-event match has no such grouping column,
// so its own event_id stands in — otherwise every row from the same
// keyword/substring rule in one cycle would collapse to a single alert.
func rowAggregateValues(rule *domain.Rule, row EventRow) []string {
	if rule.StatefulConfig != nil && len(rule.StatefulConfig.AggregateOn) > 0 {
		return statestore.FieldValuesOrUnknown(rule.StatefulConfig.AggregateOn, row.Field)
	}
	if row.EventID != "" {
		return []string{string(row.EventID)}
	}
	return nil
}

func (e *Engine) emitRowAlert(ctx context.Context, rule *domain.Rule, row EventRow, alertKey string) error {
	var sourceIDs []id.EventID
	if row.EventID != "" {
		sourceIDs = []id.EventID{row.EventID}
	}

	evidence := make(map[string]string, len(row.Fields))
	for k, v := range row.Fields {
		evidence[k] = v
	}

	alert, err := domain.NewAlert(rule.TenantID, rule.RuleID, alertKey, "medium",
		fmt.Sprintf("scheduled rule %q matched", rule.Name), sourceIDs, evidence, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := e.sink.Emit(ctx, alert); err != nil {
		return err
	}
	alertsEmitted.WithLabelValues(string(rule.RuleID)).Inc()
	return nil
}
