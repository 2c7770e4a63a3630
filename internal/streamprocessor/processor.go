package streamprocessor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/domain"
	"vigil/internal/eventbus"
	"vigil/internal/statestore"
	id "vigil/pkg/domain"
	"vigil/pkg/requestcontext"
)

const (
	systemTenantID = id.TenantID("_system")
	degradedRuleID = id.RuleID("system.statestore-degraded")

	// defaultStatelessWindowSeconds buckets alert_key for stateless rules,
	// which have no stateful_config.window_seconds of their own. It
	// matches the alert sink's default dedup_window_seconds (spec §4.7)
	// so every match of one stateless rule for one tenant within the same
	// five-minute bucket shares an alert_key and collapses to one alert.
	defaultStatelessWindowSeconds = 300
)

// Processor evaluates every active real-time rule for each ingested
// event's tenant and emits matching alerts with sub-second latency (spec
// §4.4). It is the real-time counterpart to internal/ruleengine's scheduled
// cycle.
type Processor struct {
	rules   *RuleCache
	store   statestore.Store
	sink    AlertSink
	logger  *slog.Logger
	degrade *degradeController
	local   *localCounterStore
	preAgg  *preAggregator
}

// Option configures a Processor.
type Option func(*Processor)

// WithRefreshGrace overrides the degrade grace period (default
// DefaultRefreshInterval, matching the rule cache refresh interval per
// spec §4.4: "for at most one refresh interval").
func WithRefreshGrace(d time.Duration) Option {
	return func(p *Processor) { p.degrade = newDegradeController(d) }
}

func New(rules *RuleCache, store statestore.Store, sink AlertSink, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		rules:   rules,
		store:   store,
		sink:    sink,
		logger:  logger,
		degrade: newDegradeController(DefaultRefreshInterval),
		local:   newLocalCounterStore(),
		preAgg:  newPreAggregator(defaultPreAggregateInterval),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunPreAggregation flushes batched-counting counter deltas into the shared
// state store on a fixed tick until ctx is canceled.
func (p *Processor) RunPreAggregation(ctx context.Context) {
	p.preAgg.Run(ctx, p.store, p.logger)
}

// Run consumes normalized, enriched events off bus and evaluates them until
// ctx is canceled. A per-event processing error is logged and does not stop
// the consume loop (spec §7 generalizes per-rule failure isolation to
// per-message here).
func (p *Processor) Run(ctx context.Context, bus eventbus.Bus) error {
	return bus.Consume(ctx, func(ctx context.Context, msg eventbus.Message) error {
		var event domain.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			if p.logger != nil {
				p.logger.Error("discarding unparseable enriched event", "key", msg.Key, "error", err)
			}
			return nil
		}
		return p.ProcessEvent(ctx, &event)
	})
}

// ProcessEvent evaluates every active real-time rule for event's tenant.
// Rules run in declaration (lexical rule_id) order; a single rule's
// evaluation error is logged with the event's fingerprint and that rule is
// skipped, other rules and subsequent events continue (spec §4.4 failure
// semantics).
func (p *Processor) ProcessEvent(ctx context.Context, event *domain.Event) error {
	eventsProcessed.Inc()

	for _, cr := range p.rules.RulesForTenant(event.TenantID) {
		if err := p.evaluateRule(ctx, cr, event); err != nil {
			ruleEvaluationErrors.WithLabelValues(string(cr.Rule.RuleID)).Inc()
			if p.logger != nil {
				p.logger.Error("rule evaluation failed, skipping for this event",
					"rule_id", cr.Rule.RuleID, "tenant_id", event.TenantID,
					"event_id", event.EventID, "error", err)
			}
		}
	}
	return nil
}

func (p *Processor) evaluateRule(ctx context.Context, cr *CompiledRule, event *domain.Event) error {
	if !cr.Predicate.Eval(event) {
		return nil
	}

	if !cr.Rule.IsStateful {
		rulesMatched.WithLabelValues(string(cr.Rule.RuleID)).Inc()
		return p.emitStatelessAlert(ctx, cr.Rule, event)
	}
	return p.evaluateStatefulRule(ctx, cr.Rule, event)
}

func (p *Processor) emitStatelessAlert(ctx context.Context, rule *domain.Rule, event *domain.Event) error {
	now := requestcontext.Now(ctx)
	bucket := domain.WindowBucket(now, defaultStatelessWindowSeconds)
	alertKey := domain.AlertKey(rule.RuleID, event.TenantID, nil, bucket)
	alert, err := domain.NewAlert(event.TenantID, rule.RuleID, alertKey, rule.Name, summarize(rule, event),
		[]id.EventID{event.EventID}, map[string]string{"raw_event": event.RawEvent}, now)
	if err != nil {
		return err
	}
	return p.emit(ctx, alert)
}

// evaluateStatefulRule runs spec §4.4's four-step counter sequence: compose
// key, atomically increment, set expiry on first increment, and alert+reset
// on threshold breach. Incr/SetExpire route through the degrade controller
// so a state-store outage degrades to local-memory counting for at most one
// refresh interval before stateful evaluation suspends.
func (p *Processor) evaluateStatefulRule(ctx context.Context, rule *domain.Rule, event *domain.Event) error {
	cfg := rule.StatefulConfig
	if cfg == nil || cfg.EffectiveTrackingType() != domain.TrackingCounter {
		// set/list tracking is the scheduled layer's responsibility
		// (spec §4.5); the real-time layer only ever sees counters.
		return nil
	}

	values := statestore.FieldValuesOrUnknown(cfg.AggregateOn, event.Field)
	key := statestore.BuildKey(cfg.KeyPrefix, string(event.TenantID), values...)
	window := time.Duration(cfg.WindowSeconds) * time.Second

	if cfg.BatchedCounting {
		return p.evaluatePreAggregatedRule(ctx, rule, event, key, values)
	}

	count, firstIncrement, suspended, err := p.incr(ctx, key, window)
	if err != nil {
		return err
	}
	if suspended {
		return nil
	}
	if firstIncrement {
		if err := p.setExpire(ctx, key, window); err != nil && p.logger != nil {
			p.logger.Warn("failed to set state key expiry", "key", key, "error", err)
		}
	}
	if count <= int64(cfg.Threshold) {
		return nil
	}
	if err := p.emitCounterAlert(ctx, rule, event, key, values); err != nil {
		return err
	}

	// Delete prevents immediate duplicate firings (spec §4.4 step 4).
	// Best effort: a delete failure just means the next increment fires
	// again one event sooner, not a correctness violation.
	if !p.degrade.isOpen() {
		if err := p.store.Delete(ctx, key); err != nil && p.logger != nil {
			p.logger.Warn("failed to delete state key after alert", "key", key, "error", err)
		}
	} else {
		p.local.Delete(key)
	}
	return nil
}

// evaluatePreAggregatedRule handles a rule opted into batched counting (spec
// §9 design note): the per-instance local total is the threshold authority,
// and the shared store only ever sees batched deltas via preAggregator's
// periodic flush, never a per-event round trip.
func (p *Processor) evaluatePreAggregatedRule(ctx context.Context, rule *domain.Rule, event *domain.Event, key string, values []string) error {
	cfg := rule.StatefulConfig
	count := p.preAgg.incr(key)
	if count <= int64(cfg.Threshold) {
		return nil
	}
	if err := p.emitCounterAlert(ctx, rule, event, key, values); err != nil {
		return err
	}
	p.preAgg.reset(key)
	return nil
}

func (p *Processor) emitCounterAlert(ctx context.Context, rule *domain.Rule, event *domain.Event, key string, values []string) error {
	now := requestcontext.Now(ctx)
	bucket := domain.WindowBucket(now, rule.StatefulConfig.WindowSeconds)
	alertKey := domain.AlertKey(rule.RuleID, event.TenantID, values, bucket)
	alert, err := domain.NewAlert(event.TenantID, rule.RuleID, alertKey, rule.Name, summarize(rule, event),
		[]id.EventID{event.EventID}, map[string]string{"aggregate_key": key}, now)
	if err != nil {
		return err
	}
	if err := p.emit(ctx, alert); err != nil {
		return err
	}
	rulesMatched.WithLabelValues(string(rule.RuleID)).Inc()
	return nil
}

// incr returns (postIncrementValue, wasFirstIncrement, suspended, error).
// The state store is attempted on every call, suspended or not — that
// attempt is also how recovery is detected, so suspension never requires a
// separate health check or manual restart. suspended is true once the
// store has been unavailable past its grace period, meaning this rule's
// counter is left untouched (no local fallback counting either) until the
// store succeeds again.
func (p *Processor) incr(ctx context.Context, key string, window time.Duration) (int64, bool, bool, error) {
	v, err := p.store.Incr(ctx, key)
	if err == nil {
		p.degrade.recordSuccess()
		stateStoreDegraded.Set(0)
		return v, v == 1, false, nil
	}

	m, raiseAlert := p.degrade.recordFailure()
	if raiseAlert {
		p.raiseDegradedAlert(ctx)
	}
	stateStoreDegraded.Set(1)
	if m == modeSuspended {
		return 0, false, true, nil
	}

	lv := p.local.Incr(key, window)
	return lv, lv == 1, false, nil
}

func (p *Processor) setExpire(ctx context.Context, key string, window time.Duration) error {
	if p.degrade.isOpen() {
		// local counter store tracks its own expiry on Incr; nothing
		// further to persist while degraded.
		return nil
	}
	return p.store.SetExpire(ctx, key, window)
}

func (p *Processor) raiseDegradedAlert(ctx context.Context) {
	now := requestcontext.Now(ctx)
	bucket := domain.WindowBucket(now, int(DefaultRefreshInterval.Seconds()))
	alertKey := domain.AlertKey(degradedRuleID, systemTenantID, nil, bucket)
	alert, err := domain.NewAlert(systemTenantID, degradedRuleID, alertKey, "critical",
		"stateful rule evaluation suspended: state store unavailable beyond the refresh grace period",
		nil, map[string]string{}, now)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("failed to construct degraded-pipeline alert", "error", err)
		}
		return
	}
	if err := p.emit(ctx, alert); err != nil && p.logger != nil {
		p.logger.Error("failed to emit degraded-pipeline alert", "error", err)
	}
}

func (p *Processor) emit(ctx context.Context, alert *domain.Alert) error {
	if err := p.sink.Emit(ctx, alert); err != nil {
		return err
	}
	alertsEmitted.Inc()
	return nil
}

func summarize(rule *domain.Rule, event *domain.Event) string {
	return fmt.Sprintf("rule %q matched event %s for tenant %s", rule.Name, event.EventID, event.TenantID)
}
