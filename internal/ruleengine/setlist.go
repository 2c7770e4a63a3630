package ruleengine

import (
	"context"
	"time"

	"vigil/internal/domain"
	"vigil/internal/statestore"
	"vigil/pkg/requestcontext"
)

// evaluateSet implements spec §4.5's set mode: atomically test-and-add
// comparison_field's value to the set at (prefix, tenant, state_fields),
// emitting an alert exactly when the value is new. This is the "new
// country" scenario (spec §8 scenario 4): the same value never alerts
// twice while it remains in the set's TTL window.
func (e *Engine) evaluateSet(ctx context.Context, rule *domain.Rule, row EventRow) error {
	cfg := rule.StatefulConfig
	stateValues := statestore.FieldValuesOrUnknown(cfg.StateFields, row.Field)
	key := statestore.BuildKey(cfg.KeyPrefix, string(rule.TenantID), stateValues...)

	value, _ := row.Field(cfg.ComparisonField)
	if value == "" {
		value = "unknown"
	}

	wasNew, err := e.store.SetAdd(ctx, key, value)
	if err != nil {
		return err
	}
	if !wasNew {
		return nil
	}
	if err := e.store.SetExpire(ctx, key, time.Duration(cfg.WindowSeconds)*time.Second); err != nil && e.logger != nil {
		e.logger.Warn("failed to set TTL on stateful set key", "key", key, "error", err)
	}

	bucket := domain.WindowBucket(requestcontext.Now(ctx), cfg.WindowSeconds)
	aggregateValues := append(append([]string{}, stateValues...), value)
	alertKey := domain.AlertKey(rule.RuleID, rule.TenantID, aggregateValues, bucket)
	return e.emitRowAlert(ctx, rule, row, alertKey)
}

// evaluateList implements spec §4.5's list mode: prepend the tracked
// value to a capped 100-entry list; once its length crosses threshold,
// emit an alert, optionally requiring state_fields to appear as an
// ordered sub-sequence among the tracked values.
func (e *Engine) evaluateList(ctx context.Context, rule *domain.Rule, row EventRow) error {
	cfg := rule.StatefulConfig
	key := statestore.BuildKey(cfg.KeyPrefix, string(rule.TenantID), statestore.FieldValuesOrUnknown(cfg.AggregateOn, row.Field)...)

	value, _ := row.Field(cfg.ComparisonField)
	if value == "" {
		value = "unknown"
	}

	if err := e.store.ListPrepend(ctx, key, value); err != nil {
		return err
	}
	if err := e.store.ListTrim(ctx, key, maxListEntries); err != nil {
		return err
	}

	length, err := e.store.ListLength(ctx, key)
	if err != nil {
		return err
	}
	if length < cfg.Threshold {
		return nil
	}

	members, err := e.store.ListMembers(ctx, key)
	if err != nil {
		return err
	}
	if len(cfg.StateFields) > 0 && !matchesOrderedSubsequence(members, cfg.StateFields) {
		return nil
	}

	bucket := domain.WindowBucket(requestcontext.Now(ctx), cfg.WindowSeconds)
	alertKey := domain.AlertKey(rule.RuleID, rule.TenantID, []string{key}, bucket)
	return e.emitRowAlert(ctx, rule, row, alertKey)
}

const maxListEntries = 100

// matchesOrderedSubsequence reports whether required appears, in order,
// as a contiguous run within members. members is most-recently-prepended
// first (statestore.Store.ListMembers); required is given in chronological
// (oldest-first) order, so members is walked in reverse to compare.
func matchesOrderedSubsequence(members []string, required []string) bool {
	if len(required) > len(members) {
		return false
	}
	chronological := make([]string, len(members))
	for i, m := range members {
		chronological[len(members)-1-i] = m
	}
	for start := 0; start+len(required) <= len(chronological); start++ {
		match := true
		for i, want := range required {
			if chronological[start+i] != want {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
