package ruleengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/domain"
	"vigil/internal/statestore"
	id "vigil/pkg/domain"
)

type fakeRuleSource struct {
	rules []*domain.Rule
	err   error
}

func (f *fakeRuleSource) ActiveScheduledRules(context.Context) ([]*domain.Rule, error) {
	return f.rules, f.err
}

type queryFunc func(ctx context.Context, query string) ([]EventRow, error)

type fakeEventStore struct {
	byRule map[id.RuleID]queryFunc
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{byRule: map[id.RuleID]queryFunc{}}
}

func (f *fakeEventStore) on(ruleID id.RuleID, fn queryFunc) {
	f.byRule[ruleID] = fn
}

// Query dispatches by which rule's query string is being run. Tests embed
// the rule_id as a SQL comment so the fake can tell queries apart without
// a real parser.
func (f *fakeEventStore) Query(ctx context.Context, query string) ([]EventRow, error) {
	for ruleID, fn := range f.byRule {
		if containsRuleMarker(query, ruleID) {
			return fn(ctx, query)
		}
	}
	return nil, nil
}

func containsRuleMarker(query string, ruleID id.RuleID) bool {
	marker := "-- " + string(ruleID)
	return len(query) >= len(marker) && stringsContains(query, marker)
}

func stringsContains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

type fakeSink struct {
	mu     sync.Mutex
	alerts []*domain.Alert
}

func (s *fakeSink) Emit(ctx context.Context, alert *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func statelessRule(ruleID id.RuleID, tenantID id.TenantID) *domain.Rule {
	return &domain.Rule{
		RuleID:     ruleID,
		TenantID:   tenantID,
		Name:       string(ruleID),
		Query:      "SELECT * FROM events WHERE raw_event LIKE '%failed login%' -- " + string(ruleID),
		IsActive:   true,
		EngineType: domain.EngineScheduled,
	}
}

func setModeRule(ruleID id.RuleID, tenantID id.TenantID) *domain.Rule {
	return &domain.Rule{
		RuleID:     ruleID,
		TenantID:   tenantID,
		Name:       string(ruleID),
		Query:      "SELECT * FROM events WHERE event_action = 'login' -- " + string(ruleID),
		IsActive:   true,
		EngineType: domain.EngineScheduled,
		IsStateful: true,
		StatefulConfig: &domain.StatefulConfig{
			KeyPrefix:       "new-country",
			StateFields:     []string{"user"},
			ComparisonField: "src_country",
			WindowSeconds:   86400,
			TrackingType:    domain.TrackingSet,
		},
	}
}

func listModeRule(ruleID id.RuleID, tenantID id.TenantID) *domain.Rule {
	return &domain.Rule{
		RuleID:     ruleID,
		TenantID:   tenantID,
		Name:       string(ruleID),
		Query:      "SELECT * FROM events WHERE event_action != '' -- " + string(ruleID),
		IsActive:   true,
		EngineType: domain.EngineScheduled,
		IsStateful: true,
		StatefulConfig: &domain.StatefulConfig{
			KeyPrefix:       "action-sequence",
			AggregateOn:     []string{"user"},
			ComparisonField: "event_action",
			Threshold:       3,
			WindowSeconds:   3600,
			TrackingType:    domain.TrackingList,
		},
	}
}

func TestInjectTenantPredicate_SimpleQuery(t *testing.T) {
	got := injectTenantPredicate("SELECT * FROM events WHERE event_action = 'login'", "tenant-a")
	assert.Equal(t, "SELECT * FROM events WHERE event_action = 'login' AND tenant_id = 'tenant-a'", got)
}

func TestInjectTenantPredicate_AggregationQuery(t *testing.T) {
	got := injectTenantPredicate(
		"SELECT source_ip, count(*) AS c FROM events WHERE event_action = 'login' GROUP BY source_ip HAVING c > 5",
		"tenant-a")
	assert.Equal(t,
		"SELECT source_ip, count(*) AS c FROM events WHERE event_action = 'login' AND tenant_id = 'tenant-a' GROUP BY source_ip HAVING c > 5",
		got)
}

func TestInjectTenantPredicate_EscapesQuotes(t *testing.T) {
	got := injectTenantPredicate("SELECT * FROM events WHERE 1=1", id.TenantID("o'brien"))
	assert.Contains(t, got, "tenant_id = 'o''brien'")
}

func TestEngine_StatelessRule_EmitsOneAlertPerRow(t *testing.T) {
	rule := statelessRule("bruteforce", "tenant-a")
	events := newFakeEventStore()
	events.on(rule.RuleID, func(ctx context.Context, query string) ([]EventRow, error) {
		return []EventRow{
			{EventID: "evt-1", Fields: map[string]string{"source_ip": "10.0.0.1"}},
			{EventID: "evt-2", Fields: map[string]string{"source_ip": "10.0.0.2"}},
		}, nil
	})
	sink := &fakeSink{}
	store := statestore.New()

	engine := New(&fakeRuleSource{rules: []*domain.Rule{rule}}, events, store, sink, nil)
	require.NoError(t, engine.runCycle(context.Background()))

	assert.Equal(t, 2, sink.count())
}

// TestEngine_SetMode_NewCountryScenario is spec §8 scenario 4: alice logs
// in from US, US, DE. Expected exactly two alerts (first US, first DE).
func TestEngine_SetMode_NewCountryScenario(t *testing.T) {
	rule := setModeRule("new-country", "tenant-a")
	events := newFakeEventStore()
	call := 0
	countries := []string{"US", "US", "DE"}
	events.on(rule.RuleID, func(ctx context.Context, query string) ([]EventRow, error) {
		country := countries[call]
		call++
		return []EventRow{{Fields: map[string]string{"user": "alice", "src_country": country}}}, nil
	})
	sink := &fakeSink{}
	store := statestore.New()
	engine := New(&fakeRuleSource{rules: []*domain.Rule{rule}}, events, store, sink, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.runCycle(context.Background()))
	}

	assert.Equal(t, 2, sink.count())
}

func TestEngine_ListMode_ThresholdAndSubsequence(t *testing.T) {
	rule := listModeRule("action-sequence", "tenant-a")
	events := newFakeEventStore()
	actions := []string{"login", "view_account", "wire_transfer"}
	call := 0
	events.on(rule.RuleID, func(ctx context.Context, query string) ([]EventRow, error) {
		action := actions[call]
		call++
		return []EventRow{{Fields: map[string]string{"user": "alice", "event_action": action}}}, nil
	})
	rule.StatefulConfig.StateFields = []string{"login", "view_account", "wire_transfer"}
	sink := &fakeSink{}
	store := statestore.New()
	engine := New(&fakeRuleSource{rules: []*domain.Rule{rule}}, events, store, sink, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.runCycle(context.Background()))
	}

	assert.Equal(t, 1, sink.count())
}

func TestEngine_ListMode_BelowThresholdEmitsNothing(t *testing.T) {
	rule := listModeRule("action-sequence", "tenant-a")
	events := newFakeEventStore()
	events.on(rule.RuleID, func(ctx context.Context, query string) ([]EventRow, error) {
		return []EventRow{{Fields: map[string]string{"user": "alice", "event_action": "login"}}}, nil
	})
	sink := &fakeSink{}
	store := statestore.New()
	engine := New(&fakeRuleSource{rules: []*domain.Rule{rule}}, events, store, sink, nil)

	require.NoError(t, engine.runCycle(context.Background()))

	assert.Equal(t, 0, sink.count())
}

func TestEngine_RuleExecutionError_DoesNotBlockOtherRules(t *testing.T) {
	failing := statelessRule("bad-rule", "tenant-a")
	good := statelessRule("good-rule", "tenant-a")
	events := newFakeEventStore()
	events.on(failing.RuleID, func(ctx context.Context, query string) ([]EventRow, error) {
		return nil, errors.New("syntax error")
	})
	events.on(good.RuleID, func(ctx context.Context, query string) ([]EventRow, error) {
		return []EventRow{{EventID: "evt-1", Fields: map[string]string{}}}, nil
	})
	sink := &fakeSink{}
	store := statestore.New()
	engine := New(&fakeRuleSource{rules: []*domain.Rule{failing, good}}, events, store, sink, nil)

	require.NoError(t, engine.runCycle(context.Background()))

	assert.Equal(t, 1, sink.count())
}

func TestEngine_AllRulesFail_ReturnsOutageError(t *testing.T) {
	rule := statelessRule("bruteforce", "tenant-a")
	events := newFakeEventStore()
	events.on(rule.RuleID, func(ctx context.Context, query string) ([]EventRow, error) {
		return nil, errors.New("connection refused")
	})
	sink := &fakeSink{}
	store := statestore.New()
	engine := New(&fakeRuleSource{rules: []*domain.Rule{rule}}, events, store, sink, nil)

	err := engine.runCycle(context.Background())
	require.Error(t, err)
}

func TestEngine_RuleSourceOutage_ReturnsError(t *testing.T) {
	source := &fakeRuleSource{err: errors.New("catalog unavailable")}
	engine := New(source, newFakeEventStore(), statestore.New(), &fakeSink{}, nil)

	err := engine.runCycle(context.Background())
	require.Error(t, err)
}

func TestNextBackoff_DoublesAndCapsAtTenTimesInterval(t *testing.T) {
	base := 120 * time.Second
	current := base

	for i := 0; i < 10; i++ {
		current = nextBackoff(current, base)
	}

	assert.Equal(t, base*backoffCapMultiplier, current)
}
