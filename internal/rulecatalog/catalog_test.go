package rulecatalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/domain"
	id "vigil/pkg/domain"
)

type countingReader struct {
	calls int
	rules []*domain.Rule
	err   error
}

func (r *countingReader) FetchActiveRules(context.Context) ([]*domain.Rule, error) {
	r.calls++
	return r.rules, r.err
}

func realTimeRule(ruleID id.RuleID, tenantID id.TenantID) *domain.Rule {
	return &domain.Rule{RuleID: ruleID, TenantID: tenantID, EngineType: domain.EngineRealTime, IsActive: true}
}

func scheduledRule(ruleID id.RuleID, tenantID id.TenantID) *domain.Rule {
	return &domain.Rule{RuleID: ruleID, TenantID: tenantID, EngineType: domain.EngineScheduled, IsActive: true}
}

func TestCatalog_ActiveRealTimeRules_FiltersByEngine(t *testing.T) {
	reader := &countingReader{rules: []*domain.Rule{
		realTimeRule("rt-1", "tenant-a"),
		scheduledRule("sch-1", "tenant-a"),
	}}
	cat := New(reader, nil)

	rules, err := cat.ActiveRealTimeRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, id.RuleID("rt-1"), rules[0].RuleID)
}

func TestCatalog_ActiveScheduledRules_FiltersByEngine(t *testing.T) {
	reader := &countingReader{rules: []*domain.Rule{
		realTimeRule("rt-1", "tenant-a"),
		scheduledRule("sch-1", "tenant-a"),
	}}
	cat := New(reader, nil)

	rules, err := cat.ActiveScheduledRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, id.RuleID("sch-1"), rules[0].RuleID)
}

func TestCatalog_ServesCachedSnapshotWithinMaxStaleness(t *testing.T) {
	reader := &countingReader{rules: []*domain.Rule{realTimeRule("rt-1", "tenant-a")}}
	cat := New(reader, nil, WithMaxStaleness(time.Hour))

	_, err := cat.ActiveRealTimeRules(context.Background())
	require.NoError(t, err)
	_, err = cat.ActiveRealTimeRules(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, reader.calls)
}

func TestCatalog_RefetchesOnceStale(t *testing.T) {
	reader := &countingReader{rules: []*domain.Rule{realTimeRule("rt-1", "tenant-a")}}
	cat := New(reader, nil, WithMaxStaleness(time.Millisecond))

	_, err := cat.ActiveRealTimeRules(context.Background())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = cat.ActiveRealTimeRules(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, reader.calls)
}

func TestCatalog_ServesStaleSnapshotWhenRefreshFails(t *testing.T) {
	reader := &countingReader{rules: []*domain.Rule{realTimeRule("rt-1", "tenant-a")}}
	cat := New(reader, nil, WithMaxStaleness(time.Millisecond))

	_, err := cat.ActiveRealTimeRules(context.Background())
	require.NoError(t, err)

	reader.err = errors.New("admin store unreachable")
	time.Sleep(5 * time.Millisecond)
	rules, err := cat.ActiveRealTimeRules(context.Background())

	require.NoError(t, err)
	require.Len(t, rules, 1)
}

func TestCatalog_FirstFetchFailure_ReturnsError(t *testing.T) {
	reader := &countingReader{err: errors.New("admin store unreachable")}
	cat := New(reader, nil)

	_, err := cat.ActiveRealTimeRules(context.Background())
	require.Error(t, err)
}

func TestCatalog_Run_RefreshesOnTicker(t *testing.T) {
	reader := &countingReader{rules: []*domain.Rule{realTimeRule("rt-1", "tenant-a")}}
	cat := New(reader, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	cat.Run(ctx, 5*time.Millisecond)

	assert.GreaterOrEqual(t, reader.calls, 2)
}

func TestStaticReader_ReturnsConfiguredRules(t *testing.T) {
	reader := &StaticReader{Rules: []*domain.Rule{realTimeRule("rt-1", "tenant-a")}}
	rules, err := reader.FetchActiveRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}
