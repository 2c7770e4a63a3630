package enricher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/domain"
	id "vigil/pkg/domain"
)

func sampleEvent() *domain.Event {
	return &domain.Event{
		EventID:            id.NewEventID(),
		TenantID:           "tenant-a",
		EventTimestamp:     time.Now(),
		IngestionTimestamp: time.Now(),
		RawEvent:           `src=10.0.0.1 dest=203.0.113.9 user=alice action=login`,
		ParsingStatus:      domain.ParsingSuccess,
		SourceIP:           "10.0.0.1",
		DestinationIP:      "203.0.113.9",
		User:               "alice",
		Host:               "web01",
		MLBaseConfidence:   domain.ConfidenceMedium,
		CustomFields:       map[string]string{"_parser_id": "splunk-cim"},
	}
}

func TestEnrich_DoesNotMutateRawEventOrIdentity(t *testing.T) {
	e := New(NewIOCTable())
	original := sampleEvent()

	decorated, err := e.Enrich(context.Background(), original)
	require.NoError(t, err)

	assert.Equal(t, original.RawEvent, decorated.RawEvent)
	assert.Equal(t, original.EventID, decorated.EventID)
	assert.Equal(t, original.TenantID, decorated.TenantID)
}

func TestEnrich_IsDeterministicAcrossRuns(t *testing.T) {
	iocs := NewIOCTable()
	iocs.Replace(map[string]float64{"203.0.113.9": 9.0})
	e := New(iocs)
	original := sampleEvent()

	first, err := e.Enrich(context.Background(), original)
	require.NoError(t, err)
	second, err := e.Enrich(context.Background(), original)
	require.NoError(t, err)

	assert.Equal(t, first.ThreatScore, second.ThreatScore)
	assert.Equal(t, first.ThreatRiskLevel, second.ThreatRiskLevel)
	assert.Equal(t, first.MLConfidenceScore, second.MLConfidenceScore)
}

func TestEnrich_IOCMatch_RaisesThreatScoreAndDetected(t *testing.T) {
	iocs := NewIOCTable()
	iocs.Replace(map[string]float64{"203.0.113.9": 9.0})
	e := New(iocs)

	decorated, err := e.Enrich(context.Background(), sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, 9.0, decorated.ThreatScore)
	assert.Equal(t, domain.ThreatRiskHigh, decorated.ThreatRiskLevel)
	assert.True(t, decorated.ThreatDetected)
}

func TestEnrich_KeywordMatch_DetectsThreatWithoutIOC(t *testing.T) {
	e := New(NewIOCTable())
	event := sampleEvent()
	event.RawEvent = `cmd=whoami payload="union select * from users"`

	decorated, err := e.Enrich(context.Background(), event)
	require.NoError(t, err)

	assert.Greater(t, decorated.ThreatScore, 0.0)
	assert.True(t, decorated.ThreatDetected)
}

func TestEnrich_NoSignal_NoThreatDetected(t *testing.T) {
	e := New(NewIOCTable())
	decorated, err := e.Enrich(context.Background(), sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, 0.0, decorated.ThreatScore)
	assert.False(t, decorated.ThreatDetected)
	assert.Equal(t, domain.ThreatRiskNone, decorated.ThreatRiskLevel)
}

func TestAdjustConfidence_RaisesAboveHighThreshold(t *testing.T) {
	adjusted, reason := AdjustConfidence(domain.ConfidenceMedium, 0.9)
	assert.Equal(t, domain.ConfidenceHigh, adjusted)
	assert.Contains(t, reason, "raised")
}

func TestAdjustConfidence_LowersBelowLowThreshold(t *testing.T) {
	adjusted, reason := AdjustConfidence(domain.ConfidenceMedium, 0.1)
	assert.Equal(t, domain.ConfidenceLow, adjusted)
	assert.Contains(t, reason, "lowered")
}

func TestAdjustConfidence_PreservesInMiddleBand(t *testing.T) {
	adjusted, reason := AdjustConfidence(domain.ConfidenceMedium, 0.6)
	assert.Equal(t, domain.ConfidenceMedium, adjusted)
	assert.Contains(t, reason, "preserved")
}

func TestIOCTable_ReplaceIsAtomicAndVisible(t *testing.T) {
	table := NewIOCTable()
	assert.Equal(t, 0.0, table.Lookup("1.2.3.4"))

	table.Replace(map[string]float64{"1.2.3.4": 5.5})
	assert.Equal(t, 5.5, table.Lookup("1.2.3.4"))
}
