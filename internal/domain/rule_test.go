package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatefulConfig_Validate(t *testing.T) {
	t.Run("rejects missing key_prefix", func(t *testing.T) {
		c := StatefulConfig{Threshold: 5, WindowSeconds: 300}
		require.Error(t, c.Validate())
	})

	t.Run("rejects negative threshold", func(t *testing.T) {
		c := StatefulConfig{KeyPrefix: "bf", Threshold: -1, WindowSeconds: 300}
		require.Error(t, c.Validate())
	})

	t.Run("rejects zero window", func(t *testing.T) {
		c := StatefulConfig{KeyPrefix: "bf", Threshold: 5, WindowSeconds: 0}
		require.Error(t, c.Validate())
	})

	t.Run("set tracking requires comparison_field", func(t *testing.T) {
		c := StatefulConfig{KeyPrefix: "nc", Threshold: 0, WindowSeconds: 86400, TrackingType: TrackingSet}
		require.Error(t, c.Validate())
	})

	t.Run("accepts a well-formed counter config", func(t *testing.T) {
		c := StatefulConfig{KeyPrefix: "bf", AggregateOn: []string{"source_ip"}, Threshold: 5, WindowSeconds: 300}
		require.NoError(t, c.Validate())
		assert.Equal(t, TrackingCounter, c.EffectiveTrackingType())
	})
}

func TestRule_Validate(t *testing.T) {
	base := Rule{
		RuleID:     "rule-1",
		TenantID:   "tenant-a",
		EngineType: EngineRealTime,
		CreatedAt:  time.Now(),
	}

	t.Run("rejects empty tenant", func(t *testing.T) {
		r := base
		r.TenantID = ""
		require.Error(t, r.Validate())
	})

	t.Run("rejects unknown engine type", func(t *testing.T) {
		r := base
		r.EngineType = "batch"
		require.Error(t, r.Validate())
	})

	t.Run("stateful rule requires stateful_config", func(t *testing.T) {
		r := base
		r.IsStateful = true
		require.Error(t, r.Validate())
	})

	t.Run("accepts a well-formed stateful rule", func(t *testing.T) {
		r := base
		r.IsStateful = true
		r.StatefulConfig = &StatefulConfig{
			KeyPrefix:     "bf",
			AggregateOn:   []string{"source_ip"},
			Threshold:     5,
			WindowSeconds: 300,
		}
		require.NoError(t, r.Validate())
	})
}
