package transpiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspile_SimpleKeywordSelection_IsRealTime(t *testing.T) {
	raw := []byte(`
title: Suspicious wget usage
detection:
  selection:
    CommandLine|contains: 'wget http'
  condition: selection
`)
	result, err := Transpile(raw, nil)
	require.NoError(t, err)

	assert.Equal(t, "real-time", result.EngineType)
	assert.Contains(t, result.Query, "CommandLine LIKE '%wget http%'")
	assert.False(t, result.IsStateful)
}

func TestTranspile_RegexModifier_IsScheduled(t *testing.T) {
	raw := []byte(`
title: Regex match
detection:
  selection:
    CommandLine|re: '.*\.exe$'
  condition: selection
`)
	result, err := Transpile(raw, nil)
	require.NoError(t, err)

	assert.Equal(t, "scheduled", result.EngineType)
	assert.Contains(t, result.Query, "CommandLine ~")
}

func TestTranspile_ThreeSelectionBlocks_IsScheduled(t *testing.T) {
	raw := []byte(`
title: Multi-selection
detection:
  selection1:
    FieldA: valueA
  selection2:
    FieldB: valueB
  selection3:
    FieldC: valueC
  condition: selection1 and selection2 and selection3
`)
	result, err := Transpile(raw, nil)
	require.NoError(t, err)

	assert.Equal(t, "scheduled", result.EngineType)
	assert.Contains(t, result.Query, "FieldA = 'valueA'")
}

func TestTranspile_CountThreshold_DefaultsStatefulConfig(t *testing.T) {
	raw := []byte(`
title: Brute force
detection:
  selection:
    EventAction: login_failed
  condition: selection | count() > 5
`)
	result, err := Transpile(raw, nil)
	require.NoError(t, err)

	assert.True(t, result.IsStateful)
	require.NotNil(t, result.StatefulConfig)
	assert.Equal(t, []string{"source_ip"}, result.StatefulConfig.AggregateOn)
	assert.Equal(t, 3600, result.StatefulConfig.WindowSeconds)
	assert.Contains(t, result.Query, "GROUP BY")
	assert.Contains(t, result.Query, "HAVING c > 5")
}

func TestTranspile_Timeframe_AddsTimeWindowPredicate(t *testing.T) {
	raw := []byte(`
title: Windowed
detection:
  selection:
    EventAction: login_failed
  timeframe: 10m
  condition: selection
`)
	result, err := Transpile(raw, nil)
	require.NoError(t, err)

	assert.Contains(t, result.Query, "now() - 600")
	assert.Equal(t, "scheduled", result.EngineType)
}

func TestTranspile_UndefinedSelectionReference_ReturnsInvalidCondition(t *testing.T) {
	raw := []byte(`
title: Bad reference
detection:
  selection:
    FieldA: valueA
  condition: selection and missing
`)
	_, err := Transpile(raw, nil)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidCondition, KindOf(err))
}

func TestTranspile_UnknownModifier_ReturnsUnknownModifier(t *testing.T) {
	raw := []byte(`
title: Bad modifier
detection:
  selection:
    FieldA|frobnicate: valueA
  condition: selection
`)
	_, err := Transpile(raw, nil)
	require.Error(t, err)
	assert.Equal(t, ErrUnknownModifier, KindOf(err))
}

func TestTranspile_MalformedYaml_ReturnsInvalidYaml(t *testing.T) {
	raw := []byte("not: [valid: yaml")
	_, err := Transpile(raw, nil)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidYaml, KindOf(err))
}

func TestTranspile_MissingCondition_ReturnsInvalidYaml(t *testing.T) {
	raw := []byte(`
title: No condition
detection:
  selection:
    FieldA: valueA
`)
	_, err := Transpile(raw, nil)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidYaml, KindOf(err))
}

func TestTranspile_UnsupportedQuantifier_ReturnsUnsupportedFeature(t *testing.T) {
	raw := []byte(`
title: Quantifier
detection:
  selection1:
    FieldA: valueA
  selection2:
    FieldB: valueB
  condition: 1 of them
`)
	_, err := Transpile(raw, nil)
	require.Error(t, err)
	assert.Equal(t, ErrUnsupportedFeature, KindOf(err))
}
