package normalizer

import "vigil/internal/domain"

// QualityRule assigns a weight to a CIM field's presence, used alongside
// the raw extraction ratio when scoring confidence (spec §4.1: "per-field
// weights, bonus rules").
type QualityRule struct {
	Field  string
	Weight float64
}

// DefaultQualityRules weights the fields detections most often key off.
func DefaultQualityRules() []QualityRule {
	return []QualityRule{
		{Field: "event_timestamp", Weight: 2.0},
		{Field: "source_ip", Weight: 1.5},
		{Field: "destination_ip", Weight: 1.0},
		{Field: "user", Weight: 1.0},
		{Field: "action", Weight: 0.5},
	}
}

// ExpectedFields is the set of CIM fields a well-formed event of any format
// is expected to carry; used as the denominator of the extraction ratio.
var ExpectedFields = []string{
	"event_timestamp", "source_ip", "destination_ip", "user", "host", "action",
}

// ScoreConfidence blends the extraction ratio (fields successfully parsed
// over fields expected) with a weighted quality score, then buckets the
// result onto the ordinal scale (spec §4.1).
func ScoreConfidence(extracted map[string]string, expected []string, rules []QualityRule) domain.Confidence {
	if len(expected) == 0 {
		expected = ExpectedFields
	}
	if len(rules) == 0 {
		rules = DefaultQualityRules()
	}

	present := 0
	for _, f := range expected {
		if v, ok := extracted[f]; ok && v != "" {
			present++
		}
	}
	ratio := float64(present) / float64(len(expected))

	var weightSum, totalWeight float64
	for _, rule := range rules {
		totalWeight += rule.Weight
		if v, ok := extracted[rule.Field]; ok && v != "" {
			weightSum += rule.Weight
		}
	}
	var weighted float64
	if totalWeight > 0 {
		weighted = weightSum / totalWeight
	}

	score := (ratio + weighted) / 2
	switch {
	case score >= 0.9:
		return domain.ConfidenceVeryHigh
	case score >= 0.7:
		return domain.ConfidenceHigh
	case score >= 0.45:
		return domain.ConfidenceMedium
	case score >= 0.2:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceVeryLow
	}
}
