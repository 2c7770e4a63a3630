package enricher

import (
	"fmt"
	"math"
	"net"
	"time"

	"vigil/internal/domain"
)

// FeatureVector is the set of signals extracted from a parsed event that
// feed the ML confidence adjustment (spec §4.2).
type FeatureVector struct {
	ExtractionRatio    float64
	FieldCount         int
	PatternMatchStrength float64
	Entropy            float64
	HasWellFormedTime  bool
	HasWellFormedIPs   bool
	LogLength          int
}

// Weights are the learned (here: hand-tuned default) weights combined with
// the feature vector and the parser's historical accuracy.
type Weights struct {
	ExtractionRatio float64
	FieldCount      float64
	PatternMatch    float64
	Entropy         float64
	WellFormedTime  float64
	WellFormedIPs   float64
	LogLength       float64
	ParserAccuracy  float64
}

// DefaultWeights mirrors spec §4.2's "defaults provided".
func DefaultWeights() Weights {
	return Weights{
		ExtractionRatio: 0.25,
		FieldCount:      0.10,
		PatternMatch:    0.15,
		Entropy:         0.10,
		WellFormedTime:  0.10,
		WellFormedIPs:   0.10,
		LogLength:       0.05,
		ParserAccuracy:  0.15,
	}
}

// ExtractFeatures derives a FeatureVector from a parsed event.
func ExtractFeatures(e *domain.Event) FeatureVector {
	fieldCount := countPopulatedFields(e)
	ratio := float64(fieldCount) / float64(len(knownCIMFieldGetters))

	return FeatureVector{
		ExtractionRatio:      ratio,
		FieldCount:           fieldCount,
		PatternMatchStrength: confidenceAsRatio(e.MLBaseConfidence),
		Entropy:              shannonEntropy(e.RawEvent),
		HasWellFormedTime:    !e.EventTimestamp.IsZero() && e.EventTimestamp.Before(timeFarFuture()),
		HasWellFormedIPs:     wellFormedIP(e.SourceIP) || wellFormedIP(e.DestinationIP),
		LogLength:            len(e.RawEvent),
	}
}

// Score combines a FeatureVector, the configured weights, and the parser's
// historical accuracy (in [0,1]) into a single adjustment score in [0,1].
func Score(f FeatureVector, w Weights, parserAccuracy float64) float64 {
	normalizedEntropy := f.Entropy / 8.0 // max Shannon entropy for byte data is 8 bits
	if normalizedEntropy > 1 {
		normalizedEntropy = 1
	}
	normalizedFieldCount := float64(f.FieldCount) / float64(len(knownCIMFieldGetters))
	if normalizedFieldCount > 1 {
		normalizedFieldCount = 1
	}
	normalizedLength := float64(f.LogLength) / 1000.0
	if normalizedLength > 1 {
		normalizedLength = 1
	}

	sum := w.ExtractionRatio*f.ExtractionRatio +
		w.FieldCount*normalizedFieldCount +
		w.PatternMatch*f.PatternMatchStrength +
		w.Entropy*normalizedEntropy +
		w.WellFormedTime*boolToFloat(f.HasWellFormedTime) +
		w.WellFormedIPs*boolToFloat(f.HasWellFormedIPs) +
		w.LogLength*normalizedLength +
		w.ParserAccuracy*parserAccuracy

	totalWeight := w.ExtractionRatio + w.FieldCount + w.PatternMatch + w.Entropy +
		w.WellFormedTime + w.WellFormedIPs + w.LogLength + w.ParserAccuracy
	if totalWeight == 0 {
		return 0
	}
	score := sum / totalWeight
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// AdjustConfidence applies spec §4.2's thresholds: score >= 0.85 raises the
// confidence ordinal by one step, score <= 0.40 lowers it by one, otherwise
// it is preserved. Returns the (possibly unchanged) confidence and a
// human-readable reason recorded in ml_adjustment_reason.
func AdjustConfidence(base domain.Confidence, score float64) (domain.Confidence, string) {
	switch {
	case score >= 0.85:
		return base.Raise(), fmt.Sprintf("ml_score=%.2f >= 0.85: confidence raised", score)
	case score <= 0.40:
		return base.Lower(), fmt.Sprintf("ml_score=%.2f <= 0.40: confidence lowered", score)
	default:
		return base, fmt.Sprintf("ml_score=%.2f: confidence preserved", score)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func confidenceAsRatio(c domain.Confidence) float64 {
	return float64(c) / float64(domain.ConfidenceVeryHigh)
}

func wellFormedIP(ip string) bool {
	return ip != "" && net.ParseIP(ip) != nil
}

func timeFarFuture() time.Time {
	return time.Now().AddDate(1, 0, 0)
}

// shannonEntropy computes the Shannon entropy, in bits, of s's byte
// distribution.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

var knownCIMFieldGetters = []string{
	"source_ip", "destination_ip", "user", "host", "process_name",
	"file_path", "command_line", "event_category", "event_action",
	"event_outcome", "vendor", "product", "url",
}

func countPopulatedFields(e *domain.Event) int {
	count := 0
	for _, f := range knownCIMFieldGetters {
		if v, ok := e.Field(f); ok && v != "" {
			count++
		}
	}
	return count
}
