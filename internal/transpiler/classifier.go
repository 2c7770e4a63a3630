package transpiler

import (
	"fmt"
	"strings"
)

// aggregationFunctions triggers scheduled classification (spec §4.3).
var aggregationFunctions = []string{
	"count(", "sum(", "avg(", "min(", "max(", "distinct(", "group by", "having",
}

// Classification is the transpiler's routing decision, attached to the rule
// once and never re-inferred at execution time (spec §4.3).
type Classification struct {
	EngineType string // "real-time" or "scheduled"
	Reasons    []string
}

// classify applies spec §4.3's triggers, in order, recording every one that
// fires so the decision is auditable.
func classify(rule *SigmaRule, cond string, selections map[string]interface{}) Classification {
	var reasons []string

	lowerCond := strings.ToLower(cond)
	for _, fn := range aggregationFunctions {
		if strings.Contains(lowerCond, fn) {
			reasons = append(reasons, fmt.Sprintf("aggregation function %q present in condition", fn))
		}
	}

	if _, ok := rule.timeframe(); ok {
		reasons = append(reasons, "timeframe directive present")
	}

	for name, sel := range selections {
		if selectionHasRegexModifier(sel) {
			reasons = append(reasons, fmt.Sprintf("regex modifier on selection %q", name))
		}
	}

	if len(selections) >= 3 {
		reasons = append(reasons, fmt.Sprintf("%d selection blocks combined", len(selections)))
	}

	if len(reasons) == 0 {
		return Classification{EngineType: "real-time"}
	}
	return Classification{EngineType: "scheduled", Reasons: reasons}
}

func selectionHasRegexModifier(selection interface{}) bool {
	m, ok := selection.(map[string]interface{})
	if !ok {
		return false
	}
	for field := range m {
		if strings.Contains(field, "|re") || strings.Contains(field, "|regex") {
			return true
		}
	}
	return false
}
