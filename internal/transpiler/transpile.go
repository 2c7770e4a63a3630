package transpiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"vigil/internal/domain"
)

// Result is the transpiler's admin-surface output (spec §6): "a function
// accepting Sigma YAML text and returning {query, engine_type, is_stateful,
// stateful_config, classification_reasons}".
type Result struct {
	Query                string
	EngineType           string
	IsStateful           bool
	StatefulConfig       *domain.StatefulConfig
	ClassificationReasons []string
}

var countThresholdPattern = regexp.MustCompile(`count\(\)\s*>\s*(\d+)`)

// Transpile parses raw Sigma YAML and produces the analytical-SQL query and
// classification decision (spec §4.3). statefulConfig is the rule's
// admin-supplied override, if any; when nil and the condition carries a
// count() threshold, a minimal default is synthesized.
func Transpile(raw []byte, statefulConfig *domain.StatefulConfig) (*Result, error) {
	rule, err := ParseSigma(raw)
	if err != nil {
		return nil, err
	}

	condStr, err := rule.condition()
	if err != nil {
		return nil, err
	}
	// A Sigma condition may carry an aggregation suffix after "|"
	// (e.g. "selection | count() > 5"); only the part before it is
	// boolean selection logic the parser understands.
	selectionExpr := condStr
	if idx := strings.Index(condStr, "|"); idx >= 0 {
		selectionExpr = condStr[:idx]
	}
	node, err := parseCondition(selectionExpr)
	if err != nil {
		return nil, err
	}

	selections := rule.selections()
	if err := validateSelectionReferences(node, selections); err != nil {
		return nil, err
	}

	compiled, err := compileSelections(selections)
	if err != nil {
		return nil, err
	}
	whereClause, err := compileCondition(node, compiled)
	if err != nil {
		return nil, err
	}

	if tf, ok := rule.timeframe(); ok {
		seconds, err := parseTimeframeSeconds(tf)
		if err != nil {
			return nil, err
		}
		whereClause = fmt.Sprintf("(event_timestamp > now() - %d AND %s)", seconds, whereClause)
	}

	classification := classify(rule, condStr, selections)

	threshold, hasCount := extractCountThreshold(condStr)
	isStateful := statefulConfig != nil
	effectiveConfig := statefulConfig
	if hasCount && effectiveConfig == nil {
		effectiveConfig = defaultStatefulConfig(threshold)
		isStateful = true
	}

	query := whereClause
	if hasCount {
		aggregateColumns := "source_ip"
		if effectiveConfig != nil && len(effectiveConfig.AggregateOn) > 0 {
			aggregateColumns = strings.Join(effectiveConfig.AggregateOn, ", ")
		}
		query = fmt.Sprintf(
			"SELECT %s, count(*) AS c FROM events WHERE %s GROUP BY %s HAVING c > %d",
			aggregateColumns, whereClause, aggregateColumns, threshold,
		)
	} else {
		query = fmt.Sprintf("SELECT * FROM events WHERE %s", whereClause)
	}

	return &Result{
		Query:                 query,
		EngineType:            classification.EngineType,
		IsStateful:            isStateful,
		StatefulConfig:        effectiveConfig,
		ClassificationReasons: classification.Reasons,
	}, nil
}

func validateSelectionReferences(node conditionNode, selections map[string]interface{}) error {
	for _, name := range selectionNames(node) {
		if _, ok := selections[name]; !ok {
			return newError(ErrInvalidCondition, "condition references undefined selection %q", name)
		}
	}
	return nil
}

func extractCountThreshold(cond string) (int, bool) {
	m := countThresholdPattern.FindStringSubmatch(strings.ToLower(cond))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// defaultStatefulConfig implements spec §4.3's fallback: "defaulting
// aggregation to source_ip and window to 3600s when not specified".
func defaultStatefulConfig(threshold int) *domain.StatefulConfig {
	return &domain.StatefulConfig{
		KeyPrefix:     "transpiler-default",
		AggregateOn:   []string{"source_ip"},
		Threshold:     threshold,
		WindowSeconds: 3600,
		TrackingType:  domain.TrackingCounter,
	}
}

// parseTimeframeSeconds converts a Sigma-style duration ("10m", "1h",
// "30s") into seconds.
func parseTimeframeSeconds(tf string) (int, error) {
	tf = strings.TrimSpace(tf)
	if tf == "" {
		return 0, newError(ErrUnsupportedFeature, "empty timeframe")
	}
	unit := tf[len(tf)-1]
	numPart := tf[:len(tf)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, newError(ErrUnsupportedFeature, "unparsable timeframe %q", tf)
	}
	switch unit {
	case 's':
		return n, nil
	case 'm':
		return n * 60, nil
	case 'h':
		return n * 3600, nil
	case 'd':
		return n * 86400, nil
	default:
		return 0, newError(ErrUnsupportedFeature, "unsupported timeframe unit in %q", tf)
	}
}
