// Package transpiler implements the Transpiler & Complexity Router (spec
// §4.3): given a Sigma-style YAML rule, it produces an analytical-SQL query
// targeting the event store plus a classification decision (real-time vs
// scheduled), attached to the rule once and never re-inferred at execution
// time.
package transpiler

import "gopkg.in/yaml.v3"

// SigmaRule is the subset of the Sigma rule schema this transpiler accepts:
// a title, a detection block of named selections plus a boolean condition
// expression over them, and an optional timeframe. A stateful_config
// override is not read from the YAML; it is passed to Transpile.
type SigmaRule struct {
	Title     string                 `yaml:"title"`
	ID        string                 `yaml:"id"`
	Detection map[string]interface{} `yaml:"detection"`
	Level     string                 `yaml:"level"`
}

// condition and timeframe live inside Detection (Sigma's own schema puts
// them there); pulled out by Detection lookups below rather than duplicate
// yaml tags, since "condition" and "timeframe" are reserved keys within the
// detection map, not selections.
const (
	keyCondition = "condition"
	keyTimeframe = "timeframe"
)

// ParseSigma decodes raw Sigma YAML text. A malformed document returns
// ErrInvalidYaml; a well-formed document missing "detection" or "condition"
// also returns ErrInvalidYaml since no query can be built without them.
func ParseSigma(raw []byte) (*SigmaRule, error) {
	var rule SigmaRule
	if err := yaml.Unmarshal(raw, &rule); err != nil {
		return nil, newError(ErrInvalidYaml, "parse sigma yaml: %v", err)
	}
	if rule.Detection == nil {
		return nil, newError(ErrInvalidYaml, "sigma rule has no detection block")
	}
	if _, ok := rule.Detection[keyCondition]; !ok {
		return nil, newError(ErrInvalidYaml, "sigma rule detection has no condition")
	}
	return &rule, nil
}

// condition returns the raw condition expression string.
func (r *SigmaRule) condition() (string, error) {
	v, ok := r.Detection[keyCondition]
	if !ok {
		return "", newError(ErrInvalidCondition, "missing condition")
	}
	s, ok := v.(string)
	if !ok {
		return "", newError(ErrInvalidCondition, "condition must be a string")
	}
	return s, nil
}

// timeframe returns the raw timeframe directive, if any (e.g. "10m").
func (r *SigmaRule) timeframe() (string, bool) {
	v, ok := r.Detection[keyTimeframe]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// selections returns every detection entry that is not a reserved key
// (condition, timeframe) — i.e. the named selection blocks.
func (r *SigmaRule) selections() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Detection))
	for k, v := range r.Detection {
		if k == keyCondition || k == keyTimeframe {
			continue
		}
		out[k] = v
	}
	return out
}
