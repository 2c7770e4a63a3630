package normalizer

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FieldMapping maps one extracted value (a regex capture group name, a
// key-value key, or a JSON path) to a CIM field name, applying zero or more
// transformations in order (spec §4.1 field-mapping block).
type FieldMapping struct {
	Source     string
	CIMField   string
	Transforms []Transform
}

// DeclarativeParser is the generic engine every built-in parser is an
// instance of: required/exclusion patterns and size bounds for detection: a
// primary pattern plus fallbacks, or key-value extraction, or JSON-path
// extraction, for parsing (spec §4.1).
type DeclarativeParser struct {
	id string

	requiredPatterns  []*regexp.Regexp
	exclusionPatterns []*regexp.Regexp
	minSize           int
	maxSize           int // 0 means unbounded

	primary   *regexp.Regexp
	fallbacks []*regexp.Regexp

	keyValueMode      bool
	pairSeparator     string
	keyValueSeparator string

	jsonMode bool

	mappings []FieldMapping
}

func (p *DeclarativeParser) ID() string { return p.id }

func (p *DeclarativeParser) Detect(raw []byte) float64 {
	if len(raw) < p.minSize {
		return 0
	}
	if p.maxSize > 0 && len(raw) > p.maxSize {
		return 0
	}
	for _, excl := range p.exclusionPatterns {
		if excl.Match(raw) {
			return 0
		}
	}
	for _, req := range p.requiredPatterns {
		if !req.Match(raw) {
			return 0
		}
	}

	switch {
	case p.primary != nil && p.primary.Match(raw):
		return 1.0
	case p.jsonMode && json.Valid(raw):
		return 0.9
	case len(p.fallbacks) > 0:
		for _, fb := range p.fallbacks {
			if fb.Match(raw) {
				return 0.6
			}
		}
		return 0
	case p.keyValueMode:
		return 0.5
	default:
		return 0
	}
}

func (p *DeclarativeParser) Parse(raw []byte) (map[string]string, error) {
	extracted := make(map[string]string)

	switch {
	case p.jsonMode:
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		flattenJSON("", doc, extracted)
	case p.keyValueMode:
		extractKeyValue(string(raw), p.pairSeparator, p.keyValueSeparator, extracted)
	default:
		match, names := matchNamedGroups(raw, p.primary)
		if match == nil {
			for _, fb := range p.fallbacks {
				if m, n := matchNamedGroups(raw, fb); m != nil {
					match, names = m, n
					break
				}
			}
		}
		for i, name := range names {
			if name == "" || i >= len(match) {
				continue
			}
			extracted[name] = match[i]
		}
	}

	out := make(map[string]string, len(p.mappings))
	for _, mapping := range p.mappings {
		value, ok := extracted[mapping.Source]
		if !ok {
			continue
		}
		var err error
		for _, t := range mapping.Transforms {
			value, err = t(value)
			if err != nil {
				break
			}
		}
		if err != nil {
			// A single malformed field never fails the whole parse
			// (spec §4.1's zero-rejection guarantee extends down to
			// field level); the field is simply omitted.
			continue
		}
		out[mapping.CIMField] = value
	}

	// Extracted keys that no mapping consumes pass through under their own
	// name, so the normalizer can keep them in custom_fields.
	mappedSources := make(map[string]bool, len(p.mappings))
	for _, mapping := range p.mappings {
		mappedSources[mapping.Source] = true
	}
	for key, value := range extracted {
		if _, taken := out[key]; taken || mappedSources[key] {
			continue
		}
		out[key] = value
	}
	return out, nil
}

func matchNamedGroups(raw []byte, re *regexp.Regexp) ([]string, []string) {
	if re == nil {
		return nil, nil
	}
	m := re.FindSubmatch(raw)
	if m == nil {
		return nil, nil
	}
	strs := make([]string, len(m))
	for i, b := range m {
		strs[i] = string(b)
	}
	return strs, re.SubexpNames()
}

func extractKeyValue(raw, pairSep, kvSep string, out map[string]string) {
	for _, pair := range strings.Split(raw, pairSep) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.Index(pair, kvSep)
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(pair[:idx])
		value := strings.Trim(strings.TrimSpace(pair[idx+len(kvSep):]), `"`)
		out[key] = value
	}
}

// flattenJSON walks a decoded JSON document into dot-path keyed strings,
// e.g. {"source":{"ip":"1.2.3.4"}} -> "source.ip" = "1.2.3.4".
func flattenJSON(prefix string, v interface{}, out map[string]string) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, sub := range val {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			flattenJSON(path, sub, out)
		}
	case string:
		out[prefix] = val
	case nil:
		out[prefix] = ""
	default:
		b, err := json.Marshal(val)
		if err == nil {
			out[prefix] = string(b)
		}
	}
}
