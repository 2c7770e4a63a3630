// Package normalizer implements the Normalizer (spec §4.1): it accepts raw
// event payloads and produces CIM records under a zero-rejection guarantee
// — every input yields an Event, even if only raw_event survives.
package normalizer

import (
	"fmt"
)

// Parser is the capability set every built-in and user-defined parser
// implements: detect(raw) -> score, parse(raw) -> fields. Grounded on the
// teacher's registry Provider interface
// (internal/evidence/registry/providers/provider.go), generalized from
// "evidence source" to "log format".
type Parser interface {
	// ID uniquely identifies the parser (e.g. "ecs-json", "cisco-asa").
	ID() string

	// Detect scores how confidently this parser recognizes raw, in [0,1].
	// A score of 0 means reject.
	Detect(raw []byte) float64

	// Parse extracts CIM field values from raw. Only called on the
	// highest-scoring non-zero parser; an error here still lets the
	// normalizer fall back to a failed event, never a rejection.
	Parse(raw []byte) (map[string]string, error)
}

// Registry holds every registered Parser and selects the best match for a
// given payload. Mirrors ProviderRegistry's Register/Get/All shape.
type Registry struct {
	parsers map[string]Parser
	order   []string // registration order, for deterministic tie-breaks
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

func (r *Registry) Register(p Parser) error {
	id := p.ID()
	if _, exists := r.parsers[id]; exists {
		return fmt.Errorf("parser %s already registered", id)
	}
	r.parsers[id] = p
	r.order = append(r.order, id)
	return nil
}

func (r *Registry) Get(id string) (Parser, bool) {
	p, ok := r.parsers[id]
	return p, ok
}

func (r *Registry) All() []Parser {
	out := make([]Parser, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.parsers[id])
	}
	return out
}

// SelectBest runs Detect across every registered parser (in registration
// order, for a deterministic tie-break) and returns the highest-scoring
// parser with a nonzero score. Returns (nil, 0, false) when every parser
// rejects the input — the normalizer's cue to fall back to a failed event.
func (r *Registry) SelectBest(raw []byte) (Parser, float64, bool) {
	var best Parser
	var bestScore float64
	for _, id := range r.order {
		p := r.parsers[id]
		score := p.Detect(raw)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	if best == nil || bestScore <= 0 {
		return nil, 0, false
	}
	return best, bestScore, true
}
