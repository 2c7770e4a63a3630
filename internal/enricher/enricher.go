package enricher

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"vigil/internal/domain"
)

const enrichTimeout = 2 * time.Second

// ParserAccuracy reports each parser's historical extraction accuracy in
// [0,1], fed into the ML confidence adjustment (spec §4.2). Populated and
// refreshed by the normalizer's stats, injected here as a small interface so
// the enricher never depends on the normalizer package directly.
type ParserAccuracy interface {
	Accuracy(parserID string) float64
}

// Enricher decorates a normalized Event with ML confidence adjustment and
// threat-intelligence signals (spec §4.2). It is deterministic given the
// event and its current IOC snapshot: running Enrich twice over the same
// inputs yields identical decorations.
type Enricher struct {
	threatIntel *ThreatIntel
	weights     Weights
	accuracy    ParserAccuracy
	metrics     *metricsRecorder
}

// Option configures an Enricher.
type Option func(*Enricher)

func WithWeights(w Weights) Option {
	return func(e *Enricher) { e.weights = w }
}

func WithParserAccuracy(a ParserAccuracy) Option {
	return func(e *Enricher) { e.accuracy = a }
}

func New(iocs *IOCTable, opts ...Option) *Enricher {
	e := &Enricher{
		threatIntel: NewThreatIntel(iocs),
		weights:     DefaultWeights(),
		metrics:     newMetricsRecorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich runs ML confidence adjustment and threat-intelligence scoring in
// parallel (grounded on the teacher's gatherEvidence errgroup fan-out,
// internal/decision/evidence.go) and returns a decorated copy of event.
// raw_event, event_id, and tenant_id are carried over unchanged.
func (en *Enricher) Enrich(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	decorated := *event
	decorated.CustomFields = copyCustomFields(event.CustomFields)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		en.adjustConfidence(&decorated)
		en.metrics.observeStage("ml_confidence", time.Since(start))
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		en.applyThreatIntel(&decorated)
		en.metrics.observeStage("threat_intel", time.Since(start))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	decorated.RawEvent = event.RawEvent
	decorated.EventID = event.EventID
	decorated.TenantID = event.TenantID
	return &decorated, nil
}

func (en *Enricher) adjustConfidence(e *domain.Event) {
	parserID := e.CustomFields["_parser_id"]
	accuracy := 0.5
	if en.accuracy != nil && parserID != "" {
		accuracy = en.accuracy.Accuracy(parserID)
	}

	features := ExtractFeatures(e)
	score := Score(features, en.weights, accuracy)
	adjusted, reason := AdjustConfidence(e.MLBaseConfidence, score)

	e.MLConfidenceScore = score
	e.MLAdjustmentReason = reason
	e.MLBaseConfidence = adjusted
}

func (en *Enricher) applyThreatIntel(e *domain.Event) {
	score, category := en.threatIntel.Score(e)
	e.ThreatScore = score
	e.ThreatRiskLevel = domain.ThreatRiskLevelFor(score)
	e.ThreatDetected = score > 0
	e.ThreatCategory = category
}

func copyCustomFields(src map[string]string) map[string]string {
	cp := make(map[string]string, len(src))
	for k, v := range src {
		cp[k] = v
	}
	return cp
}
