// Package rulecatalog is the read-only boundary onto the admin-owned rule
// table (spec §6): it polls for active rules at a bounded interval and
// hands back tenant-scoped, engine-scoped snapshots to both detection
// layers, so neither one ever queries the admin store directly.
package rulecatalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vigil/internal/domain"
	"vigil/pkg/platform/tracing"
)

// Reader fetches every currently-active rule from the admin store in one
// shot. Catalog layers bounded-staleness caching and engine-type filtering
// on top of it.
type Reader interface {
	FetchActiveRules(ctx context.Context) ([]*domain.Rule, error)
}

// DefaultMaxStaleness bounds how long a cached snapshot may be served
// before a caller's request blocks on a fresh fetch (spec §6: "bounded
// staleness"). It matches the rule cache's own refresh cadence so neither
// layer ever observes a catalog view older than one refresh interval.
const DefaultMaxStaleness = 60 * time.Second

// Catalog is the shared rule-table reader both internal/streamprocessor's
// RuleCache and internal/ruleengine poll through. It serves a cached
// snapshot when fresh and refetches synchronously when stale, so a caller
// always gets a bounded-age view without every caller re-querying the
// admin store independently.
type Catalog struct {
	reader       Reader
	maxStaleness time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	snapshot  []*domain.Rule
	fetchedAt time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMaxStaleness overrides DefaultMaxStaleness.
func WithMaxStaleness(d time.Duration) Option {
	return func(c *Catalog) { c.maxStaleness = d }
}

func New(reader Reader, logger *slog.Logger, opts ...Option) *Catalog {
	c := &Catalog{reader: reader, logger: logger, maxStaleness: DefaultMaxStaleness}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ActiveRealTimeRules implements internal/streamprocessor.RuleSource.
func (c *Catalog) ActiveRealTimeRules(ctx context.Context) ([]*domain.Rule, error) {
	rules, err := c.snapshotAtLeastAsFreshAs(ctx, c.maxStaleness)
	if err != nil {
		return nil, err
	}
	return filterByEngine(rules, domain.EngineRealTime), nil
}

// ActiveScheduledRules implements internal/ruleengine.RuleSource.
func (c *Catalog) ActiveScheduledRules(ctx context.Context) ([]*domain.Rule, error) {
	rules, err := c.snapshotAtLeastAsFreshAs(ctx, c.maxStaleness)
	if err != nil {
		return nil, err
	}
	return filterByEngine(rules, domain.EngineScheduled), nil
}

// Refresh forces an unconditional fetch, for use on a ticker in main()
// independently of request-time staleness checks.
func (c *Catalog) Refresh(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "rulecatalog.Refresh")
	defer span.End()

	rules, err := c.reader.FetchActiveRules(ctx)
	if err != nil {
		refreshErrors.Inc()
		return fmt.Errorf("fetch active rules: %w", err)
	}

	c.mu.Lock()
	c.snapshot = rules
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	rulesLoaded.Set(float64(len(rules)))
	return nil
}

// Run refreshes on a fixed interval until ctx is canceled, so the snapshot
// never goes stale even between caller requests. A failed refresh is
// logged and the previous snapshot keeps serving.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.maxStaleness
	}
	if err := c.Refresh(ctx); err != nil && c.logger != nil {
		c.logger.Error("initial rule catalog refresh failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && c.logger != nil {
				c.logger.Error("rule catalog refresh failed", "error", err)
			}
		}
	}
}

// snapshotAtLeastAsFreshAs returns the cached snapshot if it is younger
// than maxAge, else blocks on a synchronous refresh first. This is what
// bounds staleness for callers that never invoke Run, and backstops Run's
// own interval if a caller needs a fresher view than the next tick.
func (c *Catalog) snapshotAtLeastAsFreshAs(ctx context.Context, maxAge time.Duration) ([]*domain.Rule, error) {
	c.mu.Lock()
	stale := time.Since(c.fetchedAt) > maxAge
	rules := c.snapshot
	c.mu.Unlock()

	if !stale && rules != nil {
		return rules, nil
	}
	if err := c.Refresh(ctx); err != nil {
		if rules != nil {
			// Serve the last known-good snapshot rather than failing the
			// caller outright; the admin store is a dependency neither
			// detection layer should go dark over (spec §7).
			if c.logger != nil {
				c.logger.Warn("serving stale rule snapshot after refresh failure", "error", err)
			}
			return rules, nil
		}
		return nil, err
	}

	c.mu.Lock()
	rules = c.snapshot
	c.mu.Unlock()
	return rules, nil
}

func filterByEngine(rules []*domain.Rule, engine domain.EngineType) []*domain.Rule {
	out := make([]*domain.Rule, 0, len(rules))
	for _, r := range rules {
		if r.EngineType == engine {
			out = append(out, r)
		}
	}
	return out
}
