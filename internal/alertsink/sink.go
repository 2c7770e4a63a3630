package alertsink

import (
	"context"
	"fmt"
	"log/slog"

	"vigil/internal/domain"
	"vigil/pkg/platform/retry"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/platform/tracing"
)

// Sink is the detection layer's single entry point into durable alert
// storage (spec §4.7). It deduplicates by alert_key and only acknowledges
// the caller once the alert is durably persisted; a store outage is
// retried here with exponential backoff so neither detection engine needs
// its own retry loop, satisfying "persistence MUST be durable before
// acknowledgement to the producer."
type Sink struct {
	store  Store
	retry  retry.Config
	logger *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithRetry overrides the default retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(s *Sink) { s.retry = cfg }
}

func New(store Store, logger *slog.Logger, opts ...Option) *Sink {
	s := &Sink{
		store:  store,
		retry:  retry.DefaultConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit persists alert, retrying transient store failures with backoff. It
// returns an error only once retries are exhausted; the caller (stream
// processor or rule engine) is expected to treat that as this alert's
// delivery attempt having failed for this cycle, not to re-derive it.
func (s *Sink) Emit(ctx context.Context, alert *domain.Alert) error {
	ctx, span := tracing.StartSpan(ctx, "alertsink.Emit")
	defer span.End()

	alertsReceived.Inc()

	attempt := 0
	var inserted bool
	err := retry.Do(ctx, s.retry, func() error {
		attempt++
		if attempt > 1 {
			persistRetries.Inc()
		}
		var appendErr error
		inserted, appendErr = s.store.Append(ctx, alert)
		return appendErr
	})
	if err != nil {
		persistFailures.Inc()
		return fmt.Errorf("persist alert %s after retry: %w: %w", alert.AlertKey, sentinel.ErrUnavailable, err)
	}

	if !inserted {
		alertsDeduped.Inc()
		if s.logger != nil {
			s.logger.Debug("alert deduplicated", "alert_key", alert.AlertKey, "rule_id", alert.RuleID, "tenant_id", alert.TenantID)
		}
		return nil
	}

	alertsPersisted.Inc()
	if s.logger != nil {
		s.logger.Info("alert persisted", "alert_id", alert.AlertID, "alert_key", alert.AlertKey,
			"rule_id", alert.RuleID, "tenant_id", alert.TenantID, "severity", alert.Severity)
	}
	return nil
}
