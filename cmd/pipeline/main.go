// Command pipeline runs the full detection pipeline (spec §1 OVERVIEW):
// normalizer and enricher consume raw events off the event bus, the stream
// processor evaluates real-time rules inline, the batched event store
// writer persists every normalized event, and the scheduled rule engine
// runs its own independent cycle against the same event store. All four
// stages share one rule catalog, one state store, and one alert sink.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"vigil/internal/alertsink"
	"vigil/internal/enricher"
	"vigil/internal/eventbus"
	"vigil/internal/eventstore"
	"vigil/internal/normalizer"
	"vigil/internal/rulecatalog"
	"vigil/internal/ruleengine"
	"vigil/internal/statestore"
	"vigil/internal/streamprocessor"
	"vigil/pkg/domain"
	"vigil/pkg/platform/config"
	"vigil/pkg/platform/httpserver"
	"vigil/pkg/platform/logger"
	"vigil/pkg/platform/redisclient"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("pipeline exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	bus := newBus(ctx, cfg, log)
	defer bus.Close()

	store := newStateStore(cfg, log)

	eventStoreDB, err := sql.Open("postgres", cfg.EventStoreEndpoint)
	if err != nil {
		return err
	}
	defer eventStoreDB.Close()

	eventStorePool, err := pgxpool.New(ctx, cfg.EventStoreEndpoint)
	if err != nil {
		return err
	}
	defer eventStorePool.Close()

	alertPool, err := pgxpool.New(ctx, cfg.AlertSinkEndpoint)
	if err != nil {
		return err
	}
	defer alertPool.Close()

	catalogDB, err := sql.Open("postgres", cfg.RuleCatalogEndpoint)
	if err != nil {
		return err
	}
	defer catalogDB.Close()

	catalog := rulecatalog.New(rulecatalog.NewPostgresReader(catalogDB), log,
		rulecatalog.WithMaxStaleness(cfg.RuleCacheRefresh))

	sink := alertsink.New(alertsink.NewPostgresStore(alertPool), log)

	writer := eventstore.New(eventStorePool)

	registry := normalizer.NewRegistry()
	if err := normalizer.RegisterBuiltins(registry); err != nil {
		return err
	}
	norm := normalizer.New(registry, log)

	iocs := enricher.NewIOCTable()
	if cfg.IOCFile != "" {
		entries, err := enricher.LoadIOCFile(cfg.IOCFile)
		if err != nil {
			log.Error("failed to load initial IOC seed, continuing with an empty table", "error", err)
		} else {
			iocs.Replace(entries)
		}
	}
	enr := enricher.New(iocs)

	ruleCache := streamprocessor.NewRuleCache(catalog, log)
	processor := streamprocessor.New(ruleCache, store, sink, log)

	engine := ruleengine.New(catalog, ruleengine.NewPostgresEventStore(eventStoreDB), store, sink, log,
		ruleengine.WithInterval(cfg.ScheduledInterval))

	httpSrv := httpserver.New(":8080")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bus.Consume(gctx, ingestHandler(norm, enr, writer, processor, log)) })
	g.Go(func() error { ruleCache.Run(gctx, cfg.RuleCacheRefresh); return nil })
	g.Go(func() error { catalog.Run(gctx, cfg.RuleCacheRefresh); return nil })
	g.Go(func() error { writer.Run(gctx); return nil })
	g.Go(func() error { processor.RunPreAggregation(gctx); return nil })
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error { return serveHTTP(gctx, httpSrv) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// ingestHandler wires one bus message through normalize -> enrich -> (write
// to the event store, evaluate real-time rules) in-process, so the stream
// processor sees an event the instant it is enriched rather than waiting on
// a second bus round trip.
func ingestHandler(norm *normalizer.Normalizer, enr *enricher.Enricher, writer *eventstore.Writer,
	processor *streamprocessor.Processor, log *slog.Logger) eventbus.Handler {
	return func(ctx context.Context, msg eventbus.Message) error {
		var envelope struct {
			EventID  string `json:"event_id"`
			TenantID string `json:"tenant_id"`
		}
		_ = json.Unmarshal(msg.Value, &envelope)

		eventID := domain.EventID(envelope.EventID)
		if eventID == "" {
			eventID = domain.NewEventID()
		}
		tenantID := domain.TenantID(envelope.TenantID)
		if tenantID == "" {
			tenantID = domain.TenantID(msg.Key)
		}

		event := norm.Normalize(ctx, eventID, tenantID, msg.Value, time.Now())

		decorated, err := enr.Enrich(ctx, event)
		if err != nil {
			log.Error("enrichment failed, evaluating rules against the un-enriched event",
				"event_id", event.EventID, "tenant_id", event.TenantID, "error", err)
			decorated = event
		}

		if err := writer.Write(ctx, decorated); err != nil {
			log.Error("event store write failed", "event_id", decorated.EventID, "error", err)
		}

		return processor.ProcessEvent(ctx, decorated)
	}
}

func newBus(ctx context.Context, cfg config.Config, log *slog.Logger) eventbus.Bus {
	if cfg.EventBusEndpoint == "" {
		log.Warn("event_bus_endpoint not set, using in-memory bus")
		return eventbus.NewMemoryBus(1024)
	}
	bus, err := eventbus.NewKafkaBus(ctx, eventbus.KafkaConfig{
		SeedBrokers:     strings.Split(cfg.EventBusEndpoint, ","),
		Topic:           "vigil.events",
		DeadLetterTopic: "vigil.events.deadletter",
		ConsumerGroup:   "vigil-pipeline",
	})
	if err != nil {
		log.Error("kafka bus connection failed, falling back to in-memory bus", "error", err)
		return eventbus.NewMemoryBus(1024)
	}
	return bus
}

func newStateStore(cfg config.Config, log *slog.Logger) statestore.Store {
	if cfg.StateStoreEndpoint == "" {
		log.Warn("state_store_endpoint not set, using in-memory state store")
		return statestore.New()
	}
	client, err := redisclient.New(redisclient.Config{URL: cfg.StateStoreEndpoint})
	if err != nil {
		log.Error("redis connection failed, falling back to in-memory state store", "error", err)
		return statestore.New()
	}
	return statestore.NewRedisStore(client.Client)
}

func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
