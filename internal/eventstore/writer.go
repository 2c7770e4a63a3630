// Package eventstore is the write side of the external analytical event
// store (spec §9 "Event store (input and output)"): the normalizer/enricher
// stage batches normalized, enriched events and inserts them so
// internal/ruleengine's read-only analytical queries and the stream
// processor's evidence trail both have raw_event durably available, even
// for parsing failures.
package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vigil/internal/domain"
)

// DefaultBatchSize and DefaultFlushInterval bound how long a durably
// written event may sit buffered in memory before an insert is attempted,
// trading a little durability latency for far fewer round trips than one
// insert per event (spec §9: "writes are performed ... via batched
// inserts").
const (
	DefaultBatchSize     = 200
	DefaultFlushInterval = 2 * time.Second
)

// insertColumns lists the events table columns a batch insert populates.
// internal/ruleengine's PostgresEventStore reads this same table back with
// dynamic column scanning, so no fixed Go struct needs to mirror the
// schema on the read side.
var insertColumns = []string{
	"event_id", "tenant_id", "event_timestamp", "ingestion_timestamp",
	"raw_event", "parsing_status", "parse_error_msg",
	"source_ip", "destination_ip", "source_port", "destination_port",
	"protocol", "user_name", "host", "process_name", "file_path",
	"command_line", "event_category", "event_action", "event_outcome",
	"vendor", "product", "severity", "bytes_in", "bytes_out",
	"http_status_code", "url",
	"ml_confidence_score", "threat_detected", "threat_score", "threat_category",
}

// copier is the one pgxpool.Pool method Writer needs, narrowed to an
// interface so batching logic can be tested without a live database.
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Writer batches normalized events in memory and flushes them to the
// analytical event store on whichever comes first: DefaultBatchSize events
// buffered, or DefaultFlushInterval elapsing.
type Writer struct {
	pool          copier
	table         string
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	pending []*domain.Event
}

// Option configures a Writer.
type Option func(*Writer)

func WithBatchSize(n int) Option {
	return func(w *Writer) { w.batchSize = n }
}

func WithFlushInterval(d time.Duration) Option {
	return func(w *Writer) { w.flushInterval = d }
}

func New(pool *pgxpool.Pool, opts ...Option) *Writer {
	return newWriter(pool, opts...)
}

func newWriter(pool copier, opts ...Option) *Writer {
	w := &Writer{
		pool:          pool,
		table:         "events",
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write buffers event for the next flush, flushing immediately if the
// batch is now full.
func (w *Writer) Write(ctx context.Context, event *domain.Event) error {
	w.mu.Lock()
	w.pending = append(w.pending, event)
	full := len(w.pending) >= w.batchSize
	w.mu.Unlock()

	eventsBuffered.Inc()
	if full {
		return w.Flush(ctx)
	}
	return nil
}

// Flush inserts every currently-buffered event in a single batched
// statement, regardless of whether the batch size threshold was reached.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	rows := make([][]any, len(batch))
	for i, e := range batch {
		rows[i] = eventRow(e)
	}

	n, err := w.pool.CopyFrom(ctx, pgx.Identifier{w.table}, insertColumns, pgx.CopyFromRows(rows))
	flushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		flushFailures.Inc()
		// The batch has already been taken out of this Writer's buffer
		// and is dropped; Flush does not retry it.
		return err
	}
	eventsWritten.Add(float64(n))
	return nil
}

// Run flushes on a fixed interval until ctx is canceled, so buffered
// events never wait longer than flushInterval even under low volume.
func (w *Writer) Run(ctx context.Context) {
	interval := w.flushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = w.Flush(context.Background())
			return
		case <-ticker.C:
			_ = w.Flush(ctx)
		}
	}
}

func eventRow(e *domain.Event) []any {
	return []any{
		string(e.EventID), string(e.TenantID), e.EventTimestamp, e.IngestionTimestamp,
		e.RawEvent, string(e.ParsingStatus), e.ParseErrorMsg,
		e.SourceIP, e.DestinationIP, e.SourcePort, e.DestinationPort,
		e.Protocol, e.User, e.Host, e.ProcessName, e.FilePath,
		e.CommandLine, e.EventCategory, e.EventAction, e.EventOutcome,
		e.Vendor, e.Product, e.Severity, e.BytesIn, e.BytesOut,
		e.HTTPStatusCode, e.URL,
		e.MLConfidenceScore, e.ThreatDetected, e.ThreatScore, e.ThreatCategory,
	}
}
