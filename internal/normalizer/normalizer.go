package normalizer

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"vigil/internal/domain"
	id "vigil/pkg/domain"
)

// Normalizer accepts raw event payloads and produces CIM records under the
// zero-rejection guarantee (spec §4.1): every input yields an Event, never
// an error to the caller.
type Normalizer struct {
	registry *Registry
	logger   *slog.Logger
}

func New(registry *Registry, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{registry: registry, logger: logger}
}

// Normalize turns one raw payload into a CIM Event. eventID is generated by
// the caller (or carried over from the bus message) so retries are
// idempotent; ingestedAt is the instant the bus delivered the message.
func (n *Normalizer) Normalize(ctx context.Context, eventID id.EventID, tenantID id.TenantID, raw []byte, ingestedAt time.Time) *domain.Event {
	parser, _, ok := n.registry.SelectBest(raw)
	if !ok {
		parsesRejected.Inc()
		e, err := domain.NewFailedEvent(eventID, tenantID, string(raw), ingestedAt, errNoParserAccepted)
		if err != nil {
			n.logger.ErrorContext(ctx, "normalize: failed event construction rejected", "error", err)
		}
		return e
	}

	fields, err := parser.Parse(raw)
	if err != nil {
		parseErrors.WithLabelValues(parser.ID()).Inc()
		e, ferr := domain.NewFailedEvent(eventID, tenantID, string(raw), ingestedAt, err)
		if ferr != nil {
			n.logger.ErrorContext(ctx, "normalize: failed event construction rejected", "error", ferr)
		}
		return e
	}

	parsesSucceeded.WithLabelValues(parser.ID()).Inc()
	return n.buildEvent(ctx, eventID, tenantID, string(raw), ingestedAt, parser.ID(), fields)
}

func (n *Normalizer) buildEvent(ctx context.Context, eventID id.EventID, tenantID id.TenantID, raw string, ingestedAt time.Time, parserID string, fields map[string]string) *domain.Event {
	e := &domain.Event{
		EventID:            eventID,
		TenantID:           tenantID,
		IngestionTimestamp: ingestedAt,
		RawEvent:           raw,
		CustomFields:       map[string]string{},
	}

	e.EventTimestamp = resolveEventTimestamp(ctx, n.logger, fields, ingestedAt)

	for field, value := range fields {
		switch field {
		case "event_timestamp", "timestamp":
			// handled above
		case "source_ip":
			e.SourceIP = value
		case "destination_ip":
			e.DestinationIP = value
		case "source_port":
			e.SourcePort = atoiOrZero(value)
		case "destination_port":
			e.DestinationPort = atoiOrZero(value)
		case "protocol":
			e.Protocol = value
		case "user":
			e.User = value
		case "host":
			e.Host = value
		case "process":
			e.ProcessName = value
		case "file_path":
			e.FilePath = value
		case "command_line":
			e.CommandLine = value
		case "event_category":
			e.EventCategory = value
		case "action":
			e.EventAction = value
		case "event_outcome":
			e.EventOutcome = value
		case "vendor":
			e.Vendor = value
		case "product":
			e.Product = value
		case "severity":
			e.Severity = value
		case "url":
			e.URL = value
		case "application":
			e.CustomFields["application"] = value
		default:
			e.CustomFields[field] = value
		}
	}

	expectedPresent := 0
	for _, f := range ExpectedFields {
		if v, ok := fields[f]; ok && v != "" {
			expectedPresent++
		}
	}
	switch {
	case expectedPresent == 0:
		e.ParsingStatus = domain.ParsingFailed
		e.ParseErrorMsg = "parser " + parserID + " extracted no recognized fields"
	case expectedPresent < len(ExpectedFields):
		e.ParsingStatus = domain.ParsingPartial
	default:
		e.ParsingStatus = domain.ParsingSuccess
	}

	e.MLBaseConfidence = ScoreConfidence(fields, ExpectedFields, DefaultQualityRules())
	e.CustomFields["_parser_id"] = parserID
	return e
}

// resolveEventTimestamp parses event_timestamp (or its accepted alias
// "timestamp") as RFC3339; missing or unparsable values default to the
// ingestion instant with a warning (spec §6).
func resolveEventTimestamp(ctx context.Context, logger *slog.Logger, fields map[string]string, ingestedAt time.Time) time.Time {
	raw, ok := fields["event_timestamp"]
	if !ok || raw == "" {
		raw, ok = fields["timestamp"]
	}
	if !ok || raw == "" {
		logger.WarnContext(ctx, "normalize: event_timestamp missing, defaulting to ingestion instant")
		return ingestedAt
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.WarnContext(ctx, "normalize: event_timestamp unparsable, defaulting to ingestion instant", "raw", raw, "error", err)
		return ingestedAt
	}
	return t
}

func atoiOrZero(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
