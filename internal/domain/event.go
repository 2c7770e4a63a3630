// Package domain holds the core detection pipeline's data model: Event
// (the Common Information Model record), Rule, StatefulConfig, StateEntry,
// and Alert (spec §3). Types here are immutable value objects; mutation
// happens through explicit, validated constructors and transition methods,
// mirroring how the teacher's tenant/models package enforces invariants at
// construction rather than scattering validation across callers.
package domain

import (
	"time"

	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domainerrors"
)

// ParsingStatus classifies how cleanly the normalizer extracted an Event.
type ParsingStatus string

const (
	ParsingSuccess ParsingStatus = "success"
	ParsingPartial ParsingStatus = "partial"
	ParsingFailed  ParsingStatus = "failed"
)

// Confidence is the ordinal parser-confidence scale used across the
// normalizer and enricher (spec §4.1, §4.2).
type Confidence int

const (
	ConfidenceVeryLow Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
)

// Raise moves the confidence one step up the ordinal scale, capping at
// VeryHigh.
func (c Confidence) Raise() Confidence {
	if c >= ConfidenceVeryHigh {
		return ConfidenceVeryHigh
	}
	return c + 1
}

// Lower moves the confidence one step down the ordinal scale, floored at
// VeryLow.
func (c Confidence) Lower() Confidence {
	if c <= ConfidenceVeryLow {
		return ConfidenceVeryLow
	}
	return c - 1
}

func (c Confidence) String() string {
	switch c {
	case ConfidenceVeryLow:
		return "VeryLow"
	case ConfidenceLow:
		return "Low"
	case ConfidenceMedium:
		return "Medium"
	case ConfidenceHigh:
		return "High"
	case ConfidenceVeryHigh:
		return "VeryHigh"
	default:
		return "Unknown"
	}
}

// ThreatRiskLevel buckets the enricher's threat_score (spec §4.2).
type ThreatRiskLevel string

const (
	ThreatRiskNone   ThreatRiskLevel = "None"
	ThreatRiskLow    ThreatRiskLevel = "Low"
	ThreatRiskMedium ThreatRiskLevel = "Medium"
	ThreatRiskHigh   ThreatRiskLevel = "High"
)

// ThreatRiskLevelFor maps a threat_score in [0, 10] to its risk bucket per
// spec §4.2: None (0), Low (<3), Medium (3-7), High (>=7).
func ThreatRiskLevelFor(score float64) ThreatRiskLevel {
	switch {
	case score <= 0:
		return ThreatRiskNone
	case score < 3:
		return ThreatRiskLow
	case score < 7:
		return ThreatRiskMedium
	default:
		return ThreatRiskHigh
	}
}

// Event is the normalized Common Information Model record (spec §3). It is
// immutable once constructed: the normalizer creates it, the enricher
// returns a decorated copy, and no later stage mutates a received Event.
type Event struct {
	EventID             id.EventID
	TenantID            id.TenantID
	EventTimestamp      time.Time
	IngestionTimestamp  time.Time
	RawEvent            string
	ParsingStatus       ParsingStatus
	ParseErrorMsg       string

	SourceIP          string
	DestinationIP     string
	SourcePort        int
	DestinationPort   int
	Protocol          string
	User              string
	Host              string
	ProcessName       string
	FilePath          string
	CommandLine       string
	EventCategory     string
	EventAction       string
	EventOutcome      string
	Vendor            string
	Product           string
	Severity          string
	BytesIn           int64
	BytesOut          int64
	HTTPStatusCode    int
	URL               string

	CustomFields map[string]string

	MLConfidenceScore  float64
	MLBaseConfidence   Confidence
	MLAdjustmentReason string
	ThreatDetected     bool
	ThreatScore        float64
	ThreatRiskLevel    ThreatRiskLevel
	ThreatCategory     string
}

// NewFailedEvent builds the zero-rejection fallback event: raw_event and
// ingestion_timestamp are always set, every CIM field stays empty, and
// parsing_status is failed (spec §4.1 failure semantics, invariant 8.1-8.2).
func NewFailedEvent(eventID id.EventID, tenantID id.TenantID, rawEvent string, ingestedAt time.Time, parseErr error) (*Event, error) {
	if err := id.RequireEventID(eventID); err != nil {
		return nil, err
	}
	if err := id.RequireTenantID(tenantID); err != nil {
		return nil, err
	}
	e := &Event{
		EventID:            eventID,
		TenantID:           tenantID,
		IngestionTimestamp: ingestedAt,
		RawEvent:           rawEvent,
		ParsingStatus:      ParsingFailed,
		CustomFields:       map[string]string{},
	}
	if parseErr != nil {
		e.ParseErrorMsg = parseErr.Error()
	}
	return e, nil
}

// Validate enforces the invariants in spec §3 and §8 (testable property 2):
// tenant_id and event_id are non-empty, raw_event is always preserved, and a
// failed parse still carries raw_event and ingestion_timestamp.
func (e *Event) Validate() error {
	if err := id.RequireEventID(e.EventID); err != nil {
		return err
	}
	if err := id.RequireTenantID(e.TenantID); err != nil {
		return err
	}
	if e.ParsingStatus == ParsingFailed {
		if e.RawEvent == "" {
			return dErrors.New(dErrors.CodeInvariantViolation, "failed event must preserve raw_event")
		}
		if e.IngestionTimestamp.IsZero() {
			return dErrors.New(dErrors.CodeInvariantViolation, "failed event must carry an ingestion_timestamp")
		}
	}
	return nil
}

// Field looks up a CIM or custom field by name, used by stateful
// aggregation (spec §4.4 step 1) and the transpiler's aggregate_columns
// inference. Returns ("", false) for fields not populated on this event.
func (e *Event) Field(name string) (string, bool) {
	switch name {
	case "source_ip":
		return e.SourceIP, e.SourceIP != ""
	case "destination_ip":
		return e.DestinationIP, e.DestinationIP != ""
	case "user":
		return e.User, e.User != ""
	case "host":
		return e.Host, e.Host != ""
	case "process_name":
		return e.ProcessName, e.ProcessName != ""
	case "file_path":
		return e.FilePath, e.FilePath != ""
	case "command_line":
		return e.CommandLine, e.CommandLine != ""
	case "event_category":
		return e.EventCategory, e.EventCategory != ""
	case "event_action":
		return e.EventAction, e.EventAction != ""
	case "event_outcome":
		return e.EventOutcome, e.EventOutcome != ""
	case "vendor":
		return e.Vendor, e.Vendor != ""
	case "product":
		return e.Product, e.Product != ""
	case "url":
		return e.URL, e.URL != ""
	default:
		v, ok := e.CustomFields[name]
		return v, ok
	}
}
