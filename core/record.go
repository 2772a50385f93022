package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogRecord is the common record shape produced for all simulated sources.
// Exactly one of SIEM, ERP or App is non-nil, matching SourceType.
type LogRecord struct {
	ID         string     `json:"id" bson:"id"`
	Timestamp  time.Time  `json:"timestamp" bson:"timestamp"`
	Level      Level      `json:"level" bson:"level"`
	SourceType SourceType `json:"source_type" bson:"source_type"`
	Message    string     `json:"message" bson:"message"`
	RawText    string     `json:"raw_text" bson:"raw_text"`

	SIEM *SIEMFields `json:"siem,omitempty" bson:"siem,omitempty"`
	ERP  *ERPFields  `json:"erp,omitempty" bson:"erp,omitempty"`
	App  *AppFields  `json:"app,omitempty" bson:"app,omitempty"`

	// Cross-system linkage keys; empty string means absent.
	CorrelationID string `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	RequestID     string `json:"request_id,omitempty" bson:"request_id,omitempty"`
	SessionID     string `json:"session_id,omitempty" bson:"session_id,omitempty"`
	IPAddress     string `json:"ip_address,omitempty" bson:"ip_address,omitempty"`

	IsAnomaly   bool        `json:"is_anomaly" bson:"is_anomaly"`
	AnomalyType AnomalyType `json:"anomaly_type,omitempty" bson:"anomaly_type,omitempty"`

	// Severity is assigned once by the scorer, after every other field is
	// final.
	Severity Severity `json:"severity,omitempty" bson:"severity,omitempty"`
}

// SIEMFields holds the structured attributes of a SIEM-style record.
type SIEMFields struct {
	Host             string   `json:"host" bson:"host"`
	EventID          int      `json:"event_id" bson:"event_id"`
	Category         string   `json:"category" bson:"category"`
	Outcome          string   `json:"outcome" bson:"outcome"`
	ProcessName      string   `json:"process_name" bson:"process_name"`
	Username         string   `json:"username" bson:"username"`
	AffectedServices []string `json:"affected_services,omitempty" bson:"affected_services,omitempty"`
}

// ERPFields holds the structured attributes of an ERP-style record.
type ERPFields struct {
	TransactionCode string  `json:"transaction_code" bson:"transaction_code"`
	Department      string  `json:"department" bson:"department"`
	Module          string  `json:"module" bson:"module"`
	Amount          float64 `json:"amount" bson:"amount"`
	Currency        string  `json:"currency" bson:"currency"`
	DocumentID      string  `json:"document_id" bson:"document_id"`
	Username        string  `json:"username" bson:"username"`
}

// AppFields holds the structured attributes of an application-style record.
type AppFields struct {
	Service        string  `json:"service" bson:"service"`
	HTTPMethod     string  `json:"http_method" bson:"http_method"`
	Endpoint       string  `json:"endpoint" bson:"endpoint"`
	HTTPStatus     int     `json:"http_status" bson:"http_status"`
	ResponseTimeMS float64 `json:"response_time_ms" bson:"response_time_ms"`
	PodName        string  `json:"pod_name" bson:"pod_name"`
}

// NewLogRecord creates a record for the given source with a generated UUID.
func NewLogRecord(source SourceType) *LogRecord {
	return &LogRecord{
		ID:         uuid.New().String(),
		Timestamp:  time.Now().UTC(),
		SourceType: source,
	}
}

// ServiceName returns the name the scorer treats as the owning service: the
// application service name, the ERP module, or the SIEM process name.
func (r *LogRecord) ServiceName() string {
	switch {
	case r.App != nil:
		return r.App.Service
	case r.ERP != nil:
		return r.ERP.Module
	case r.SIEM != nil:
		return r.SIEM.ProcessName
	default:
		return ""
	}
}

// Endpoint returns the endpoint or transaction code the record acted on,
// empty for sources that carry neither.
func (r *LogRecord) Endpoint() string {
	switch {
	case r.App != nil:
		return r.App.Endpoint
	case r.ERP != nil:
		return r.ERP.TransactionCode
	default:
		return ""
	}
}

// Fields renders the active structured variant as a flat map keyed by the
// field's JSON name. Consumers that need a uniform view (sinks, the quality
// checker) use this instead of switching on SourceType themselves.
func (r *LogRecord) Fields() map[string]interface{} {
	m := make(map[string]interface{})
	switch {
	case r.SIEM != nil:
		m["host"] = r.SIEM.Host
		m["event_id"] = r.SIEM.EventID
		m["category"] = r.SIEM.Category
		m["outcome"] = r.SIEM.Outcome
		m["process_name"] = r.SIEM.ProcessName
		m["username"] = r.SIEM.Username
		if len(r.SIEM.AffectedServices) > 0 {
			m["affected_services"] = r.SIEM.AffectedServices
		}
	case r.ERP != nil:
		m["transaction_code"] = r.ERP.TransactionCode
		m["department"] = r.ERP.Department
		m["module"] = r.ERP.Module
		m["amount"] = r.ERP.Amount
		m["currency"] = r.ERP.Currency
		m["document_id"] = r.ERP.DocumentID
		m["username"] = r.ERP.Username
	case r.App != nil:
		m["service"] = r.App.Service
		m["http_method"] = r.App.HTTPMethod
		m["endpoint"] = r.App.Endpoint
		m["http_status"] = r.App.HTTPStatus
		m["response_time_ms"] = r.App.ResponseTimeMS
		m["pod_name"] = r.App.PodName
	}
	return m
}

// Validate checks structural consistency: known enums and exactly one
// structured variant matching SourceType.
func (r *LogRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record has empty id")
	}
	if !r.Level.IsValid() {
		return fmt.Errorf("record %s: invalid level %q", r.ID, r.Level)
	}
	if !r.SourceType.IsValid() {
		return fmt.Errorf("record %s: invalid source type %q", r.ID, r.SourceType)
	}
	variants := 0
	if r.SIEM != nil {
		variants++
	}
	if r.ERP != nil {
		variants++
	}
	if r.App != nil {
		variants++
	}
	if variants != 1 {
		return fmt.Errorf("record %s: %d structured variants set, want exactly 1", r.ID, variants)
	}
	var match bool
	switch r.SourceType {
	case SourceSIEM:
		match = r.SIEM != nil
	case SourceERP:
		match = r.ERP != nil
	case SourceApp:
		match = r.App != nil
	}
	if !match {
		return fmt.Errorf("record %s: structured variant does not match source type %s", r.ID, r.SourceType)
	}
	if r.IsAnomaly && !r.AnomalyType.IsValid() {
		return fmt.Errorf("record %s: anomalous record has invalid anomaly type %q", r.ID, r.AnomalyType)
	}
	if !r.IsAnomaly && r.AnomalyType != "" {
		return fmt.Errorf("record %s: anomaly type %q set on non-anomalous record", r.ID, r.AnomalyType)
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *LogRecord) Clone() *LogRecord {
	cp := *r
	if r.SIEM != nil {
		s := *r.SIEM
		if r.SIEM.AffectedServices != nil {
			s.AffectedServices = append([]string(nil), r.SIEM.AffectedServices...)
		}
		cp.SIEM = &s
	}
	if r.ERP != nil {
		e := *r.ERP
		cp.ERP = &e
	}
	if r.App != nil {
		a := *r.App
		cp.App = &a
	}
	return &cp
}
