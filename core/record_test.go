package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLogRecord verifies constructor defaults
func TestNewLogRecord(t *testing.T) {
	rec := NewLogRecord(SourceApp)

	assert.NotEmpty(t, rec.ID, "ID should be generated")
	assert.Equal(t, SourceApp, rec.SourceType)
	assert.False(t, rec.Timestamp.IsZero(), "timestamp should be initialized")
	assert.False(t, rec.IsAnomaly)
	assert.Empty(t, rec.Severity, "severity is assigned by the scorer, not at creation")

	other := NewLogRecord(SourceApp)
	assert.NotEqual(t, rec.ID, other.ID, "IDs should be unique")
}

// TestLogRecord_Validate tests structural consistency checks
func TestLogRecord_Validate(t *testing.T) {
	valid := func() *LogRecord {
		rec := NewLogRecord(SourceApp)
		rec.Level = LevelInfo
		rec.App = &AppFields{Service: "order-service", HTTPMethod: "GET", Endpoint: "/orders", HTTPStatus: 200}
		return rec
	}

	tests := []struct {
		name    string
		mutate  func(*LogRecord)
		wantErr string
	}{
		{
			name:   "valid application record",
			mutate: func(r *LogRecord) {},
		},
		{
			name:    "empty id",
			mutate:  func(r *LogRecord) { r.ID = "" },
			wantErr: "empty id",
		},
		{
			name:    "invalid level",
			mutate:  func(r *LogRecord) { r.Level = "TRACE" },
			wantErr: "invalid level",
		},
		{
			name:    "invalid source type",
			mutate:  func(r *LogRecord) { r.SourceType = "mainframe" },
			wantErr: "invalid source type",
		},
		{
			name:    "no structured variant",
			mutate:  func(r *LogRecord) { r.App = nil },
			wantErr: "structured variants",
		},
		{
			name: "two structured variants",
			mutate: func(r *LogRecord) {
				r.ERP = &ERPFields{TransactionCode: "VA01"}
			},
			wantErr: "structured variants",
		},
		{
			name: "variant does not match source",
			mutate: func(r *LogRecord) {
				r.App = nil
				r.SIEM = &SIEMFields{Host: "host-1"}
			},
			wantErr: "does not match source type",
		},
		{
			name: "anomalous without anomaly type",
			mutate: func(r *LogRecord) {
				r.IsAnomaly = true
			},
			wantErr: "invalid anomaly type",
		},
		{
			name: "anomaly type without flag",
			mutate: func(r *LogRecord) {
				r.AnomalyType = AnomalySystemFailure
			},
			wantErr: "non-anomalous record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)
			err := rec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

// TestLogRecord_ServiceName_Endpoint tests the per-source accessors
func TestLogRecord_ServiceName_Endpoint(t *testing.T) {
	app := &LogRecord{SourceType: SourceApp, App: &AppFields{Service: "payment-api", Endpoint: "/payment/process"}}
	assert.Equal(t, "payment-api", app.ServiceName())
	assert.Equal(t, "/payment/process", app.Endpoint())

	erp := &LogRecord{SourceType: SourceERP, ERP: &ERPFields{Module: "FI", TransactionCode: "FB60"}}
	assert.Equal(t, "FI", erp.ServiceName())
	assert.Equal(t, "FB60", erp.Endpoint())

	siem := &LogRecord{SourceType: SourceSIEM, SIEM: &SIEMFields{ProcessName: "sshd"}}
	assert.Equal(t, "sshd", siem.ServiceName())
	assert.Empty(t, siem.Endpoint(), "SIEM records carry no endpoint")

	empty := &LogRecord{}
	assert.Empty(t, empty.ServiceName())
	assert.Empty(t, empty.Endpoint())
}

// TestLogRecord_Fields verifies the flat map view of each variant
func TestLogRecord_Fields(t *testing.T) {
	siem := &LogRecord{SIEM: &SIEMFields{
		Host:        "fw-edge-01",
		EventID:     4625,
		Category:    "authentication",
		Outcome:     "failure",
		ProcessName: "winlogon",
		Username:    "svc_backup",
	}}
	m := siem.Fields()
	assert.Equal(t, "fw-edge-01", m["host"])
	assert.Equal(t, 4625, m["event_id"])
	assert.Equal(t, "failure", m["outcome"])
	assert.NotContains(t, m, "affected_services", "empty affected services omitted")

	siem.SIEM.AffectedServices = []string{"auth-service", "order-service"}
	assert.Contains(t, siem.Fields(), "affected_services")

	erp := &LogRecord{ERP: &ERPFields{TransactionCode: "FB60", Module: "FI", Amount: 1250.50, Currency: "EUR"}}
	m = erp.Fields()
	assert.Equal(t, "FB60", m["transaction_code"])
	assert.Equal(t, 1250.50, m["amount"])

	app := &LogRecord{App: &AppFields{Service: "auth-service", HTTPStatus: 401, ResponseTimeMS: 12.5}}
	m = app.Fields()
	assert.Equal(t, 401, m["http_status"])
	assert.Equal(t, 12.5, m["response_time_ms"])

	assert.Empty(t, (&LogRecord{}).Fields())
}

// TestLogRecord_Clone verifies deep copy semantics
func TestLogRecord_Clone(t *testing.T) {
	rec := NewLogRecord(SourceSIEM)
	rec.Level = LevelFatal
	rec.SIEM = &SIEMFields{Host: "db-host-02", AffectedServices: []string{"billing-service"}}

	cp := rec.Clone()
	require.NotSame(t, rec, cp)
	require.NotSame(t, rec.SIEM, cp.SIEM)
	assert.Equal(t, rec.SIEM.Host, cp.SIEM.Host)

	cp.SIEM.Host = "changed"
	cp.SIEM.AffectedServices[0] = "changed"
	assert.Equal(t, "db-host-02", rec.SIEM.Host, "clone mutation should not leak back")
	assert.Equal(t, "billing-service", rec.SIEM.AffectedServices[0])
}

// TestLogRecord_JSONShape verifies the wire field names stay stable
func TestLogRecord_JSONShape(t *testing.T) {
	rec := &LogRecord{
		ID:          "rec-1",
		Timestamp:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Level:       LevelError,
		SourceType:  SourceApp,
		Message:     "connection failed",
		App:         &AppFields{Service: "payment-api", HTTPMethod: "POST", Endpoint: "/payment/process", HTTPStatus: 502},
		RequestID:   "req-42",
		IsAnomaly:   true,
		AnomalyType: AnomalySystemFailure,
		Severity:    SeverityCritical,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "application", decoded["source_type"])
	assert.Equal(t, "ERROR", decoded["level"])
	assert.Equal(t, "req-42", decoded["request_id"])
	assert.Equal(t, "system-failure", decoded["anomaly_type"])
	assert.Equal(t, "critical", decoded["severity"])
	assert.NotContains(t, decoded, "siem", "inactive variants omitted from JSON")
	assert.NotContains(t, decoded, "correlation_id", "absent linkage keys omitted")
}
