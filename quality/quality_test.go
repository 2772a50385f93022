package quality

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logforge/core"
	"logforge/pipeline"
)

func testWindow() core.TimeWindow {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return core.TimeWindow{Start: start, End: start.Add(24 * time.Hour)}
}

func testExpectations() Expectations {
	return Expectations{
		Counts: map[core.SourceType]int{
			core.SourceSIEM: 2000,
			core.SourceERP:  2000,
			core.SourceApp:  2000,
		},
		Window: testWindow(),
		AnomalyRates: map[core.SourceType]float64{
			core.SourceSIEM: 0.05,
			core.SourceERP:  0.05,
			core.SourceApp:  0.05,
		},
		RequireSeverity: true,
	}
}

// buildDataset produces one full pipeline result to check against.
func buildDataset(t *testing.T) map[core.SourceType][]*core.LogRecord {
	t.Helper()

	exp := testExpectations()
	result, err := pipeline.New(nil, nil, nil, nil).Run(context.Background(), pipeline.RunConfig{
		Counts:         exp.Counts,
		Window:         exp.Window,
		AnomalyRates:   exp.AnomalyRates,
		ShareFraction:  0.3,
		InjectFraction: 0.4,
		Seed:           20250601,
	})
	require.NoError(t, err)
	return result.Batches
}

func cloneBatches(batches map[core.SourceType][]*core.LogRecord) map[core.SourceType][]*core.LogRecord {
	out := make(map[core.SourceType][]*core.LogRecord, len(batches))
	for src, batch := range batches {
		cp := make([]*core.LogRecord, len(batch))
		for i, rec := range batch {
			cp[i] = rec.Clone()
		}
		out[src] = cp
	}
	return out
}

func findResult(t *testing.T, report *Report, name string, src core.SourceType) CheckResult {
	t.Helper()
	for _, res := range report.Results {
		if res.Name == name && res.Source == src {
			return res
		}
	}
	t.Fatalf("no %q result for source %q in report", name, src)
	return CheckResult{}
}

// TestCheck_CleanDatasetPasses runs every check against an untouched
// pipeline result.
func TestCheck_CleanDatasetPasses(t *testing.T) {
	checker, err := New(nil)
	require.NoError(t, err)

	report := checker.Check(buildDataset(t), testExpectations())

	require.True(t, report.Passed(), "failures: %+v", report.Failures())
	require.Equal(t, 6000, report.Records)
	require.Empty(t, report.Failures())

	// Every per-source check reported once per source.
	for _, name := range []string{"completeness", "count", "window", "level_distribution", "anomaly_rate", "linkage", "severity", "schema", "raw_format"} {
		for _, src := range core.AllSourceTypes() {
			findResult(t, report, name, src)
		}
	}
	findResult(t, report, "identity", "")
	findResult(t, report, "correlation", "")
}

// TestCheck_CatchesBrokenContracts mutates one contract at a time and
// expects the matching check to fail.
func TestCheck_CatchesBrokenContracts(t *testing.T) {
	base := buildDataset(t)
	exp := testExpectations()

	tests := []struct {
		name      string
		check     string
		source    core.SourceType
		mutate    func(batches map[core.SourceType][]*core.LogRecord)
		wantInMsg string
	}{
		{
			name:   "structural damage fails completeness",
			check:  "completeness",
			source: core.SourceSIEM,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceSIEM][7].SIEM = nil
			},
			wantInMsg: "1 of 2000 records invalid",
		},
		{
			name:   "duplicate ID fails identity",
			check:  "identity",
			source: "",
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceERP][3].ID = b[core.SourceERP][2].ID
			},
			wantInMsg: "duplicate record IDs",
		},
		{
			name:   "missing records fail count",
			check:  "count",
			source: core.SourceApp,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceApp] = b[core.SourceApp][:1500]
			},
			wantInMsg: "have 1500 records, want 2000",
		},
		{
			name:   "timestamp outside window fails window",
			check:  "window",
			source: core.SourceERP,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceERP][0].Timestamp = testWindow().End.Add(time.Hour)
			},
			wantInMsg: "1 records outside window",
		},
		{
			name:   "skewed levels fail level distribution",
			check:  "level_distribution",
			source: core.SourceApp,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				for _, rec := range b[core.SourceApp] {
					rec.Level = core.LevelFatal
				}
			},
			wantInMsg: "level FATAL",
		},
		{
			name:   "extra anomalies fail anomaly rate",
			check:  "anomaly_rate",
			source: core.SourceSIEM,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				added := 0
				for _, rec := range b[core.SourceSIEM] {
					if added == 3 {
						break
					}
					if !rec.IsAnomaly {
						rec.IsAnomaly = true
						rec.AnomalyType = core.AnomalySystemFailure
						added++
					}
				}
			},
			wantInMsg: "103 anomalous records, want 100",
		},
		{
			name:   "erp record with an IP fails linkage",
			check:  "linkage",
			source: core.SourceERP,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceERP][11].IPAddress = "10.0.9.9"
			},
			wantInMsg: "erp record with IP address",
		},
		{
			name:   "fabricated request ID fails correlation",
			check:  "correlation",
			source: "",
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				rec := b[core.SourceSIEM][5]
				rec.RequestID = "fabricated-request-id"
				rec.CorrelationID = "fabricated-request-id"
			},
			wantInMsg: "never issued by the origin source",
		},
		{
			name:   "correlation ID without request ID fails correlation",
			check:  "correlation",
			source: "",
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				for _, rec := range b[core.SourceERP] {
					if rec.RequestID == "" {
						rec.CorrelationID = "dangling"
						return
					}
				}
			},
			wantInMsg: "correlation ID but no request ID",
		},
		{
			name:   "origin mismatch fails correlation",
			check:  "correlation",
			source: "",
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceApp][9].CorrelationID = "mismatch"
			},
			wantInMsg: "differs from its request ID",
		},
		{
			name:   "missing severity fails severity",
			check:  "severity",
			source: core.SourceApp,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceApp][42].Severity = ""
			},
			wantInMsg: "1 records without a valid severity",
		},
		{
			name:   "malformed ID fails schema",
			check:  "schema",
			source: core.SourceSIEM,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceSIEM][0].ID = "short"
			},
			wantInMsg: "sampled records failed schema",
		},
		{
			name:   "garbage raw line fails raw format",
			check:  "raw_format",
			source: core.SourceApp,
			mutate: func(b map[core.SourceType][]*core.LogRecord) {
				b[core.SourceApp][1].RawText = "not an access log line"
			},
			wantInMsg: "1 raw lines malformed",
		},
	}

	checker, err := New(nil)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := cloneBatches(base)
			tt.mutate(batches)

			report := checker.Check(batches, exp)

			require.False(t, report.Passed())
			res := findResult(t, report, tt.check, tt.source)
			require.False(t, res.Passed, "expected %s check to fail", tt.check)
			assert.Contains(t, res.Detail, tt.wantInMsg)
		})
	}
}

// TestCheck_SkipsUnrequestedChecks leaves out count, window, anomaly rate,
// and severity checks when no expectations are given.
func TestCheck_SkipsUnrequestedChecks(t *testing.T) {
	checker, err := New(nil)
	require.NoError(t, err)

	report := checker.Check(buildDataset(t), Expectations{})

	require.True(t, report.Passed(), "failures: %+v", report.Failures())
	for _, res := range report.Results {
		assert.NotContains(t, []string{"count", "window", "anomaly_rate", "severity"}, res.Name)
	}
}

// TestCheck_SmallSampleSkipsDistribution passes tiny batches with a note
// instead of judging their level mix.
func TestCheck_SmallSampleSkipsDistribution(t *testing.T) {
	exp := testExpectations()
	exp.Counts = map[core.SourceType]int{
		core.SourceSIEM: 40,
		core.SourceERP:  40,
		core.SourceApp:  40,
	}
	result, err := pipeline.New(nil, nil, nil, nil).Run(context.Background(), pipeline.RunConfig{
		Counts:         exp.Counts,
		Window:         exp.Window,
		AnomalyRates:   exp.AnomalyRates,
		ShareFraction:  0.3,
		InjectFraction: 0.4,
		Seed:           77,
	})
	require.NoError(t, err)

	checker, err := New(nil)
	require.NoError(t, err)
	report := checker.Check(result.Batches, exp)

	require.True(t, report.Passed(), "failures: %+v", report.Failures())
	for _, src := range core.AllSourceTypes() {
		res := findResult(t, report, "level_distribution", src)
		assert.Contains(t, res.Detail, "skipped")
	}
}

// TestRawPatterns_Grammar pins the raw line grammar with literal lines.
func TestRawPatterns_Grammar(t *testing.T) {
	checker, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		source core.SourceType
		line   string
		want   bool
	}{
		{
			name:   "syslog line",
			source: core.SourceSIEM,
			line:   `<86>Jun  1 08:15:42 fw-edge-01 sshd[4821]: User login succeeded user=jsmith outcome=success src=10.0.3.17`,
			want:   true,
		},
		{
			name:   "syslog line with two digit day",
			source: core.SourceSIEM,
			line:   `<27>Jun 15 23:59:59 dc-core-01 lsass[300]: Authentication failure user=admin outcome=failure src=203.0.113.50`,
			want:   true,
		},
		{
			name:   "syslog line missing source IP",
			source: core.SourceSIEM,
			line:   `<86>Jun  1 08:15:42 fw-edge-01 sshd[4821]: User login succeeded user=jsmith outcome=success`,
			want:   false,
		},
		{
			name:   "erp transaction line",
			source: core.SourceERP,
			line:   `2025-06-01 09:12:00 FB60 FI/finance user=MUELLERA doc=INV-004821 amount=1243.50 USD: Document posted successfully`,
			want:   true,
		},
		{
			name:   "erp line with negative amount",
			source: core.SourceERP,
			line:   `2025-06-01 09:12:00 FB60 FI/finance user=MUELLERA doc=INV-004821 amount=-1243.50 USD: Balance check failed for document`,
			want:   true,
		},
		{
			name:   "erp line without document",
			source: core.SourceERP,
			line:   `2025-06-01 09:12:00 FB60 FI/finance user=MUELLERA amount=1243.50 USD: Document posted successfully`,
			want:   false,
		},
		{
			name:   "access log line",
			source: core.SourceApp,
			line:   `10.0.4.9 - - [01/Jun/2025:08:15:42 +0000] "POST /payment/process HTTP/1.1" 200 512 "-" "curl/8.5.0" 42ms`,
			want:   true,
		},
		{
			name:   "access log line without latency",
			source: core.SourceApp,
			line:   `10.0.4.9 - - [01/Jun/2025:08:15:42 +0000] "POST /payment/process HTTP/1.1" 200 512 "-" "curl/8.5.0"`,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := checker.rawExpr[tt.source].MatchString(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
