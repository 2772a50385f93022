package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logforge/core"
)

func testWindow() core.TimeWindow {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return core.TimeWindow{Start: start, End: start.Add(24 * time.Hour)}
}

func testRunConfig(seed int64) RunConfig {
	return RunConfig{
		Counts: map[core.SourceType]int{
			core.SourceSIEM: 1000,
			core.SourceERP:  1000,
			core.SourceApp:  1000,
		},
		Window: testWindow(),
		AnomalyRates: map[core.SourceType]float64{
			core.SourceSIEM: 0.05,
			core.SourceERP:  0.05,
			core.SourceApp:  0.05,
		},
		ShareFraction:  0.3,
		InjectFraction: 0.4,
		Seed:           seed,
	}
}

// TestRun_FullScenario runs all four stages over three full batches and
// checks the per-stage invariants on the combined result.
func TestRun_FullScenario(t *testing.T) {
	p := New(nil, nil, nil, nil)

	result, err := p.Run(context.Background(), testRunConfig(42))
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Equal(t, 3000, result.Total())
	for _, src := range core.AllSourceTypes() {
		require.Len(t, result.Batches[src], 1000, "batch for %s", src)
	}

	// Exactly round(1000 * 0.05) records per source carry the anomaly flag.
	for _, src := range core.AllSourceTypes() {
		require.Equal(t, 50, result.Injected[src], "injected count for %s", src)
		flagged := 0
		for _, rec := range result.Batches[src] {
			if rec.IsAnomaly {
				flagged++
			}
		}
		require.Equal(t, 50, flagged, "flagged records for %s", src)
	}

	// 1000 eligible app request IDs at share 0.3 give a pool of 300.
	require.NotNil(t, result.Correlation)
	require.False(t, result.Correlation.Skipped)
	require.Equal(t, 300, result.Correlation.PoolSize)
	require.Positive(t, result.Correlation.TotalAdopted())

	// Every record is valid, inside the window, and carries a severity.
	for _, rec := range result.All() {
		require.NoError(t, rec.Validate())
		require.True(t, testWindow().Contains(rec.Timestamp))
		require.True(t, rec.Severity.IsValid(), "severity for %s", rec.ID)
	}

	require.Positive(t, result.Duration)
}

// TestRun_AdoptedIDsComeFromOrigin verifies that correlation inside a run
// never fabricates request IDs.
func TestRun_AdoptedIDsComeFromOrigin(t *testing.T) {
	p := New(nil, nil, nil, nil)

	result, err := p.Run(context.Background(), testRunConfig(7))
	require.NoError(t, err)

	originIDs := make(map[string]bool)
	for _, rec := range result.Batches[core.SourceApp] {
		if rec.RequestID != "" {
			originIDs[rec.RequestID] = true
		}
	}

	adopted := 0
	for _, src := range []core.SourceType{core.SourceSIEM, core.SourceERP} {
		for _, rec := range result.Batches[src] {
			if rec.CorrelationID == "" {
				continue
			}
			adopted++
			require.Equal(t, rec.CorrelationID, rec.RequestID)
			require.True(t, originIDs[rec.CorrelationID],
				"correlation ID %s not issued by the origin source", rec.CorrelationID)
		}
	}
	require.Equal(t, result.Correlation.Adopted[core.SourceSIEM]+result.Correlation.Adopted[core.SourceERP], adopted)
}

// TestRun_Deterministic checks that two runs with the same seed produce
// identical results and a different seed does not.
func TestRun_Deterministic(t *testing.T) {
	p := New(nil, nil, nil, nil)

	first, err := p.Run(context.Background(), testRunConfig(99))
	require.NoError(t, err)
	second, err := p.Run(context.Background(), testRunConfig(99))
	require.NoError(t, err)

	require.Equal(t, first.Batches, second.Batches)
	require.Equal(t, first.Injected, second.Injected)
	require.Equal(t, first.Correlation, second.Correlation)

	third, err := p.Run(context.Background(), testRunConfig(100))
	require.NoError(t, err)
	assert.NotEqual(t, first.Batches, third.Batches)
}

// TestRun_StageSeedsIndependent verifies that changing a later stage's
// parameters does not disturb the records generation produced.
func TestRun_StageSeedsIndependent(t *testing.T) {
	p := New(nil, nil, nil, nil)

	base := testRunConfig(411)
	changed := testRunConfig(411)
	changed.AnomalyRates = map[core.SourceType]float64{core.SourceApp: 0.5}
	changed.ShareFraction = 0.9
	changed.InjectFraction = 0.1

	first, err := p.Run(context.Background(), base)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), changed)
	require.NoError(t, err)

	for _, src := range core.AllSourceTypes() {
		for i, rec := range first.Batches[src] {
			require.Equal(t, rec.ID, second.Batches[src][i].ID,
				"record identity changed for %s at index %d", src, i)
			require.Equal(t, rec.Timestamp, second.Batches[src][i].Timestamp)
		}
	}
}

// TestRun_All returns records grouped by source in a fixed order.
func TestRun_All(t *testing.T) {
	p := New(nil, nil, nil, nil)

	cfg := testRunConfig(5)
	cfg.Counts = map[core.SourceType]int{
		core.SourceSIEM: 10,
		core.SourceERP:  20,
		core.SourceApp:  30,
	}

	result, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)

	all := result.All()
	require.Len(t, all, 60)
	for i, rec := range all {
		switch {
		case i < 10:
			require.Equal(t, core.SourceSIEM, rec.SourceType)
		case i < 30:
			require.Equal(t, core.SourceERP, rec.SourceType)
		default:
			require.Equal(t, core.SourceApp, rec.SourceType)
		}
	}
}

// TestRun_ZeroCounts produces an empty but well-formed result.
func TestRun_ZeroCounts(t *testing.T) {
	p := New(nil, nil, nil, nil)

	cfg := testRunConfig(1)
	cfg.Counts = map[core.SourceType]int{}

	result, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 0, result.Total())
	require.Empty(t, result.All())
	for _, src := range core.AllSourceTypes() {
		require.NotNil(t, result.Batches[src])
		require.Empty(t, result.Batches[src])
		require.Zero(t, result.Injected[src])
	}
	require.True(t, result.Correlation.Skipped)
}

// TestRun_ValidationErrors rejects bad parameters before any stage runs.
func TestRun_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantMsg string
	}{
		{
			name: "negative count",
			mutate: func(cfg *RunConfig) {
				cfg.Counts[core.SourceERP] = -5
			},
			wantMsg: "erp count -5",
		},
		{
			name: "unknown source in counts",
			mutate: func(cfg *RunConfig) {
				cfg.Counts[core.SourceType("kafka")] = 10
			},
			wantMsg: `unknown source type "kafka"`,
		},
		{
			name: "anomaly rate above one",
			mutate: func(cfg *RunConfig) {
				cfg.AnomalyRates[core.SourceSIEM] = 1.5
			},
			wantMsg: "siem anomaly_rate 1.5",
		},
		{
			name: "anomaly rate negative",
			mutate: func(cfg *RunConfig) {
				cfg.AnomalyRates[core.SourceApp] = -0.2
			},
			wantMsg: "application anomaly_rate -0.2",
		},
		{
			name: "unknown source in anomaly rates",
			mutate: func(cfg *RunConfig) {
				cfg.AnomalyRates[core.SourceType("syslog-ng")] = 0.1
			},
			wantMsg: `anomaly_rate for unknown source type "syslog-ng"`,
		},
		{
			name: "share fraction out of range",
			mutate: func(cfg *RunConfig) {
				cfg.ShareFraction = 1.2
			},
			wantMsg: "share_fraction 1.2",
		},
		{
			name: "inject fraction out of range",
			mutate: func(cfg *RunConfig) {
				cfg.InjectFraction = -0.1
			},
			wantMsg: "inject_fraction -0.1",
		},
	}

	p := New(nil, nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testRunConfig(3)
			tt.mutate(&cfg)

			result, err := p.Run(context.Background(), cfg)
			require.Error(t, err)
			require.Nil(t, result)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// TestRun_InvalidWindow surfaces the window sentinel unchanged.
func TestRun_InvalidWindow(t *testing.T) {
	p := New(nil, nil, nil, nil)

	cfg := testRunConfig(3)
	cfg.Window = core.TimeWindow{Start: cfg.Window.End, End: cfg.Window.Start}

	_, err := p.Run(context.Background(), cfg)
	require.ErrorIs(t, err, core.ErrInvalidWindow)
}

// TestRun_CancelledContext stops the run before records are produced.
func TestRun_CancelledContext(t *testing.T) {
	p := New(nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx, testRunConfig(8))
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, result)
}

// TestRun_ConcurrentRuns exercises one Pipeline from several goroutines.
func TestRun_ConcurrentRuns(t *testing.T) {
	t.Parallel()

	p := New(nil, nil, nil, nil)
	cfg := testRunConfig(64)
	cfg.Counts = map[core.SourceType]int{
		core.SourceSIEM: 200,
		core.SourceERP:  200,
		core.SourceApp:  200,
	}

	results := make([]*Result, 4)
	errs := make([]error, 4)
	done := make(chan int, 4)
	for i := range results {
		go func(i int) {
			results[i], errs[i] = p.Run(context.Background(), cfg)
			done <- i
		}(i)
	}
	for range results {
		<-done
	}

	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, 600, results[i].Total())
	}
	// Identical seeds from separate goroutines still agree.
	require.Equal(t, results[0].Batches, results[1].Batches)
	require.Equal(t, results[0].Batches, results[2].Batches)
}
