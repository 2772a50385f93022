package gen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logforge/core"
	"logforge/fieldlib"
)

func testWindow() core.TimeWindow {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return core.TimeWindow{Start: start, End: start.Add(24 * time.Hour)}
}

// TestNew returns the right generator per source and rejects unknown ones
func TestNew(t *testing.T) {
	lib := fieldlib.Default()

	for _, source := range core.AllSourceTypes() {
		g, err := New(source, lib, 1)
		require.NoError(t, err, "source %s", source)
		assert.Equal(t, source, g.SourceType())
	}

	_, err := New("mainframe", lib, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

// TestGenerate_NonPositiveCount yields an empty batch, not an error
func TestGenerate_NonPositiveCount(t *testing.T) {
	lib := fieldlib.Default()
	for _, source := range core.AllSourceTypes() {
		g, err := New(source, lib, 7)
		require.NoError(t, err)

		for _, count := range []int{0, -1, -100} {
			records, err := g.Generate(count, testWindow())
			require.NoError(t, err, "source %s count %d", source, count)
			assert.Empty(t, records)
		}
	}
}

// TestGenerate_InvalidWindow is a fatal configuration error
func TestGenerate_InvalidWindow(t *testing.T) {
	lib := fieldlib.Default()
	now := time.Now().UTC()
	bad := core.TimeWindow{Start: now, End: now.Add(-time.Hour)}

	for _, source := range core.AllSourceTypes() {
		g, err := New(source, lib, 7)
		require.NoError(t, err)

		_, err = g.Generate(10, bad)
		require.Error(t, err, "source %s", source)
		assert.ErrorIs(t, err, core.ErrInvalidWindow)
	}
}

// TestGenerate_RecordShape checks every record is structurally valid with
// timestamps inside the window
func TestGenerate_RecordShape(t *testing.T) {
	lib := fieldlib.Default()
	window := testWindow()

	for _, source := range core.AllSourceTypes() {
		source := source
		t.Run(source.String(), func(t *testing.T) {
			g, err := New(source, lib, 42)
			require.NoError(t, err)

			records, err := g.Generate(500, window)
			require.NoError(t, err)
			require.Len(t, records, 500)

			seen := make(map[string]bool, len(records))
			for _, rec := range records {
				require.NoError(t, rec.Validate())
				assert.Equal(t, source, rec.SourceType)
				assert.True(t, window.Contains(rec.Timestamp),
					"timestamp %s outside window", rec.Timestamp)
				assert.False(t, rec.IsAnomaly, "generators emit clean records")
				assert.Empty(t, rec.Severity, "severity is assigned by the scorer")
				assert.NotEmpty(t, rec.Message)
				assert.NotEmpty(t, rec.RawText)
				assert.False(t, seen[rec.ID], "duplicate record id %s", rec.ID)
				seen[rec.ID] = true
			}
		})
	}
}

// TestGenerate_Deterministic verifies equal seeds reproduce the batch exactly
func TestGenerate_Deterministic(t *testing.T) {
	lib := fieldlib.Default()
	window := testWindow()

	for _, source := range core.AllSourceTypes() {
		a, err := New(source, lib, 1234)
		require.NoError(t, err)
		b, err := New(source, lib, 1234)
		require.NoError(t, err)

		batchA, err := a.Generate(200, window)
		require.NoError(t, err)
		batchB, err := b.Generate(200, window)
		require.NoError(t, err)

		require.Equal(t, batchA, batchB, "source %s: same seed must reproduce output", source)

		c, err := New(source, lib, 4321)
		require.NoError(t, err)
		batchC, err := c.Generate(200, window)
		require.NoError(t, err)
		assert.NotEqual(t, batchA, batchC, "source %s: different seed should differ", source)
	}
}

// TestGenerate_LevelDistribution checks sampled levels track the weight
// tables within tolerance
func TestGenerate_LevelDistribution(t *testing.T) {
	lib := fieldlib.Default()
	window := testWindow()
	const n = 20000
	const tolerance = 0.02

	for _, source := range core.AllSourceTypes() {
		source := source
		t.Run(source.String(), func(t *testing.T) {
			g, err := New(source, lib, 99)
			require.NoError(t, err)

			records, err := g.Generate(n, window)
			require.NoError(t, err)

			counts := make(map[core.Level]int)
			for _, rec := range records {
				counts[rec.Level]++
			}

			expected, err := LevelDistribution(source)
			require.NoError(t, err)
			for level, want := range expected {
				got := float64(counts[level]) / float64(n)
				assert.InDelta(t, want, got, tolerance,
					"level %s: want %.3f got %.3f", level, want, got)
			}
		})
	}
}

// TestLevelDistribution_SumsToOne sanity-checks the exported tables
func TestLevelDistribution_SumsToOne(t *testing.T) {
	for _, source := range core.AllSourceTypes() {
		dist, err := LevelDistribution(source)
		require.NoError(t, err)

		sum := 0.0
		for _, f := range dist {
			sum += f
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "source %s", source)
	}

	_, err := LevelDistribution("mainframe")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

// TestGenerate_ParallelSafe runs all generators concurrently against one
// shared library value
func TestGenerate_ParallelSafe(t *testing.T) {
	lib := fieldlib.Default()
	window := testWindow()

	for i, source := range core.AllSourceTypes() {
		source := source
		seed := int64(100 + i)
		t.Run(source.String(), func(t *testing.T) {
			t.Parallel()
			g, err := New(source, lib, seed)
			require.NoError(t, err)

			records, err := g.Generate(2000, window)
			require.NoError(t, err)
			assert.Len(t, records, 2000)
		})
	}
}
