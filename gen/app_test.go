package gen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logforge/core"
	"logforge/fieldlib"
)

// TestAppGenerator_StatusConsistentWithLevel verifies the 5xx/4xx/2xx bias
// rules
func TestAppGenerator_StatusConsistentWithLevel(t *testing.T) {
	g := NewAppGenerator(fieldlib.Default(), 21)
	records, err := g.Generate(5000, testWindow())
	require.NoError(t, err)

	classCounts := make(map[core.Level]map[int]int)
	for _, rec := range records {
		if classCounts[rec.Level] == nil {
			classCounts[rec.Level] = make(map[int]int)
		}
		classCounts[rec.Level][rec.App.HTTPStatus/100]++
	}

	share := func(level core.Level, class int) float64 {
		total := 0
		for _, n := range classCounts[level] {
			total += n
		}
		if total == 0 {
			return 0
		}
		return float64(classCounts[level][class]) / float64(total)
	}

	assert.Greater(t, share(core.LevelError, 5), 0.7, "ERROR should bias 5xx")
	assert.Greater(t, share(core.LevelFatal, 5), 0.7, "FATAL should bias 5xx")
	assert.Greater(t, share(core.LevelWarn, 4), 0.45, "WARN should bias 4xx")
	assert.Greater(t, share(core.LevelInfo, 2), 0.8, "INFO should bias 2xx")
	assert.Zero(t, share(core.LevelInfo, 5), "INFO never produces 5xx")
	assert.Zero(t, share(core.LevelDebug, 5), "DEBUG never produces 5xx")
}

// TestAppGenerator_ResponseTimeSkew verifies 5xx responses run slower
func TestAppGenerator_ResponseTimeSkew(t *testing.T) {
	g := NewAppGenerator(fieldlib.Default(), 22)
	records, err := g.Generate(5000, testWindow())
	require.NoError(t, err)

	var okSum, okN, errSum, errN float64
	for _, rec := range records {
		require.Positive(t, rec.App.ResponseTimeMS)
		if rec.App.HTTPStatus >= 500 {
			errSum += rec.App.ResponseTimeMS
			errN++
		} else {
			okSum += rec.App.ResponseTimeMS
			okN++
		}
	}
	require.NotZero(t, okN)
	require.NotZero(t, errN)
	assert.Greater(t, errSum/errN, 2*(okSum/okN),
		"5xx mean latency should dominate non-5xx")
}

// TestAppGenerator_LinkageKeys checks request IDs on every record and
// session coverage near 60%
func TestAppGenerator_LinkageKeys(t *testing.T) {
	g := NewAppGenerator(fieldlib.Default(), 23)
	records, err := g.Generate(4000, testWindow())
	require.NoError(t, err)

	seen := make(map[string]bool, len(records))
	withSession := 0
	for _, rec := range records {
		require.NotEmpty(t, rec.RequestID, "origin records always carry a fresh request ID")
		assert.False(t, seen[rec.RequestID], "request IDs must be unique per record")
		seen[rec.RequestID] = true
		assert.NotEmpty(t, rec.IPAddress)
		if rec.SessionID != "" {
			withSession++
		}
	}
	rate := float64(withSession) / float64(len(records))
	assert.InDelta(t, 0.60, rate, 0.05)
}

// TestAppGenerator_RawTextShape verifies the access-log line carries the
// method/endpoint/status triple
func TestAppGenerator_RawTextShape(t *testing.T) {
	g := NewAppGenerator(fieldlib.Default(), 24)
	records, err := g.Generate(200, testWindow())
	require.NoError(t, err)

	for _, rec := range records {
		assert.Contains(t, rec.RawText,
			fmt.Sprintf("%q", fmt.Sprintf("%s %s HTTP/1.1", rec.App.HTTPMethod, rec.App.Endpoint)))
		assert.Contains(t, rec.RawText, fmt.Sprintf(" %d ", rec.App.HTTPStatus))
		assert.Contains(t, rec.RawText, rec.IPAddress)
	}
}

// TestAppGenerator_PodNameDerivesFromService checks the deployment-style
// naming
func TestAppGenerator_PodNameDerivesFromService(t *testing.T) {
	g := NewAppGenerator(fieldlib.Default(), 25)
	records, err := g.Generate(100, testWindow())
	require.NoError(t, err)

	for _, rec := range records {
		assert.Regexp(t,
			fmt.Sprintf(`^%s-[a-z0-9]{9}-[a-z0-9]{5}$`, rec.App.Service),
			rec.App.PodName)
	}
}
