// Package gen produces synthetic log records for the three simulated
// sources. Each generator owns its vocabulary and a private seeded RNG, so
// generators can run in parallel and reproduce their output exactly for a
// given seed.
package gen

import (
	"errors"
	"fmt"

	"logforge/core"
	"logforge/fieldlib"
)

// ErrUnknownSource indicates a source type no generator exists for. The
// caller picked it; nothing is guessed or defaulted.
var ErrUnknownSource = errors.New("unknown source type")

// Generator is the contract every source generator satisfies. Generate
// returns clean records: anomaly injection, correlation and scoring are
// separate downstream stages.
type Generator interface {
	SourceType() core.SourceType
	Generate(count int, window core.TimeWindow) ([]*core.LogRecord, error)
}

// New returns the generator for the given source type.
func New(source core.SourceType, lib fieldlib.Library, seed int64) (Generator, error) {
	switch source {
	case core.SourceSIEM:
		return NewSIEMGenerator(lib, seed), nil
	case core.SourceERP:
		return NewERPGenerator(lib, seed), nil
	case core.SourceApp:
		return NewAppGenerator(lib, seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
}

// Per-source level weight tables. Weights sum to 100; level is drawn i.i.d.
// per record.
var (
	siemLevelWeights = []levelWeight{
		{core.LevelInfo, 55},
		{core.LevelDebug, 18},
		{core.LevelWarn, 14},
		{core.LevelError, 10},
		{core.LevelFatal, 3},
	}
	erpLevelWeights = []levelWeight{
		{core.LevelInfo, 60},
		{core.LevelDebug, 15},
		{core.LevelWarn, 12},
		{core.LevelError, 11},
		{core.LevelFatal, 2},
	}
	appLevelWeights = []levelWeight{
		{core.LevelInfo, 58},
		{core.LevelDebug, 20},
		{core.LevelWarn, 10},
		{core.LevelError, 10},
		{core.LevelFatal, 2},
	}
)

// LevelDistribution returns the expected level distribution for a source as
// fractions summing to 1. The quality checker compares measured batches
// against these.
func LevelDistribution(source core.SourceType) (map[core.Level]float64, error) {
	var weights []levelWeight
	switch source {
	case core.SourceSIEM:
		weights = siemLevelWeights
	case core.SourceERP:
		weights = erpLevelWeights
	case core.SourceApp:
		weights = appLevelWeights
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	total := 0
	for _, w := range weights {
		total += w.weight
	}
	dist := make(map[core.Level]float64, len(weights))
	for _, w := range weights {
		dist[w.level] = float64(w.weight) / float64(total)
	}
	return dist, nil
}
