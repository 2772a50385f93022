// Package correlate propagates request identifiers across source batches,
// simulating one logical transaction traversing several systems. Identifiers
// are only ever copied from origin-source records generated in the same run;
// non-origin sources never invent one.
package correlate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"logforge/core"
)

// Origin is the source whose records contribute request IDs to the shared
// pool. Application records carry a fresh request ID each, which makes them
// the natural origin.
const Origin = core.SourceApp

// Report summarizes one correlation pass.
type Report struct {
	// Skipped is true when the pool came up empty (no origin records or a
	// zero share fraction); skipping is not an error.
	Skipped bool
	// PoolSize is the number of origin request IDs sampled into the pool.
	PoolSize int
	// Adopted counts, per non-origin source, the records that took on a
	// pool identifier.
	Adopted map[core.SourceType]int
}

// TotalAdopted sums adoptions across sources.
func (r *Report) TotalAdopted() int {
	total := 0
	for _, n := range r.Adopted {
		total += n
	}
	return total
}

// Engine owns the sampling RNG for one correlation pass.
type Engine struct {
	rand *rand.Rand
}

// New creates a correlation engine with its own seeded RNG.
func New(seed int64) *Engine {
	return &Engine{rand: rand.New(rand.NewSource(seed))}
}

// Correlate samples ⌈origin·shareFraction⌉ origin request IDs into a pool,
// then lets every non-origin record adopt a uniform pool pick with
// probability injectFraction. Contributors and adopters both get their
// CorrelationID stamped with the shared value.
func (e *Engine) Correlate(batches map[core.SourceType][]*core.LogRecord, shareFraction, injectFraction float64) (*Report, error) {
	if shareFraction < 0 || shareFraction > 1 {
		return nil, fmt.Errorf("correlate: share_fraction %v out of range [0,1]", shareFraction)
	}
	if injectFraction < 0 || injectFraction > 1 {
		return nil, fmt.Errorf("correlate: inject_fraction %v out of range [0,1]", injectFraction)
	}

	report := &Report{Adopted: make(map[core.SourceType]int)}

	// Only origin records that actually carry a request ID can contribute.
	var eligible []*core.LogRecord
	for _, rec := range batches[Origin] {
		if rec.RequestID != "" {
			eligible = append(eligible, rec)
		}
	}

	poolSize := int(math.Ceil(float64(len(eligible)) * shareFraction))
	if poolSize == 0 {
		report.Skipped = true
		return report, nil
	}

	perm := e.rand.Perm(len(eligible))
	pool := make([]string, 0, poolSize)
	for _, idx := range perm[:poolSize] {
		rec := eligible[idx]
		rec.CorrelationID = rec.RequestID
		pool = append(pool, rec.RequestID)
	}
	report.PoolSize = len(pool)

	// Stable source order keeps the pass reproducible for a given seed.
	sources := make([]core.SourceType, 0, len(batches))
	for source := range batches {
		if source != Origin {
			sources = append(sources, source)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	for _, source := range sources {
		for _, rec := range batches[source] {
			if e.rand.Float64() >= injectFraction {
				continue
			}
			shared := pool[e.rand.Intn(len(pool))]
			rec.RequestID = shared
			rec.CorrelationID = shared
			report.Adopted[source]++
		}
	}
	return report, nil
}
