// Package anomaly mutates a sampled subset of clean records into one of the
// anomaly archetypes defined for their source. Injection runs exactly once
// per batch, before correlation and scoring.
package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"logforge/core"
	"logforge/fieldlib"
	"logforge/gen"
)

// ErrAlreadyInjected indicates a batch that already contains anomalous
// records; injection never runs twice over the same batch.
var ErrAlreadyInjected = errors.New("batch already contains anomalous records")

// archetype is one named abnormal behavior: the levels it elevates to, the
// messages it writes, and the structured-field mutation it applies.
type archetype struct {
	kind     core.AnomalyType
	levels   []core.Level
	messages []string
	mutate   func(*Injector, *core.LogRecord)
}

// Injector rewrites sampled records into anomalies using its own seeded RNG.
type Injector struct {
	rand *rand.Rand
	lib  fieldlib.Library
}

// New creates an injector. The library feeds mutations that need vocabulary,
// such as the service names a system failure takes down.
func New(lib fieldlib.Library, seed int64) *Injector {
	return &Injector{
		rand: rand.New(rand.NewSource(seed)),
		lib:  lib,
	}
}

// Inject marks round(len(records)·rate) records, chosen uniformly without
// replacement, as anomalies. It returns the number of records mutated.
// A rate that rounds to zero victims is a no-op, not an error.
func (inj *Injector) Inject(records []*core.LogRecord, rate float64) (int, error) {
	if rate < 0 || rate > 1 {
		return 0, fmt.Errorf("anomaly: rate %v out of range [0,1]", rate)
	}
	for _, rec := range records {
		if rec.IsAnomaly {
			return 0, fmt.Errorf("%w (record %s)", ErrAlreadyInjected, rec.ID)
		}
	}

	victims := int(math.Round(float64(len(records)) * rate))
	if victims == 0 {
		return 0, nil
	}

	perm := inj.rand.Perm(len(records))
	for _, idx := range perm[:victims] {
		if err := inj.injectOne(records[idx]); err != nil {
			return 0, err
		}
	}
	return victims, nil
}

func (inj *Injector) injectOne(rec *core.LogRecord) error {
	catalog, ok := catalogs[rec.SourceType]
	if !ok {
		return fmt.Errorf("anomaly: no catalog for source type %q", rec.SourceType)
	}
	arch := catalog[inj.rand.Intn(len(catalog))]

	rec.Level = arch.levels[inj.rand.Intn(len(arch.levels))]
	rec.Message = arch.messages[inj.rand.Intn(len(arch.messages))]
	arch.mutate(inj, rec)
	rec.IsAnomaly = true
	rec.AnomalyType = arch.kind

	// The raw line is re-rendered so it tells the same story as the mutated
	// fields; nothing in the line labels the record as injected.
	switch rec.SourceType {
	case core.SourceSIEM:
		rec.RawText = gen.RenderSyslog(rec, 300+inj.rand.Intn(65000))
	case core.SourceERP:
		rec.RawText = gen.RenderERPLine(rec)
	case core.SourceApp:
		ua := inj.lib.App.UserAgents[inj.rand.Intn(len(inj.lib.App.UserAgents))]
		rec.RawText = gen.RenderAccessLog(rec, inj.rand.Intn(10000), ua)
	}
	return nil
}

// Archetypes returns the anomaly types available for a source, in catalog
// order. The quality checker uses it to verify injected batches.
func Archetypes(source core.SourceType) []core.AnomalyType {
	catalog := catalogs[source]
	kinds := make([]core.AnomalyType, 0, len(catalog))
	for _, arch := range catalog {
		kinds = append(kinds, arch.kind)
	}
	return kinds
}
