// Package pipeline wires generation, anomaly injection, cross-source
// correlation, and severity scoring into a single staged run.
//
// Stages always execute in the same order. Generation runs one goroutine
// per source type; every later stage walks sources in core.AllSourceTypes
// order so a run is reproducible from its seed alone.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"logforge/anomaly"
	"logforge/core"
	"logforge/correlate"
	"logforge/fieldlib"
	"logforge/gen"
	"logforge/metrics"
	"logforge/score"
	"logforge/util/goroutine"
)

// Stage seeds derive from the run seed with fixed offsets so each stage
// consumes its own random stream. Changing one stage's draw count must not
// shift the records another stage produces.
var generatorSeedOffsets = map[core.SourceType]int64{
	core.SourceSIEM: 1,
	core.SourceERP:  2,
	core.SourceApp:  3,
}

const (
	injectorSeedShift    = 10
	correlatorSeedOffset = 21
)

// RunConfig holds the tunable parameters for one pipeline run.
type RunConfig struct {
	// Counts is the number of records to generate per source type.
	// Missing sources generate zero records.
	Counts map[core.SourceType]int

	// Window bounds every generated timestamp.
	Window core.TimeWindow

	// AnomalyRates is the per-source fraction of records to mutate into
	// anomalies, each in [0, 1]. Missing sources stay clean.
	AnomalyRates map[core.SourceType]float64

	// ShareFraction is the fraction of application request IDs promoted
	// into the shared correlation pool.
	ShareFraction float64

	// InjectFraction is the per-record probability that a non-origin
	// record adopts a pooled request ID.
	InjectFraction float64

	// Seed fixes every random draw in the run.
	Seed int64
}

// Validate reports the first invalid parameter, naming the stage and field
// so configuration mistakes are actionable.
func (c RunConfig) Validate() error {
	for src, count := range c.Counts {
		if !src.IsValid() {
			return fmt.Errorf("pipeline: count for unknown source type %q", src)
		}
		if count < 0 {
			return fmt.Errorf("pipeline: %s count %d must not be negative", src, count)
		}
	}
	if err := c.Window.Validate(); err != nil {
		return err
	}
	for src, rate := range c.AnomalyRates {
		if !src.IsValid() {
			return fmt.Errorf("pipeline: anomaly_rate for unknown source type %q", src)
		}
		if rate < 0 || rate > 1 {
			return fmt.Errorf("pipeline: %s anomaly_rate %v out of range [0, 1]", src, rate)
		}
	}
	if c.ShareFraction < 0 || c.ShareFraction > 1 {
		return fmt.Errorf("pipeline: share_fraction %v out of range [0, 1]", c.ShareFraction)
	}
	if c.InjectFraction < 0 || c.InjectFraction > 1 {
		return fmt.Errorf("pipeline: inject_fraction %v out of range [0, 1]", c.InjectFraction)
	}
	return nil
}

// Result carries the records and per-stage accounting of one run.
type Result struct {
	// Batches holds the finished records keyed by source type. Every
	// known source has an entry, possibly empty.
	Batches map[core.SourceType][]*core.LogRecord

	// Injected counts the records mutated into anomalies per source.
	Injected map[core.SourceType]int

	// Correlation reports pool size and adoption counts.
	Correlation *correlate.Report

	// Duration is the wall time of the whole run.
	Duration time.Duration
}

// Total returns the number of records across all sources.
func (r *Result) Total() int {
	total := 0
	for _, batch := range r.Batches {
		total += len(batch)
	}
	return total
}

// All returns every record concatenated in core.AllSourceTypes order.
func (r *Result) All() []*core.LogRecord {
	out := make([]*core.LogRecord, 0, r.Total())
	for _, src := range core.AllSourceTypes() {
		out = append(out, r.Batches[src]...)
	}
	return out
}

// Pipeline runs the four stages against a fixed field library and scorer.
// A Pipeline is safe for concurrent Run calls because all per-run state
// lives in the Result.
type Pipeline struct {
	lib    fieldlib.Library
	scorer *score.Scorer
	logger *zap.SugaredLogger
	tracer trace.Tracer
}

// New creates a Pipeline. A nil library falls back to fieldlib.Default,
// a nil scorer to the default scoring config, a nil logger to a no-op
// logger, and a nil tracer to a no-op tracer.
func New(lib *fieldlib.Library, scorer *score.Scorer, logger *zap.SugaredLogger, tracer trace.Tracer) *Pipeline {
	p := &Pipeline{}
	if lib != nil {
		p.lib = *lib
	} else {
		p.lib = fieldlib.Default()
	}
	if scorer != nil {
		p.scorer = scorer
	} else {
		p.scorer = score.New(nil)
	}
	if logger != nil {
		p.logger = logger
	} else {
		p.logger = zap.NewNop().Sugar()
	}
	if tracer != nil {
		p.tracer = tracer
	} else {
		p.tracer = noop.NewTracerProvider().Tracer("logforge/pipeline")
	}
	return p
}

// Run executes generation, injection, correlation, and scoring. The input
// config is validated up front; a validation error leaves no side effects.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := p.lib.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: field library: %w", err)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	start := time.Now()

	batches, err := p.generate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	injected, err := p.inject(ctx, cfg, batches)
	if err != nil {
		return nil, err
	}
	report, err := p.correlate(ctx, cfg, batches)
	if err != nil {
		return nil, err
	}
	if err := p.scoreAll(ctx, batches); err != nil {
		return nil, err
	}

	result := &Result{
		Batches:     batches,
		Injected:    injected,
		Correlation: report,
		Duration:    time.Since(start),
	}

	span.SetAttributes(attribute.Int("records.total", result.Total()))
	metrics.GenerationDuration.Observe(result.Duration.Seconds())
	p.logger.Infow("Pipeline run complete",
		"records", result.Total(),
		"anomalies", sumCounts(injected),
		"correlated", report.TotalAdopted(),
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// generate runs one generator goroutine per source type and collects the
// batches in a map keyed by source.
func (p *Pipeline) generate(ctx context.Context, cfg RunConfig) (map[core.SourceType][]*core.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := p.tracer.Start(ctx, "pipeline.generate")
	defer span.End()

	sources := core.AllSourceTypes()
	results := make([][]*core.LogRecord, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		goroutine.GoWait(&wg, fmt.Sprintf("generate-%s", src), p.logger, func() {
			g, err := gen.New(src, p.lib, cfg.Seed+generatorSeedOffsets[src])
			if err != nil {
				errs[i] = err
				return
			}
			records, err := g.Generate(cfg.Counts[src], cfg.Window)
			if err != nil {
				errs[i] = fmt.Errorf("generate %s: %w", src, err)
				return
			}
			results[i] = records
		})
	}
	wg.Wait()

	batches := make(map[core.SourceType][]*core.LogRecord, len(sources))
	for i, src := range sources {
		if errs[i] != nil {
			return nil, errs[i]
		}
		if results[i] == nil {
			// A recovered panic leaves neither records nor an error.
			return nil, fmt.Errorf("pipeline: %s generator did not complete", src)
		}
		batches[src] = results[i]
		metrics.RecordsGenerated.WithLabelValues(string(src)).Add(float64(len(results[i])))
		p.logger.Infow("Records generated", "source", src, "count", len(results[i]))
	}
	return batches, nil
}

// inject mutates the configured fraction of each batch into anomalies.
// Sources run sequentially in a fixed order to keep runs reproducible.
func (p *Pipeline) inject(ctx context.Context, cfg RunConfig, batches map[core.SourceType][]*core.LogRecord) (map[core.SourceType]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := p.tracer.Start(ctx, "pipeline.inject")
	defer span.End()

	injected := make(map[core.SourceType]int, len(batches))
	for _, src := range core.AllSourceTypes() {
		inj := anomaly.New(p.lib, cfg.Seed+generatorSeedOffsets[src]+injectorSeedShift)
		count, err := inj.Inject(batches[src], cfg.AnomalyRates[src])
		if err != nil {
			return nil, fmt.Errorf("inject %s: %w", src, err)
		}
		injected[src] = count

		for _, rec := range batches[src] {
			if rec.IsAnomaly {
				metrics.AnomaliesInjected.WithLabelValues(string(src), string(rec.AnomalyType)).Inc()
			}
		}
		p.logger.Infow("Anomalies injected",
			"source", src,
			"count", count,
			"rate", cfg.AnomalyRates[src])
	}
	return injected, nil
}

// correlate threads shared request IDs from the origin source through the
// other batches.
func (p *Pipeline) correlate(ctx context.Context, cfg RunConfig, batches map[core.SourceType][]*core.LogRecord) (*correlate.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := p.tracer.Start(ctx, "pipeline.correlate")
	defer span.End()

	engine := correlate.New(cfg.Seed + correlatorSeedOffset)
	report, err := engine.Correlate(batches, cfg.ShareFraction, cfg.InjectFraction)
	if err != nil {
		return nil, err
	}

	for src, count := range report.Adopted {
		metrics.RecordsCorrelated.WithLabelValues(string(src)).Add(float64(count))
	}
	p.logger.Infow("Correlation complete",
		"pool_size", report.PoolSize,
		"adopted", report.TotalAdopted(),
		"skipped", report.Skipped)
	return report, nil
}

// scoreAll assigns a severity to every record. Scoring is the last stage
// so it sees final field values.
func (p *Pipeline) scoreAll(ctx context.Context, batches map[core.SourceType][]*core.LogRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := p.tracer.Start(ctx, "pipeline.score")
	defer span.End()

	for _, src := range core.AllSourceTypes() {
		p.scorer.ScoreAll(batches[src])
		for _, rec := range batches[src] {
			metrics.SeverityAssigned.WithLabelValues(string(rec.Severity)).Inc()
		}
	}
	p.logger.Infow("Severities assigned")
	return nil
}

func sumCounts(m map[core.SourceType]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
