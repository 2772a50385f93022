// Package quality checks a finished dataset against the contracts the
// pipeline promises: structural validity, level mix, anomaly rate,
// correlation integrity, and raw line shape.
//
// Checks never mutate records. Each check appends one result per source
// (or one dataset-wide result) to the report, so a failing dataset names
// every broken contract instead of stopping at the first.
package quality

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/xeipuuv/gojsonschema"

	"logforge/core"
)

// Config tunes the checker thresholds.
type Config struct {
	// LevelTolerance is the maximum absolute deviation allowed between an
	// observed level fraction and the generator's target fraction.
	LevelTolerance float64

	// MinSample is the smallest sample the level distribution check
	// judges. Smaller samples skip the check rather than fail on noise.
	MinSample int

	// SchemaSample caps how many records per source are validated
	// against the JSON schema.
	SchemaSample int

	// MatchTimeout bounds every raw line regex evaluation.
	MatchTimeout time.Duration
}

// DefaultConfig returns the thresholds used when New is given nil.
func DefaultConfig() *Config {
	return &Config{
		LevelTolerance: 0.05,
		MinSample:      500,
		SchemaSample:   100,
		MatchTimeout:   100 * time.Millisecond,
	}
}

// Expectations describes what the caller asked the pipeline to produce.
// Nil maps and a zero window skip the corresponding checks, so a Checker
// can also be pointed at datasets of unknown provenance.
type Expectations struct {
	Counts          map[core.SourceType]int
	Window          core.TimeWindow
	AnomalyRates    map[core.SourceType]float64
	RequireSeverity bool
}

// CheckResult is the outcome of one check against one source, or against
// the whole dataset when Source is empty.
type CheckResult struct {
	Name   string          `json:"name"`
	Source core.SourceType `json:"source,omitempty"`
	Passed bool            `json:"passed"`
	Detail string          `json:"detail,omitempty"`
}

// Report collects every check result for one dataset.
type Report struct {
	Records int           `json:"records"`
	Results []CheckResult `json:"results"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failures returns only the failed results.
func (r *Report) Failures() []CheckResult {
	var failed []CheckResult
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *Report) add(res CheckResult) {
	r.Results = append(r.Results, res)
}

// Checker validates datasets. One Checker is safe for concurrent use; the
// compiled schema and patterns are read-only after New.
type Checker struct {
	cfg     Config
	schema  *gojsonschema.Schema
	rawExpr map[core.SourceType]*regexp2.Regexp
}

// New builds a Checker. A nil config uses DefaultConfig.
func New(cfg *Config) (*Checker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile record schema: %w", err)
	}

	rawExpr := make(map[core.SourceType]*regexp2.Regexp, len(rawPatterns))
	for src, pattern := range rawPatterns {
		re, err := regexp2.Compile(pattern, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to compile raw pattern for %s: %w", src, err)
		}
		re.MatchTimeout = cfg.MatchTimeout
		rawExpr[src] = re
	}

	return &Checker{cfg: *cfg, schema: schema, rawExpr: rawExpr}, nil
}

// Check runs every check against the dataset and returns the report.
func (c *Checker) Check(batches map[core.SourceType][]*core.LogRecord, exp Expectations) *Report {
	report := &Report{}
	for _, src := range core.AllSourceTypes() {
		report.Records += len(batches[src])
	}

	c.checkCompleteness(report, batches)
	c.checkIdentity(report, batches)
	c.checkCounts(report, batches, exp)
	c.checkWindow(report, batches, exp)
	c.checkLevelDistribution(report, batches)
	c.checkAnomalyRates(report, batches, exp)
	c.checkLinkage(report, batches)
	c.checkCorrelation(report, batches)
	c.checkSeverities(report, batches, exp)
	c.checkSchema(report, batches)
	c.checkRawFormat(report, batches)

	return report
}
