package quality

import (
	"fmt"
	"math"

	"logforge/core"
	"logforge/correlate"
	"logforge/gen"
)

// checkCompleteness runs every record's structural validation.
func (c *Checker) checkCompleteness(report *Report, batches map[core.SourceType][]*core.LogRecord) {
	for _, src := range core.AllSourceTypes() {
		invalid := 0
		var firstErr error
		for _, rec := range batches[src] {
			if err := rec.Validate(); err != nil {
				invalid++
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		res := CheckResult{Name: "completeness", Source: src, Passed: invalid == 0}
		if invalid > 0 {
			res.Detail = fmt.Sprintf("%d of %d records invalid; first: %v", invalid, len(batches[src]), firstErr)
		}
		report.add(res)
	}
}

// checkIdentity verifies record IDs are unique across the whole dataset.
func (c *Checker) checkIdentity(report *Report, batches map[core.SourceType][]*core.LogRecord) {
	seen := make(map[string]bool, report.Records)
	duplicates := 0
	first := ""
	for _, src := range core.AllSourceTypes() {
		for _, rec := range batches[src] {
			if seen[rec.ID] {
				duplicates++
				if first == "" {
					first = rec.ID
				}
			}
			seen[rec.ID] = true
		}
	}
	res := CheckResult{Name: "identity", Passed: duplicates == 0}
	if duplicates > 0 {
		res.Detail = fmt.Sprintf("%d duplicate record IDs; first: %s", duplicates, first)
	}
	report.add(res)
}

// checkCounts compares batch sizes with the requested counts.
func (c *Checker) checkCounts(report *Report, batches map[core.SourceType][]*core.LogRecord, exp Expectations) {
	if exp.Counts == nil {
		return
	}
	for _, src := range core.AllSourceTypes() {
		want := exp.Counts[src]
		have := len(batches[src])
		res := CheckResult{Name: "count", Source: src, Passed: have == want}
		if have != want {
			res.Detail = fmt.Sprintf("have %d records, want %d", have, want)
		}
		report.add(res)
	}
}

// checkWindow verifies every timestamp falls inside the requested window.
func (c *Checker) checkWindow(report *Report, batches map[core.SourceType][]*core.LogRecord, exp Expectations) {
	if exp.Window.Start.IsZero() && exp.Window.End.IsZero() {
		return
	}
	for _, src := range core.AllSourceTypes() {
		outside := 0
		first := ""
		for _, rec := range batches[src] {
			if !exp.Window.Contains(rec.Timestamp) {
				outside++
				if first == "" {
					first = rec.Timestamp.String()
				}
			}
		}
		res := CheckResult{Name: "window", Source: src, Passed: outside == 0}
		if outside > 0 {
			res.Detail = fmt.Sprintf("%d records outside window; first at %s", outside, first)
		}
		report.add(res)
	}
}

// checkLevelDistribution compares the level mix of non-anomalous records
// with the generator targets. Injected records skew levels on purpose and
// are left out; samples below MinSample are too noisy to judge and pass
// with a note.
func (c *Checker) checkLevelDistribution(report *Report, batches map[core.SourceType][]*core.LogRecord) {
	for _, src := range core.AllSourceTypes() {
		observed := make(map[core.Level]int, 5)
		sample := 0
		for _, rec := range batches[src] {
			if rec.IsAnomaly {
				continue
			}
			observed[rec.Level]++
			sample++
		}
		if sample < c.cfg.MinSample {
			report.add(CheckResult{
				Name:   "level_distribution",
				Source: src,
				Passed: true,
				Detail: fmt.Sprintf("sample of %d below %d, skipped", sample, c.cfg.MinSample),
			})
			continue
		}

		want, err := gen.LevelDistribution(src)
		if err != nil {
			report.add(CheckResult{Name: "level_distribution", Source: src, Passed: false, Detail: err.Error()})
			continue
		}

		res := CheckResult{Name: "level_distribution", Source: src, Passed: true}
		var worst core.Level
		maxDev := 0.0
		for level, target := range want {
			fraction := float64(observed[level]) / float64(sample)
			if dev := math.Abs(fraction - target); dev > maxDev {
				maxDev = dev
				worst = level
			}
		}
		if maxDev > c.cfg.LevelTolerance {
			res.Passed = false
			fraction := float64(observed[worst]) / float64(sample)
			res.Detail = fmt.Sprintf("level %s at %.3f, want %.3f within %.3f", worst, fraction, want[worst], c.cfg.LevelTolerance)
		} else {
			res.Detail = fmt.Sprintf("max deviation %.3f", maxDev)
		}
		report.add(res)
	}
}

// checkAnomalyRates verifies the injected count matches the requested rate
// to within one record.
func (c *Checker) checkAnomalyRates(report *Report, batches map[core.SourceType][]*core.LogRecord, exp Expectations) {
	if exp.AnomalyRates == nil {
		return
	}
	for _, src := range core.AllSourceTypes() {
		flagged := 0
		for _, rec := range batches[src] {
			if rec.IsAnomaly {
				flagged++
			}
		}
		want := int(math.Round(float64(len(batches[src])) * exp.AnomalyRates[src]))
		res := CheckResult{Name: "anomaly_rate", Source: src, Passed: abs(flagged-want) <= 1}
		if !res.Passed {
			res.Detail = fmt.Sprintf("%d anomalous records, want %d within 1", flagged, want)
		}
		report.add(res)
	}
}

// checkLinkage verifies the per-source linkage key rules: application
// records always carry a request ID, SIEM records always carry an IP, and
// ERP records never do.
func (c *Checker) checkLinkage(report *Report, batches map[core.SourceType][]*core.LogRecord) {
	type rule struct {
		source core.SourceType
		detail string
		broken func(*core.LogRecord) bool
	}
	rules := []rule{
		{core.SourceApp, "application record without request ID", func(r *core.LogRecord) bool { return r.RequestID == "" }},
		{core.SourceApp, "application record without IP address", func(r *core.LogRecord) bool { return r.IPAddress == "" }},
		{core.SourceSIEM, "siem record without IP address", func(r *core.LogRecord) bool { return r.IPAddress == "" }},
		{core.SourceERP, "erp record with IP address", func(r *core.LogRecord) bool { return r.IPAddress != "" }},
	}

	for _, src := range core.AllSourceTypes() {
		res := CheckResult{Name: "linkage", Source: src, Passed: true}
		for _, rl := range rules {
			if rl.source != src {
				continue
			}
			for _, rec := range batches[src] {
				if rl.broken(rec) {
					res.Passed = false
					res.Detail = fmt.Sprintf("%s (record %s)", rl.detail, rec.ID)
					break
				}
			}
			if !res.Passed {
				break
			}
		}
		report.add(res)
	}
}

// checkCorrelation verifies adopted request IDs were issued by the origin
// source and that correlation IDs always agree with request IDs.
func (c *Checker) checkCorrelation(report *Report, batches map[core.SourceType][]*core.LogRecord) {
	originIDs := make(map[string]bool)
	for _, rec := range batches[correlate.Origin] {
		if rec.RequestID != "" {
			originIDs[rec.RequestID] = true
		}
	}

	res := CheckResult{Name: "correlation", Passed: true}
	fail := func(format string, args ...interface{}) {
		if res.Passed {
			res.Passed = false
			res.Detail = fmt.Sprintf(format, args...)
		}
	}

	for _, src := range core.AllSourceTypes() {
		for _, rec := range batches[src] {
			if src == correlate.Origin {
				if rec.CorrelationID != "" && rec.CorrelationID != rec.RequestID {
					fail("origin record %s correlation ID differs from its request ID", rec.ID)
				}
				continue
			}
			if rec.RequestID == "" {
				if rec.CorrelationID != "" {
					fail("record %s has a correlation ID but no request ID", rec.ID)
				}
				continue
			}
			if rec.CorrelationID != rec.RequestID {
				fail("record %s request ID is not marked as correlated", rec.ID)
				continue
			}
			if !originIDs[rec.RequestID] {
				fail("record %s adopted request ID %s never issued by the origin source", rec.ID, rec.RequestID)
			}
		}
	}
	report.add(res)
}

// checkSeverities verifies scoring ran over the whole dataset.
func (c *Checker) checkSeverities(report *Report, batches map[core.SourceType][]*core.LogRecord, exp Expectations) {
	if !exp.RequireSeverity {
		return
	}
	for _, src := range core.AllSourceTypes() {
		missing := 0
		for _, rec := range batches[src] {
			if !rec.Severity.IsValid() {
				missing++
			}
		}
		res := CheckResult{Name: "severity", Source: src, Passed: missing == 0}
		if missing > 0 {
			res.Detail = fmt.Sprintf("%d records without a valid severity", missing)
		}
		report.add(res)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
