package cmd

import (
	"fmt"
	"strings"

	"logforge/core"
	"logforge/quality"
	"logforge/score"

	"github.com/fatih/color"
)

// renderRunSummary displays the result of one generate run
func renderRunSummary(sum *runSummary) {
	headerColor.Println("RUN SUMMARY")
	headerColor.Println(strings.Repeat("=", 72))
	printField("Seed", fmt.Sprintf("%d", sum.Seed))
	printField("Records", fmt.Sprintf("%d", sum.Records))
	printField("Duration", fmt.Sprintf("%.2fs", sum.DurationSec))
	fmt.Println()

	printSection("Sources")
	fmt.Printf("  %-14s %10s %10s %10s\n", "Source", "Records", "Anomalies", "Adopted")
	fmt.Println("  " + strings.Repeat("-", 48))
	for _, src := range core.AllSourceTypes() {
		fmt.Printf("  %-14s %10d %10d %10d\n",
			src, sum.Counts[src], sum.Injected[src], sum.Adopted[src])
	}
	fmt.Println()

	printSection("Correlation")
	printField("Pool Size", fmt.Sprintf("%d", sum.PoolSize))
	adopted := 0
	for _, n := range sum.Adopted {
		adopted += n
	}
	printField("Adopted", fmt.Sprintf("%d", adopted))
	fmt.Println()

	if len(sum.Sinks) > 0 {
		printField("Sinks", strings.Join(sum.Sinks, ", "))
	}
	if sum.DatasetPath != "" {
		printField("Dataset", sum.DatasetPath)
	}
	if len(sum.Sinks) > 0 || sum.DatasetPath != "" {
		fmt.Println()
	}

	if sum.Quality != nil {
		renderQualityReport(sum.Quality)
	}
}

// renderQualityReport displays quality check results
func renderQualityReport(report *quality.Report) {
	headerColor.Println("QUALITY CHECKS")
	headerColor.Println(strings.Repeat("=", 72))
	fmt.Printf("%-22s %-14s %-8s %s\n", "Check", "Source", "Result", "Detail")
	fmt.Println(strings.Repeat("-", 72))

	for _, res := range report.Results {
		source := string(res.Source)
		if source == "" {
			source = "all"
		}
		fmt.Printf("%-22s %-14s %-8s %s\n", res.Name, source, formatPassed(res.Passed), res.Detail)
	}
	fmt.Println(strings.Repeat("=", 72))

	failures := report.Failures()
	if len(failures) == 0 {
		if !quiet {
			successColor.Printf("✓ All %d checks passed (%d records)\n", len(report.Results), report.Records)
		}
	} else {
		errorColor.Printf("✗ %d of %d checks failed\n", len(failures), len(report.Results))
	}
}

// renderExplanation displays the per-factor severity breakdown
func renderExplanation(rec *core.LogRecord, ex score.Explanation) {
	headerColor.Println("SEVERITY BREAKDOWN")
	headerColor.Println(strings.Repeat("=", 60))
	printField("Source", string(rec.SourceType))
	printField("Service", rec.ServiceName())
	printField("Level", string(rec.Level))
	if rec.Endpoint() != "" {
		printField("Endpoint", rec.Endpoint())
	}
	fmt.Println()

	fmt.Printf("  %-12s %8s  %s\n", "Factor", "Points", "Tier")
	fmt.Println("  " + strings.Repeat("-", 40))
	fmt.Printf("  %-12s %8d  %s\n", "service", ex.ServicePoints, tierName(ex.ServiceTier))
	fmt.Printf("  %-12s %8d\n", "level", ex.LevelPoints)
	fmt.Printf("  %-12s %8d  %s\n", "message", ex.MessagePoints, tierName(ex.MessageTier))
	fmt.Printf("  %-12s %8d  %s\n", "endpoint", ex.EndpointPoints, tierName(ex.EndpointTier))
	fmt.Println("  " + strings.Repeat("-", 40))
	fmt.Printf("  %-12s %8d\n", "total", ex.Total)
	fmt.Println()

	fmt.Printf("  Severity: %s\n", formatSeverity(ex.Severity))
}

// printSection prints a section header
func printSection(title string) {
	headerColor.Printf("  %s\n", title)
	headerColor.Println("  " + strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Printf("  %-14s %s\n", key+":", value)
}

// formatPassed returns a colored pass/fail marker
func formatPassed(passed bool) string {
	if passed {
		return color.New(color.FgGreen).Sprint("pass")
	}
	return color.New(color.FgRed).Sprint("FAIL")
}

// formatSeverity returns a colored severity string
func formatSeverity(severity core.Severity) string {
	switch severity {
	case core.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint("critical")
	case core.SeverityHigh:
		return color.New(color.FgRed).Sprint("high")
	case core.SeverityMedium:
		return color.New(color.FgYellow).Sprint("medium")
	case core.SeverityLow:
		return color.New(color.FgGreen).Sprint("low")
	default:
		return string(severity)
	}
}

// tierName names the fallback tier when no keyword matched
func tierName(tier string) string {
	if tier == "" {
		return "default"
	}
	return tier
}
