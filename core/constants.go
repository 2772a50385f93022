package core

import "fmt"

// Level represents the log level of a record, ordered from least to most
// severe: DEBUG < INFO < WARN < ERROR < FATAL.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
)

// String returns the string representation
func (l Level) String() string {
	return string(l)
}

// IsValid checks if the level is one of the known values
func (l Level) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return true
	default:
		return false
	}
}

// Rank returns the position of the level in severity order, DEBUG=0 .. FATAL=4.
// Unknown levels rank below DEBUG.
func (l Level) Rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	case LevelFatal:
		return 4
	default:
		return -1
	}
}

// ParseLevel converts a string to a Level, accepting only exact forms
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.IsValid() {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// SourceType identifies which simulated system produced a record. It is fixed
// at creation and never mutated.
type SourceType string

const (
	SourceSIEM SourceType = "siem"
	SourceERP  SourceType = "erp"
	SourceApp  SourceType = "application"
)

// String returns the string representation
func (s SourceType) String() string {
	return string(s)
}

// IsValid checks if the source type is one of the known values
func (s SourceType) IsValid() bool {
	switch s {
	case SourceSIEM, SourceERP, SourceApp:
		return true
	default:
		return false
	}
}

// AllSourceTypes lists the known source types in a stable order.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceSIEM, SourceERP, SourceApp}
}

// Severity is the business-impact bucket assigned by the scorer.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// String returns the string representation
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is one of the known buckets
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// AnomalyType names the archetype an injected anomaly belongs to. The set of
// archetypes available to a record depends on its SourceType.
type AnomalyType string

const (
	AnomalySystemFailure          AnomalyType = "system-failure"
	AnomalySecurityViolation      AnomalyType = "security-violation"
	AnomalyPerformanceDegradation AnomalyType = "performance-degradation"
	AnomalyDataIntegrityError     AnomalyType = "data-integrity-error"
)

// String returns the string representation
func (a AnomalyType) String() string {
	return string(a)
}

// IsValid checks if the anomaly type is one of the known archetypes
func (a AnomalyType) IsValid() bool {
	switch a {
	case AnomalySystemFailure, AnomalySecurityViolation,
		AnomalyPerformanceDegradation, AnomalyDataIntegrityError:
		return true
	default:
		return false
	}
}
