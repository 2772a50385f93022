// Package score assigns each record a business-impact severity bucket by
// summing four weighted factors: service criticality, log level, message
// content, and endpoint/transaction criticality. Scoring never mutates the
// record and always returns the same bucket for the same inputs.
package score

import (
	"strings"

	"logforge/core"
)

// Scorer evaluates records against its factor tables.
type Scorer struct {
	cfg Config
}

// New creates a scorer. A nil config uses DefaultConfig.
func New(cfg *Config) *Scorer {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	return &Scorer{cfg: *cfg}
}

// Explanation breaks a score down into its factor contributions.
type Explanation struct {
	ServicePoints  int           `json:"service_points"`
	ServiceTier    string        `json:"service_tier,omitempty"`
	LevelPoints    int           `json:"level_points"`
	MessagePoints  int           `json:"message_points"`
	MessageTier    string        `json:"message_tier,omitempty"`
	EndpointPoints int           `json:"endpoint_points"`
	EndpointTier   string        `json:"endpoint_tier,omitempty"`
	Total          int           `json:"total"`
	Severity       core.Severity `json:"severity"`
}

// Score returns the severity bucket for the record.
func (s *Scorer) Score(rec *core.LogRecord) core.Severity {
	return s.Explain(rec).Severity
}

// Explain returns the severity together with each factor's contribution.
func (s *Scorer) Explain(rec *core.LogRecord) Explanation {
	var ex Explanation

	service := rec.ServiceName()
	if points, tier, ok := matchTier(service, s.cfg.ServiceTiers); ok {
		ex.ServicePoints, ex.ServiceTier = points, tier
	} else if service != "" {
		ex.ServicePoints = s.cfg.ServiceDefault
	}

	ex.LevelPoints = s.cfg.LevelPoints[rec.Level]

	if points, tier, ok := matchTier(rec.Message, s.cfg.MessageTiers); ok {
		ex.MessagePoints, ex.MessageTier = points, tier
	}

	endpoint := rec.Endpoint()
	if points, tier, ok := matchTier(endpoint, s.cfg.EndpointTiers); ok {
		ex.EndpointPoints, ex.EndpointTier = points, tier
	} else if endpoint != "" {
		ex.EndpointPoints = s.cfg.EndpointDefault
	}

	ex.Total = ex.ServicePoints + ex.LevelPoints + ex.MessagePoints + ex.EndpointPoints
	ex.Severity = s.bucket(ex.Total)
	return ex
}

// ScoreAll annotates every record's Severity in place. This is the last
// pipeline stage; no field mutation may follow it.
func (s *Scorer) ScoreAll(records []*core.LogRecord) {
	for _, rec := range records {
		rec.Severity = s.Score(rec)
	}
}

// bucket maps a total to a severity. Strict comparisons put boundary ties in
// the less severe bucket.
func (s *Scorer) bucket(total int) core.Severity {
	t := s.cfg.Thresholds
	switch {
	case total > t.Critical:
		return core.SeverityCritical
	case total > t.High:
		return core.SeverityHigh
	case total > t.Medium:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}

// matchTier finds the first tier with a keyword contained in value,
// case-insensitively. First match wins, so tables order tiers highest first.
func matchTier(value string, tiers []Tier) (int, string, bool) {
	if value == "" {
		return 0, "", false
	}
	v := strings.ToLower(value)
	for _, tier := range tiers {
		for _, kw := range tier.Keywords {
			if strings.Contains(v, kw) {
				return tier.Points, tier.Name, true
			}
		}
	}
	return 0, "", false
}
