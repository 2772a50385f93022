package gen

import (
	"logforge/core"
	"logforge/fieldlib"
)

// SIEMGenerator produces security-event records in the shape a SIEM exports:
// host, numeric event ID, category, outcome, and a syslog-style raw line.
type SIEMGenerator struct {
	baseGenerator
	vocab fieldlib.SIEMVocabulary
}

// NewSIEMGenerator creates a SIEM-style generator with its own seeded RNG.
func NewSIEMGenerator(lib fieldlib.Library, seed int64) *SIEMGenerator {
	return &SIEMGenerator{
		baseGenerator: newBaseGenerator(seed, siemLevelWeights),
		vocab:         lib.SIEM,
	}
}

// SourceType implements Generator.
func (g *SIEMGenerator) SourceType() core.SourceType {
	return core.SourceSIEM
}

// Generate implements Generator. A non-positive count yields an empty batch.
func (g *SIEMGenerator) Generate(count int, window core.TimeWindow) ([]*core.LogRecord, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	records := make([]*core.LogRecord, 0, max(count, 0))
	for i := 0; i < count; i++ {
		records = append(records, g.generateOne(window))
	}
	return records, nil
}

func (g *SIEMGenerator) generateOne(window core.TimeWindow) *core.LogRecord {
	rec := &core.LogRecord{
		ID:         g.newID(),
		Timestamp:  g.timestampIn(window),
		Level:      g.pickLevel(),
		SourceType: core.SourceSIEM,
	}

	idSpan := g.vocab.EventIDRange.Max - g.vocab.EventIDRange.Min + 1
	rec.SIEM = &core.SIEMFields{
		Host:        g.randomStringChoice(g.vocab.Hosts),
		EventID:     g.vocab.EventIDRange.Min + g.rand.Intn(idSpan),
		Category:    g.randomStringChoice(g.vocab.Categories),
		Outcome:     g.pickOutcome(rec.Level),
		ProcessName: g.randomStringChoice(g.vocab.ProcessNames),
		Username:    g.randomStringChoice(g.vocab.Usernames),
	}
	rec.Message = g.randomStringChoice(messagesFor(rec.Level, g.vocab.Messages))

	// Security events mostly originate inside the estate, with a share of
	// external sources.
	rec.IPAddress = g.randomIP(g.chance(30))
	if g.chance(25) {
		rec.SessionID = g.newSessionID()
	}

	rec.RawText = RenderSyslog(rec, 300+g.rand.Intn(65000))
	return rec
}

// pickOutcome biases failures onto elevated levels.
func (g *SIEMGenerator) pickOutcome(level core.Level) string {
	var failPct int
	switch level {
	case core.LevelError, core.LevelFatal:
		failPct = 85
	case core.LevelWarn:
		failPct = 40
	default:
		failPct = 5
	}
	if g.chance(failPct) {
		return "failure"
	}
	return "success"
}
