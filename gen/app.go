package gen

import (
	"fmt"
	"math"

	"logforge/core"
	"logforge/fieldlib"
)

// AppGenerator produces microservice access-log records: service, endpoint,
// HTTP status consistent with the level, and a combined-log-format raw line.
// Application records are the correlation origin, so every one carries a
// fresh request ID.
type AppGenerator struct {
	baseGenerator
	vocab fieldlib.AppVocabulary
}

// NewAppGenerator creates an application-style generator with its own seeded
// RNG.
func NewAppGenerator(lib fieldlib.Library, seed int64) *AppGenerator {
	return &AppGenerator{
		baseGenerator: newBaseGenerator(seed, appLevelWeights),
		vocab:         lib.App,
	}
}

// SourceType implements Generator.
func (g *AppGenerator) SourceType() core.SourceType {
	return core.SourceApp
}

// Generate implements Generator. A non-positive count yields an empty batch.
func (g *AppGenerator) Generate(count int, window core.TimeWindow) ([]*core.LogRecord, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	records := make([]*core.LogRecord, 0, max(count, 0))
	for i := 0; i < count; i++ {
		records = append(records, g.generateOne(window))
	}
	return records, nil
}

func (g *AppGenerator) generateOne(window core.TimeWindow) *core.LogRecord {
	rec := &core.LogRecord{
		ID:         g.newID(),
		Timestamp:  g.timestampIn(window),
		Level:      g.pickLevel(),
		SourceType: core.SourceApp,
	}

	service := g.randomStringChoice(g.vocab.Services)
	status := g.pickStatus(rec.Level)

	rec.App = &core.AppFields{
		Service:        service,
		HTTPMethod:     g.randomStringChoice(g.vocab.Methods),
		Endpoint:       g.randomStringChoice(g.vocab.Endpoints),
		HTTPStatus:     status,
		ResponseTimeMS: g.responseTime(status),
		PodName:        g.podName(service),
	}
	rec.Message = g.randomStringChoice(g.messagesForStatus(status))

	rec.RequestID = g.newID()
	rec.IPAddress = g.randomIP(g.chance(60))
	if g.chance(60) {
		rec.SessionID = g.newSessionID()
	}

	rec.RawText = RenderAccessLog(rec, g.rand.Intn(10000), g.randomStringChoice(g.vocab.UserAgents))
	return rec
}

// pickStatus draws an HTTP status consistent with the level: ERROR/FATAL
// bias 5xx, WARN biases 4xx, INFO/DEBUG bias 2xx/3xx.
func (g *AppGenerator) pickStatus(level core.Level) int {
	switch level {
	case core.LevelError, core.LevelFatal:
		if g.chance(85) {
			return g.randomIntChoice([]int{500, 502, 503, 504})
		}
		return g.randomIntChoice([]int{400, 401, 403, 429})
	case core.LevelWarn:
		if g.chance(60) {
			return g.randomIntChoice([]int{400, 401, 403, 404, 429})
		}
		return g.randomIntChoice([]int{200, 200, 204})
	default:
		if g.chance(90) {
			return g.randomIntChoice([]int{200, 200, 200, 201, 204})
		}
		return g.randomIntChoice([]int{301, 302, 304})
	}
}

// responseTime draws a right-skewed latency, heavier for server errors.
func (g *AppGenerator) responseTime(status int) float64 {
	base := 5 + g.rand.Float64()*45
	tail := g.rand.Float64() * g.rand.Float64() * 400
	rt := base + tail
	if status >= 500 {
		rt += 500 + g.rand.Float64()*2500
	}
	return math.Round(rt*10) / 10
}

func (g *AppGenerator) messagesForStatus(status int) []string {
	switch {
	case status >= 500:
		return g.vocab.Messages.ServerError
	case status >= 400:
		return g.vocab.Messages.ClientError
	default:
		return g.vocab.Messages.Success
	}
}

// podName renders a deployment-style pod name for the service.
func (g *AppGenerator) podName(service string) string {
	const alnum = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = alnum[g.rand.Intn(len(alnum))]
		}
		return string(b)
	}
	return fmt.Sprintf("%s-%s-%s", service, suffix(9), suffix(5))
}
