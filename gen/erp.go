package gen

import (
	"fmt"
	"math"

	"logforge/core"
	"logforge/fieldlib"
)

// ERPGenerator produces business-transaction records: transaction codes,
// document IDs, amounts paired with a plausible range for their currency.
type ERPGenerator struct {
	baseGenerator
	vocab fieldlib.ERPVocabulary
}

// NewERPGenerator creates an ERP-style generator with its own seeded RNG.
func NewERPGenerator(lib fieldlib.Library, seed int64) *ERPGenerator {
	return &ERPGenerator{
		baseGenerator: newBaseGenerator(seed, erpLevelWeights),
		vocab:         lib.ERP,
	}
}

// SourceType implements Generator.
func (g *ERPGenerator) SourceType() core.SourceType {
	return core.SourceERP
}

// Generate implements Generator. A non-positive count yields an empty batch.
func (g *ERPGenerator) Generate(count int, window core.TimeWindow) ([]*core.LogRecord, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	records := make([]*core.LogRecord, 0, max(count, 0))
	for i := 0; i < count; i++ {
		records = append(records, g.generateOne(window))
	}
	return records, nil
}

func (g *ERPGenerator) generateOne(window core.TimeWindow) *core.LogRecord {
	rec := &core.LogRecord{
		ID:         g.newID(),
		Timestamp:  g.timestampIn(window),
		Level:      g.pickLevel(),
		SourceType: core.SourceERP,
	}

	currency := g.vocab.Currencies[g.rand.Intn(len(g.vocab.Currencies))]
	docID := fmt.Sprintf("%s-%06d",
		g.randomStringChoice(g.vocab.DocumentPrefixes), g.rand.Intn(1000000))

	rec.ERP = &core.ERPFields{
		TransactionCode: g.randomStringChoice(g.vocab.TransactionCodes),
		Department:      g.randomStringChoice(g.vocab.Departments),
		Module:          g.randomStringChoice(g.vocab.Modules),
		Amount:          g.amountIn(currency),
		Currency:        currency.Code,
		DocumentID:      docID,
		Username:        g.randomStringChoice(g.vocab.Usernames),
	}
	rec.Message = g.randomStringChoice(messagesFor(rec.Level, g.vocab.Messages))

	if g.chance(50) {
		rec.SessionID = g.newSessionID()
	}

	rec.RawText = RenderERPLine(rec)
	return rec
}

// amountIn draws an amount uniformly inside the currency's range, rounded to
// cents.
func (g *ERPGenerator) amountIn(c fieldlib.CurrencyRange) float64 {
	amount := c.Min + g.rand.Float64()*(c.Max-c.Min)
	return math.Round(amount*100) / 100
}
