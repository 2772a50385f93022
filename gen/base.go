package gen

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"logforge/core"
	"logforge/fieldlib"
)

type levelWeight struct {
	level  core.Level
	weight int
}

// baseGenerator carries the state and sampling helpers shared by all source
// generators: the seeded RNG, the level weight table, and random field
// helpers. Source generators embed it.
type baseGenerator struct {
	rand        *rand.Rand
	levels      []levelWeight
	levelsTotal int
}

func newBaseGenerator(seed int64, levels []levelWeight) baseGenerator {
	total := 0
	for _, lw := range levels {
		total += lw.weight
	}
	return baseGenerator{
		rand:        rand.New(rand.NewSource(seed)),
		levels:      levels,
		levelsTotal: total,
	}
}

// pickLevel draws one level from the weight table.
func (b *baseGenerator) pickLevel() core.Level {
	n := b.rand.Intn(b.levelsTotal)
	for _, lw := range b.levels {
		n -= lw.weight
		if n < 0 {
			return lw.level
		}
	}
	return b.levels[len(b.levels)-1].level
}

// timestampIn samples a timestamp uniformly inside the window.
func (b *baseGenerator) timestampIn(w core.TimeWindow) time.Time {
	offset := time.Duration(b.rand.Int63n(int64(w.Duration())))
	return w.Start.Add(offset)
}

// newID returns a UUID drawn from the generator's own RNG, so record IDs are
// reproducible for a given seed.
func (b *baseGenerator) newID() string {
	id, _ := uuid.NewRandomFromReader(b.rand) // rand.Rand.Read cannot fail
	return id.String()
}

func (b *baseGenerator) randomStringChoice(choices []string) string {
	return choices[b.rand.Intn(len(choices))]
}

func (b *baseGenerator) randomIntChoice(choices []int) int {
	return choices[b.rand.Intn(len(choices))]
}

// chance reports true with probability pct/100.
func (b *baseGenerator) chance(pct int) bool {
	return b.rand.Intn(100) < pct
}

func (b *baseGenerator) randomIP(external bool) string {
	if external {
		// TEST-NET ranges, never routable
		return b.randomStringChoice([]string{
			fmt.Sprintf("192.0.2.%d", b.rand.Intn(255)),
			fmt.Sprintf("198.51.100.%d", b.rand.Intn(255)),
			fmt.Sprintf("203.0.113.%d", b.rand.Intn(255)),
		})
	}
	return fmt.Sprintf("10.0.%d.%d", b.rand.Intn(255), b.rand.Intn(255))
}

func (b *baseGenerator) newSessionID() string {
	return fmt.Sprintf("sess-%08x", b.rand.Uint32())
}

// messagesFor selects the template list serving a level class.
func messagesFor(level core.Level, msgs fieldlib.LeveledMessages) []string {
	switch level {
	case core.LevelError, core.LevelFatal:
		return msgs.Error
	case core.LevelWarn:
		return msgs.Warn
	default:
		return msgs.Info
	}
}
