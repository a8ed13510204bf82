package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// IntervalGenerator produces bounded random durations for micro-break
// scheduling. Implementations must sample uniformly from
// [minMinutes*60, maxMinutes*60] inclusive. Tests substitute a deterministic
// implementation to make scheduling reproducible.
type IntervalGenerator interface {
	NextInterval(minMinutes, maxMinutes int) (int, error)
}

type randomIntervalGenerator struct {
	rng *rand.Rand
}

// NewIntervalGenerator returns the production generator seeded from the wall
// clock.
func NewIntervalGenerator() IntervalGenerator {
	return &randomIntervalGenerator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededIntervalGenerator returns a generator with a fixed seed.
func NewSeededIntervalGenerator(seed int64) IntervalGenerator {
	return &randomIntervalGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *randomIntervalGenerator) NextInterval(minMinutes, maxMinutes int) (int, error) {
	if minMinutes < 0 || maxMinutes < 0 || minMinutes > maxMinutes {
		return 0, fmt.Errorf("%w: [%d, %d] minutes", ErrInvalidRange, minMinutes, maxMinutes)
	}
	lo := minMinutes * 60
	hi := maxMinutes * 60
	if lo == hi {
		// Degenerate bounds produce a fixed interval.
		return lo, nil
	}
	return lo + g.rng.Intn(hi-lo+1), nil
}
