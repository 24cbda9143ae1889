package catalog

import (
	"errors"
	"math/rand"
	"sync"

	"character_catcher/internal/domain"
)

// ErrEmptyCatalog means no enabled character carries a positive weight.
// Spawning is skipped until the catalog has eligible entries.
var ErrEmptyCatalog = errors.New("no eligible characters in catalog")

// Weights maps a rarity tier to its selection weight. A character's chance is
// proportional to its tier's weight; tiers absent from the table never spawn.
type Weights map[domain.Rarity]int

// DefaultWeights halves the weight per tier, so each tier is twice as rare as
// the one below it.
func DefaultWeights() Weights {
	w := make(Weights, int(domain.RarityMax))
	weight := 1 << 14
	for r := domain.RarityMin; r <= domain.RarityMax; r++ {
		w[r] = weight
		if weight > 1 {
			weight /= 2
		}
	}
	return w
}

// Selector draws characters with probability proportional to rarity weight.
// The random source is injected so draws are reproducible under test.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector over the given random source.
func NewSelector(src rand.Source) *Selector {
	return &Selector{rng: rand.New(src)}
}

// Pick draws one enabled character from the snapshot.
func (s *Selector) Pick(snap *Snapshot, weights Weights) (domain.Character, error) {
	eligible := snap.Enabled()

	total := 0
	for _, c := range eligible {
		total += weights[c.Rarity]
	}
	if total <= 0 {
		return domain.Character{}, ErrEmptyCatalog
	}

	s.mu.Lock()
	roll := s.rng.Intn(total)
	s.mu.Unlock()

	acc := 0
	for _, c := range eligible {
		acc += weights[c.Rarity]
		if roll < acc {
			return c, nil
		}
	}
	// Unreachable: the cumulative walk covers [0, total).
	return eligible[len(eligible)-1], nil
}
