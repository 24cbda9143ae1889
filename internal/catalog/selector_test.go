package catalog

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"character_catcher/internal/domain"
)

func testChar(id int64, name string, rarity domain.Rarity, enabled bool) domain.Character {
	return domain.Character{
		ID:             id,
		Name:           name,
		NormalizedName: name,
		Anime:          "test",
		Rarity:         rarity,
		Enabled:        enabled,
	}
}

func TestPickEmptyCatalog(t *testing.T) {
	sel := NewSelector(rand.NewSource(1))

	cases := []struct {
		name string
		snap *Snapshot
	}{
		{"no characters", NewSnapshot(nil)},
		{"all disabled", NewSnapshot([]domain.Character{
			testChar(1, "rem", domain.RarityCommon, false),
		})},
		{"no weighted tiers", NewSnapshot([]domain.Character{
			testChar(1, "rem", domain.RarityCommon, true),
		})},
	}

	weights := Weights{} // empty table for the last case, harmless for the rest
	for _, tc := range cases {
		if _, err := sel.Pick(tc.snap, weights); !errors.Is(err, ErrEmptyCatalog) {
			t.Errorf("%s: Pick err = %v; want ErrEmptyCatalog", tc.name, err)
		}
	}
}

func TestPickSkipsDisabled(t *testing.T) {
	sel := NewSelector(rand.NewSource(7))
	snap := NewSnapshot([]domain.Character{
		testChar(1, "rem", domain.RarityCommon, false),
		testChar(2, "ram", domain.RarityCommon, true),
	})
	weights := Weights{domain.RarityCommon: 1}

	for i := 0; i < 100; i++ {
		c, err := sel.Pick(snap, weights)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		if c.ID != 2 {
			t.Fatalf("picked disabled character %d", c.ID)
		}
	}
}

func TestPickDeterministic(t *testing.T) {
	snap := NewSnapshot([]domain.Character{
		testChar(1, "rem", domain.RarityCommon, true),
		testChar(2, "ram", domain.RarityRare, true),
		testChar(3, "emilia", domain.RarityLegendary, true),
	})
	weights := DefaultWeights()

	a := NewSelector(rand.NewSource(42))
	b := NewSelector(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		ca, err := a.Pick(snap, weights)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		cb, _ := b.Pick(snap, weights)
		if ca.ID != cb.ID {
			t.Fatalf("draw %d diverged: %d vs %d", i, ca.ID, cb.ID)
		}
	}
}

func TestPickDistribution(t *testing.T) {
	snap := NewSnapshot([]domain.Character{
		testChar(1, "common girl", domain.RarityCommon, true),
		testChar(2, "rare girl", domain.RarityRare, true),
	})
	weights := Weights{
		domain.RarityCommon: 100,
		domain.RarityRare:   10,
	}

	sel := NewSelector(rand.NewSource(1234))
	const draws = 100000
	counts := map[int64]int{}
	for i := 0; i < draws; i++ {
		c, err := sel.Pick(snap, weights)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		counts[c.ID]++
	}

	ratio := float64(counts[1]) / float64(counts[2])
	if math.Abs(ratio-10) > 1 {
		t.Errorf("common/rare ratio = %.2f (counts %v); want ~10", ratio, counts)
	}
}

func TestRegistryReplace(t *testing.T) {
	reg := NewRegistry()
	if n := reg.Current().Len(); n != 0 {
		t.Fatalf("fresh registry has %d characters", n)
	}

	reg.Replace(NewSnapshot([]domain.Character{
		testChar(1, "rem", domain.RarityCommon, true),
	}))

	snap := reg.Current()
	if snap.Len() != 1 {
		t.Fatalf("snapshot len = %d; want 1", snap.Len())
	}
	if _, ok := snap.ByID(1); !ok {
		t.Error("ByID(1) not found after replace")
	}
	if _, ok := snap.ByID(99); ok {
		t.Error("ByID(99) unexpectedly found")
	}
}
