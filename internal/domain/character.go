package domain

import (
	"strconv"
	"strings"
	"time"
)

// Rarity is the scarcity tier of a character. Higher tiers spawn less often
// and pay a larger claim reward.
type Rarity int

const (
	RarityCommon Rarity = iota + 1
	RarityRare
	RarityLegendary
	RaritySpecial
	RarityAncient
	RarityCelestial
	RarityEpic
	RarityCosmic
	RarityNightmare
	RarityFrostborn
	RarityValentine
	RaritySpring
	RarityTropical
	RarityKawaii
	RarityHybrid

	RarityMin = RarityCommon
	RarityMax = RarityHybrid
)

var rarityNames = map[Rarity]string{
	RarityCommon:    "common",
	RarityRare:      "rare",
	RarityLegendary: "legendary",
	RaritySpecial:   "special",
	RarityAncient:   "ancient",
	RarityCelestial: "celestial",
	RarityEpic:      "epic",
	RarityCosmic:    "cosmic",
	RarityNightmare: "nightmare",
	RarityFrostborn: "frostborn",
	RarityValentine: "valentine",
	RaritySpring:    "spring",
	RarityTropical:  "tropical",
	RarityKawaii:    "kawaii",
	RarityHybrid:    "hybrid",
}

func (r Rarity) String() string {
	if name, ok := rarityNames[r]; ok {
		return name
	}
	return strconv.Itoa(int(r))
}

// Valid reports whether r is a known tier.
func (r Rarity) Valid() bool {
	return r >= RarityMin && r <= RarityMax
}

// ParseRarity accepts a tier number or a tier name. Unknown values fall back
// to common, matching how uploads with malformed tiers have always behaved.
func ParseRarity(s string) Rarity {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if r := Rarity(n); r.Valid() {
			return r
		}
		return RarityCommon
	}
	for r, name := range rarityNames {
		if name == s {
			return r
		}
	}
	return RarityCommon
}

// Character is one catalog entry. Records are immutable once published;
// catalog changes produce a new snapshot rather than mutating entries in place.
type Character struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	NormalizedName string    `db:"normalized_name" json:"-"`
	Anime          string    `db:"anime" json:"anime"`
	Rarity         Rarity    `db:"rarity" json:"rarity"`
	ImageURL       string    `db:"image_url" json:"image_url,omitempty"`
	Enabled        bool      `db:"enabled" json:"enabled"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
