// Package catalog holds the in-memory character registry and the rarity
// weighted selector that picks which character spawns next.
package catalog

import (
	"sync/atomic"

	"character_catcher/internal/domain"
)

// Snapshot is an immutable view of the character catalog. Readers share one
// snapshot; admin changes build a new snapshot and swap it in.
type Snapshot struct {
	characters []domain.Character
	byID       map[int64]domain.Character
}

// NewSnapshot builds a snapshot from catalog rows.
func NewSnapshot(characters []domain.Character) *Snapshot {
	s := &Snapshot{
		characters: make([]domain.Character, len(characters)),
		byID:       make(map[int64]domain.Character, len(characters)),
	}
	copy(s.characters, characters)
	for _, c := range s.characters {
		s.byID[c.ID] = c
	}
	return s
}

// ByID looks up a character by id.
func (s *Snapshot) ByID(id int64) (domain.Character, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Enabled returns the characters eligible for spawning.
func (s *Snapshot) Enabled() []domain.Character {
	out := make([]domain.Character, 0, len(s.characters))
	for _, c := range s.characters {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// All returns every character in the snapshot, enabled or not.
func (s *Snapshot) All() []domain.Character {
	out := make([]domain.Character, len(s.characters))
	copy(out, s.characters)
	return out
}

// Len is the total number of characters in the snapshot.
func (s *Snapshot) Len() int { return len(s.characters) }

// Registry publishes the current catalog snapshot. Swaps are atomic, so a
// reader never observes a partially reloaded catalog.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry returns a registry holding an empty snapshot.
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(NewSnapshot(nil))
	return r
}

// Current returns the live snapshot.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Replace swaps in a new snapshot.
func (r *Registry) Replace(s *Snapshot) {
	r.current.Store(s)
}
