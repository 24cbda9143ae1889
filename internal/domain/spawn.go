package domain

import "time"

// ActiveSpawn is the single claimable character for a chat. At most one row
// exists per chat; the claimed flag flips true exactly once.
type ActiveSpawn struct {
	ChatID      int64      `db:"chat_id" json:"chat_id"`
	CharacterID int64      `db:"character_id" json:"character_id"`
	SpawnToken  string     `db:"spawn_token" json:"spawn_token"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	Claimed     bool       `db:"claimed" json:"claimed"`
	ClaimedBy   *int64     `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt   *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
}

// ChatSettings holds per-chat spawn cadence overrides.
//
// SpawnThreshold is the number of messages between spawns. IntervalSeconds,
// when non-zero, additionally spawns on a timer. ExpirySeconds, when non-zero,
// lets an unclaimed spawn older than the window be superseded by the next
// publish; zero means unclaimed spawns persist until claimed or cleared.
type ChatSettings struct {
	ChatID          int64     `db:"chat_id" json:"chat_id"`
	SpawnThreshold  int       `db:"spawn_threshold" json:"spawn_threshold"`
	IntervalSeconds int       `db:"interval_seconds" json:"interval_seconds"`
	ExpirySeconds   int       `db:"expiry_seconds" json:"expiry_seconds"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

const (
	DefaultSpawnThreshold = 100
	MinSpawnThreshold     = 10
	MaxSpawnThreshold     = 1000
)
