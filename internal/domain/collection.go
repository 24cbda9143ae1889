package domain

import "time"

// AcquireSource records how a collection entry was obtained.
type AcquireSource string

const (
	SourceClaimed  AcquireSource = "claimed"
	SourceGift     AcquireSource = "gift"
	SourcePurchase AcquireSource = "purchase"
	SourceAdmin    AcquireSource = "admin_grant"
	SourceRedeem   AcquireSource = "redeem"
)

// CollectionEntry is one owned character. Duplicates per (user, character) are
// allowed; entries are append-only and only move between owners via a gift.
type CollectionEntry struct {
	ID          int64         `db:"id" json:"id"`
	UserID      int64         `db:"user_id" json:"user_id"`
	CharacterID int64         `db:"character_id" json:"character_id"`
	Source      AcquireSource `db:"source" json:"source"`
	AcquiredAt  time.Time     `db:"acquired_at" json:"acquired_at"`
}

// CollectionItem is a collection entry joined with its character, grouped for
// display (count of duplicates).
type CollectionItem struct {
	Character Character `json:"character"`
	Count     int       `json:"count"`
}
