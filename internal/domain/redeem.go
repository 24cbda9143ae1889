package domain

import "time"

// RedeemCode is a limited-use token exchangeable for coins and/or a character.
// MaxUses == 0 means unlimited; ExpiresAt == nil means the code never expires.
type RedeemCode struct {
	Code        string     `db:"code" json:"code"`
	CoinAmount  int64      `db:"coin_amount" json:"coin_amount"`
	CharacterID *int64     `db:"character_id" json:"character_id,omitempty"`
	MaxUses     int        `db:"max_uses" json:"max_uses"`
	UseCount    int        `db:"use_count" json:"use_count"`
	CreatedBy   int64      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// Expired reports whether the code is past its expiry at the given time.
func (c *RedeemCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
