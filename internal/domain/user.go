package domain

import "time"

// User is a Telegram user known to the bot. ID is the Telegram user id.
// Balance is the coin balance; the schema enforces balance >= 0.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FirstName string    `db:"first_name" json:"first_name"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
