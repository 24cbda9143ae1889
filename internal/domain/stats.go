package domain

// GuessStats is a leaderboard row: how many spawns a user has claimed, either
// globally or within one chat. Counters only ever increment, so readers
// tolerate slightly stale values.
type GuessStats struct {
	UserID    int64  `db:"user_id" json:"user_id"`
	Username  string `db:"username" json:"username"`
	FirstName string `db:"first_name" json:"first_name"`
	Guesses   int64  `db:"guesses" json:"guesses"`
}

// BalanceRank is a row of the richest-users leaderboard.
type BalanceRank struct {
	UserID    int64  `db:"user_id" json:"user_id"`
	Username  string `db:"username" json:"username"`
	FirstName string `db:"first_name" json:"first_name"`
	Balance   int64  `db:"balance" json:"balance"`
}
