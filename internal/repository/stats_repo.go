package repository

import (
	"context"

	"character_catcher/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository maintains the guess counters behind the leaderboards.
// Counters only increment, so leaderboard reads happily run outside any
// transaction.
type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// IncrementGuessWithTx bumps both the user's global counter and the per-chat
// counter inside an existing transaction (the claim settlement).
func (r *StatsRepository) IncrementGuessWithTx(ctx context.Context, tx pgx.Tx, chatID, userID int64) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO user_stats (user_id, correct_guesses)
		 VALUES ($1, 1)
		 ON CONFLICT (user_id) DO UPDATE
		 SET correct_guesses = user_stats.correct_guesses + 1`,
		userID,
	); err != nil {
		return err
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO chat_stats (chat_id, user_id, correct_guesses)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (chat_id, user_id) DO UPDATE
		 SET correct_guesses = chat_stats.correct_guesses + 1`,
		chatID, userID,
	)
	return err
}

// TopGlobal returns the best guessers across all chats.
func (r *StatsRepository) TopGlobal(ctx context.Context, limit int) ([]domain.GuessStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT s.user_id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), s.correct_guesses
		 FROM user_stats s
		 JOIN users u ON u.id = s.user_id
		 ORDER BY s.correct_guesses DESC, s.user_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGuessStats(rows)
}

// TopChat returns the best guessers within one chat.
func (r *StatsRepository) TopChat(ctx context.Context, chatID int64, limit int) ([]domain.GuessStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT s.user_id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), s.correct_guesses
		 FROM chat_stats s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.chat_id = $1
		 ORDER BY s.correct_guesses DESC, s.user_id
		 LIMIT $2`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGuessStats(rows)
}

func scanGuessStats(rows pgx.Rows) ([]domain.GuessStats, error) {
	var out []domain.GuessStats
	for rows.Next() {
		var s domain.GuessStats
		if err := rows.Scan(&s.UserID, &s.Username, &s.FirstName, &s.Guesses); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
