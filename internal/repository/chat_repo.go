package repository

import (
	"context"
	"errors"

	"character_catcher/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository stores per-chat spawn cadence settings. Chats without a row
// run on defaults.
type ChatRepository struct {
	db               *pgxpool.Pool
	defaultThreshold int
}

func NewChatRepository(db *pgxpool.Pool, defaultThreshold int) *ChatRepository {
	if defaultThreshold <= 0 {
		defaultThreshold = domain.DefaultSpawnThreshold
	}
	return &ChatRepository{db: db, defaultThreshold: defaultThreshold}
}

// GetSettings returns the chat's settings, falling back to defaults when the
// chat never configured anything.
func (r *ChatRepository) GetSettings(ctx context.Context, chatID int64) (domain.ChatSettings, error) {
	var s domain.ChatSettings
	err := r.db.QueryRow(ctx,
		`SELECT chat_id, spawn_threshold, interval_seconds, expiry_seconds, updated_at
		 FROM chat_settings
		 WHERE chat_id = $1`,
		chatID,
	).Scan(&s.ChatID, &s.SpawnThreshold, &s.IntervalSeconds, &s.ExpirySeconds, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChatSettings{ChatID: chatID, SpawnThreshold: r.defaultThreshold}, nil
		}
		return domain.ChatSettings{}, err
	}
	return s, nil
}

// SetThreshold sets the message-count spawn threshold for a chat.
func (r *ChatRepository) SetThreshold(ctx context.Context, chatID int64, threshold int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_settings (chat_id, spawn_threshold)
		 VALUES ($1, $2)
		 ON CONFLICT (chat_id) DO UPDATE
		 SET spawn_threshold = EXCLUDED.spawn_threshold, updated_at = now()`,
		chatID, threshold,
	)
	return err
}

// SetInterval sets (or with zero, clears) the timer-spawn interval.
func (r *ChatRepository) SetInterval(ctx context.Context, chatID int64, seconds int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_settings (chat_id, spawn_threshold, interval_seconds)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (chat_id) DO UPDATE
		 SET interval_seconds = EXCLUDED.interval_seconds, updated_at = now()`,
		chatID, r.defaultThreshold, seconds,
	)
	return err
}

// SetExpiry sets (or with zero, clears) the unclaimed-spawn expiry window.
func (r *ChatRepository) SetExpiry(ctx context.Context, chatID int64, seconds int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_settings (chat_id, spawn_threshold, expiry_seconds)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (chat_id) DO UPDATE
		 SET expiry_seconds = EXCLUDED.expiry_seconds, updated_at = now()`,
		chatID, r.defaultThreshold, seconds,
	)
	return err
}

// Reset removes the chat's overrides, restoring defaults.
func (r *ChatRepository) Reset(ctx context.Context, chatID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chat_settings WHERE chat_id = $1`, chatID)
	return err
}

// ListWithInterval returns the chats that configured timer-driven spawns,
// for the tick scheduler.
func (r *ChatRepository) ListWithInterval(ctx context.Context) ([]domain.ChatSettings, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chat_id, spawn_threshold, interval_seconds, expiry_seconds, updated_at
		 FROM chat_settings
		 WHERE interval_seconds > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChatSettings
	for rows.Next() {
		var s domain.ChatSettings
		if err := rows.Scan(&s.ChatID, &s.SpawnThreshold, &s.IntervalSeconds, &s.ExpirySeconds, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
