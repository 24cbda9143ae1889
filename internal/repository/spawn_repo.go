package repository

import (
	"context"
	"errors"
	"time"

	"character_catcher/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SpawnRepository owns the active_spawns table. The primary key on chat_id is
// what makes "at most one spawn per chat" a database invariant rather than a
// convention.
type SpawnRepository struct {
	db *pgxpool.Pool
}

func NewSpawnRepository(db *pgxpool.Pool) *SpawnRepository {
	return &SpawnRepository{db: db}
}

// Get returns the chat's spawn row, claimed or not, or nil if the chat has
// none.
func (r *SpawnRepository) Get(ctx context.Context, chatID int64) (*domain.ActiveSpawn, error) {
	var s domain.ActiveSpawn
	err := r.db.QueryRow(ctx,
		`SELECT chat_id, character_id, spawn_token, created_at, claimed, claimed_by, claimed_at
		 FROM active_spawns
		 WHERE chat_id = $1`,
		chatID,
	).Scan(&s.ChatID, &s.CharacterID, &s.SpawnToken, &s.CreatedAt, &s.Claimed, &s.ClaimedBy, &s.ClaimedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Publish installs spawn as the chat's active spawn in a single
// compare-and-set statement. The upsert only replaces a row that is already
// claimed, or unclaimed but older than replaceAfter when the chat configures
// expiry. Zero rows touched means an unclaimed spawn is still pending.
func (r *SpawnRepository) Publish(ctx context.Context, spawn domain.ActiveSpawn, replaceAfter time.Duration) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO active_spawns (chat_id, character_id, spawn_token, created_at, claimed)
		 VALUES ($1, $2, $3, now(), false)
		 ON CONFLICT (chat_id) DO UPDATE
		 SET character_id = EXCLUDED.character_id,
		     spawn_token  = EXCLUDED.spawn_token,
		     created_at   = EXCLUDED.created_at,
		     claimed      = false,
		     claimed_by   = NULL,
		     claimed_at   = NULL
		 WHERE active_spawns.claimed
		    OR ($4::bigint > 0 AND active_spawns.created_at < now() - make_interval(secs => $4))`,
		spawn.ChatID, spawn.CharacterID, spawn.SpawnToken, int64(replaceAfter/time.Second),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkClaimedWithTx flips the claimed flag for the given spawn token inside an
// existing transaction. The conditional update is the whole race arbiter:
// exactly one concurrent caller sees a row flip; everyone else sees zero rows.
func (r *SpawnRepository) MarkClaimedWithTx(ctx context.Context, tx pgx.Tx, chatID int64, spawnToken string, userID int64) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE active_spawns
		 SET claimed = true, claimed_by = $3, claimed_at = now()
		 WHERE chat_id = $1 AND spawn_token = $2 AND NOT claimed`,
		chatID, spawnToken, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Clear removes the chat's spawn row entirely. Admin escape hatch.
func (r *SpawnRepository) Clear(ctx context.Context, chatID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM active_spawns WHERE chat_id = $1`, chatID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
