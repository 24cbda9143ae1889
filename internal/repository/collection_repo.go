package repository

import (
	"context"
	"errors"

	"character_catcher/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrEntryNotFound: the collection entry does not exist.
	ErrEntryNotFound = errors.New("collection entry not found")
	// ErrNotOwner: the entry exists but belongs to someone else.
	ErrNotOwner = errors.New("collection entry not owned by user")
)

// CollectionRepository owns collection_entries. Entries are append-only; the
// only mutation is a gift moving an entry to a new owner.
type CollectionRepository struct {
	db *pgxpool.Pool
}

func NewCollectionRepository(db *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// AppendWithTx adds one entry inside an existing transaction.
func (r *CollectionRepository) AppendWithTx(ctx context.Context, tx pgx.Tx, entry *domain.CollectionEntry) error {
	return tx.QueryRow(ctx,
		`INSERT INTO collection_entries (user_id, character_id, source)
		 VALUES ($1, $2, $3)
		 RETURNING id, acquired_at`,
		entry.UserID, entry.CharacterID, entry.Source,
	).Scan(&entry.ID, &entry.AcquiredAt)
}

// MoveEntryWithTx reassigns one entry from one owner to another in a single
// conditional update, so a concurrent gift of the same entry can only succeed
// once. The moved entry's character id is returned.
func (r *CollectionRepository) MoveEntryWithTx(ctx context.Context, tx pgx.Tx, entryID, fromUserID, toUserID int64) (int64, error) {
	var characterID int64
	err := tx.QueryRow(ctx,
		`UPDATE collection_entries
		 SET user_id = $3, source = $4, acquired_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING character_id`,
		entryID, fromUserID, toUserID, domain.SourceGift,
	).Scan(&characterID)
	if err == nil {
		return characterID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// Zero rows: distinguish a missing entry from someone else's entry.
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM collection_entries WHERE id = $1)`, entryID,
	).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrEntryNotFound
	}
	return 0, ErrNotOwner
}

// FindOwnedByCharacter returns the user's oldest entry for a character, used
// to gift by character id rather than entry id.
func (r *CollectionRepository) FindOwnedByCharacter(ctx context.Context, userID, characterID int64) (*domain.CollectionEntry, error) {
	var e domain.CollectionEntry
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, character_id, source, acquired_at
		 FROM collection_entries
		 WHERE user_id = $1 AND character_id = $2
		 ORDER BY acquired_at, id
		 LIMIT 1`,
		userID, characterID,
	).Scan(&e.ID, &e.UserID, &e.CharacterID, &e.Source, &e.AcquiredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListByUser returns the user's collection grouped by character with
// duplicate counts, optionally filtered to one rarity tier (0 = all tiers).
func (r *CollectionRepository) ListByUser(ctx context.Context, userID int64, rarity domain.Rarity) ([]domain.CollectionItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.name, c.normalized_name, c.anime, c.rarity,
		        COALESCE(c.image_url, ''), c.enabled, c.created_at, COUNT(*)
		 FROM collection_entries e
		 JOIN characters c ON c.id = e.character_id
		 WHERE e.user_id = $1 AND ($2 = 0 OR c.rarity = $2)
		 GROUP BY c.id, c.name, c.normalized_name, c.anime, c.rarity, c.image_url, c.enabled, c.created_at
		 ORDER BY c.rarity DESC, c.id`,
		userID, rarity,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CollectionItem
	for rows.Next() {
		var item domain.CollectionItem
		c := &item.Character
		if err := rows.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Anime, &c.Rarity,
			&c.ImageURL, &c.Enabled, &c.CreatedAt, &item.Count); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// CountByUser returns the total number of entries a user owns.
func (r *CollectionRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM collection_entries WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
