package repository

import (
	"context"
	"errors"

	"character_catcher/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCharacterNotFound is returned when a catalog lookup misses.
var ErrCharacterNotFound = errors.New("character not found")

type CharacterRepository struct {
	db *pgxpool.Pool
}

func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

const characterColumns = `id, name, normalized_name, anime, rarity, COALESCE(image_url, ''), enabled, created_at`

func scanCharacter(row pgx.Row) (domain.Character, error) {
	var c domain.Character
	err := row.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Anime, &c.Rarity, &c.ImageURL, &c.Enabled, &c.CreatedAt)
	return c, err
}

// ListAll loads the full catalog, the source of a registry snapshot.
func (r *CharacterRepository) ListAll(ctx context.Context) ([]domain.Character, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+characterColumns+` FROM characters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CharacterRepository) GetByID(ctx context.Context, id int64) (domain.Character, error) {
	c, err := scanCharacter(r.db.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Character{}, ErrCharacterNotFound
		}
		return domain.Character{}, err
	}
	return c, nil
}

// Create publishes a new character.
func (r *CharacterRepository) Create(ctx context.Context, c *domain.Character) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO characters (name, normalized_name, anime, rarity, image_url, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		c.Name, c.NormalizedName, c.Anime, c.Rarity, c.ImageURL, c.Enabled,
	).Scan(&c.ID, &c.CreatedAt)
}

// SetEnabled toggles spawn eligibility.
func (r *CharacterRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE characters SET enabled = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// SetRarity moves a character to a different tier.
func (r *CharacterRepository) SetRarity(ctx context.Context, id int64, rarity domain.Rarity) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE characters SET rarity = $1 WHERE id = $2`, rarity, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// Search finds characters whose normalized name or anime contains the query.
func (r *CharacterRepository) Search(ctx context.Context, query string, limit int) ([]domain.Character, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+characterColumns+`
		 FROM characters
		 WHERE normalized_name LIKE '%' || $1 || '%' OR lower(anime) LIKE '%' || $1 || '%'
		 ORDER BY id
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
