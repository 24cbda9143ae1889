package repository

import (
	"context"
	"errors"

	"character_catcher/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrCodeNotFound: no such redeem code.
	ErrCodeNotFound = errors.New("redeem code not found")
	// ErrAlreadyRedeemed: this user already consumed this code.
	ErrAlreadyRedeemed = errors.New("code already redeemed by user")
)

// RedeemRepository owns redeem_codes and redeem_uses. Consumption is
// serialized per code by locking the code row, and per (code, user) by the
// redeem_uses primary key.
type RedeemRepository struct {
	db *pgxpool.Pool
}

func NewRedeemRepository(db *pgxpool.Pool) *RedeemRepository {
	return &RedeemRepository{db: db}
}

// Create stores a new code.
func (r *RedeemRepository) Create(ctx context.Context, code *domain.RedeemCode) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO redeem_codes (code, coin_amount, character_id, max_uses, created_by, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		code.Code, code.CoinAmount, code.CharacterID, code.MaxUses, code.CreatedBy, code.ExpiresAt,
	).Scan(&code.CreatedAt)
}

// GetForUpdateWithTx loads a code and locks its row for the remainder of the
// transaction, so concurrent redemptions of the same code queue up behind the
// use-count check.
func (r *RedeemRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, code string) (*domain.RedeemCode, error) {
	var c domain.RedeemCode
	err := tx.QueryRow(ctx,
		`SELECT code, coin_amount, character_id, max_uses, use_count, created_by, created_at, expires_at
		 FROM redeem_codes
		 WHERE code = $1
		 FOR UPDATE`,
		code,
	).Scan(&c.Code, &c.CoinAmount, &c.CharacterID, &c.MaxUses, &c.UseCount, &c.CreatedBy, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ConsumeWithTx records one use by userID and bumps the use counter. The
// redeem_uses primary key turns a repeat redemption into ErrAlreadyRedeemed.
func (r *RedeemRepository) ConsumeWithTx(ctx context.Context, tx pgx.Tx, code string, userID int64) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO redeem_uses (code, user_id) VALUES ($1, $2)`,
		code, userID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyRedeemed
		}
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE redeem_codes SET use_count = use_count + 1 WHERE code = $1`, code)
	return err
}

// List returns every stored code, newest first.
func (r *RedeemRepository) List(ctx context.Context) ([]*domain.RedeemCode, error) {
	rows, err := r.db.Query(ctx,
		`SELECT code, coin_amount, character_id, max_uses, use_count, created_by, created_at, expires_at
		 FROM redeem_codes
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RedeemCode
	for rows.Next() {
		var c domain.RedeemCode
		if err := rows.Scan(&c.Code, &c.CoinAmount, &c.CharacterID, &c.MaxUses, &c.UseCount,
			&c.CreatedBy, &c.CreatedAt, &c.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Delete removes a code and its use records.
func (r *RedeemRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM redeem_codes WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeNotFound
	}
	return nil
}
