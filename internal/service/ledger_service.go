package service

import (
	"context"
	"errors"

	"character_catcher/internal/domain"
	"character_catcher/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInsufficientFunds: a debit or transfer would push a balance below
	// zero. The balance is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount: zero or negative amount for an operation that
	// requires a positive one.
	ErrInvalidAmount = errors.New("invalid amount")
)

// LedgerService is the transactional mutation surface for balances. Every
// mutation checks the non-negative invariant in the same statement that
// applies the delta and records an audit row before commit. Operations read
// current state inside their transaction, so retrying a failed call replays
// safely.
type LedgerService struct {
	db              *pgxpool.Pool
	transactionRepo *repository.TransactionRepository
}

func NewLedgerService(db *pgxpool.Pool) *LedgerService {
	return &LedgerService{
		db:              db,
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// Credit adds amount to the user's balance.
func (s *LedgerService) Credit(ctx context.Context, userID, amount int64, txType string, meta map[string]interface{}) (newBalance int64, err error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newBalance, err = s.CreditWithTx(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}
	if err = s.audit(ctx, tx, userID, txType, amount, meta); err != nil {
		return 0, err
	}
	return newBalance, tx.Commit(ctx)
}

// Debit subtracts amount from the user's balance, failing with
// ErrInsufficientFunds when the balance would go negative.
func (s *LedgerService) Debit(ctx context.Context, userID, amount int64, txType string, meta map[string]interface{}) (newBalance int64, err error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newBalance, err = s.DebitWithTx(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}
	if err = s.audit(ctx, tx, userID, txType, -amount, meta); err != nil {
		return 0, err
	}
	return newBalance, tx.Commit(ctx)
}

// Transfer moves amount between users, all or nothing.
func (s *LedgerService) Transfer(ctx context.Context, fromUserID, toUserID, amount int64, meta map[string]interface{}) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromUserID == toUserID {
		return ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Debit first; the conditional update keeps the sender's balance
	// non-negative without a separate read.
	if _, err = s.DebitWithTx(ctx, tx, fromUserID, amount); err != nil {
		return err
	}
	if _, err = s.CreditWithTx(ctx, tx, toUserID, amount); err != nil {
		return err
	}

	if err = s.audit(ctx, tx, fromUserID, domain.TxTransferOut, -amount, meta); err != nil {
		return err
	}
	inMeta := map[string]interface{}{"from_user_id": fromUserID}
	for k, v := range meta {
		inMeta[k] = v
	}
	if err = s.audit(ctx, tx, toUserID, domain.TxTransferIn, amount, inMeta); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DebitWithTx subtracts amount inside an existing transaction. The balance
// check and the deduction are one conditional update, leaving no window for
// a concurrent debit to drive the balance negative.
func (s *LedgerService) DebitWithTx(ctx context.Context, tx pgx.Tx, userID, amount int64) (newBalance int64, err error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	err = tx.QueryRow(ctx,
		`UPDATE users SET balance = balance - $1
		 WHERE id = $2 AND balance >= $1
		 RETURNING balance`,
		amount, userID,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No row updated means either an unknown user or too little
			// balance; a second query tells the two apart.
			var exists bool
			if err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
				return 0, err
			}
			if !exists {
				return 0, repository.ErrUserNotFound
			}
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}
	return newBalance, nil
}

// CreditWithTx adds amount inside an existing transaction.
func (s *LedgerService) CreditWithTx(ctx context.Context, tx pgx.Tx, userID, amount int64) (newBalance int64, err error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	err = tx.QueryRow(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		amount, userID,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrUserNotFound
		}
		return 0, err
	}
	return newBalance, nil
}

// History returns the user's recent ledger entries.
func (s *LedgerService) History(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.transactionRepo.GetByUserID(ctx, userID, limit)
}

func (s *LedgerService) audit(ctx context.Context, tx pgx.Tx, userID int64, txType string, amount int64, meta map[string]interface{}) error {
	return s.transactionRepo.CreateWithTx(ctx, tx, &domain.Transaction{
		UserID: userID,
		Type:   txType,
		Amount: amount,
		Meta:   meta,
	})
}
