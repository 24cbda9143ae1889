package service

import (
	"context"
	"errors"
	"time"

	"character_catcher/internal/domain"
	"character_catcher/internal/metrics"
	"character_catcher/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrCodeExhausted: the code has no remaining uses.
	ErrCodeExhausted = errors.New("redeem code exhausted")
	// ErrCodeExpired: the code is past its expiry date.
	ErrCodeExpired = errors.New("redeem code expired")
	// ErrSelfGift: sender and recipient are the same user.
	ErrSelfGift = errors.New("cannot gift to yourself")
)

// EconomyService composes ledger and collection primitives into the user
// facing economy operations. Every operation is a single database
// transaction: either it applies completely or the caller observes the
// pre-call state.
type EconomyService struct {
	db             *pgxpool.Pool
	ledger         *LedgerService
	collectionRepo *repository.CollectionRepository
	redeemRepo     *repository.RedeemRepository
}

func NewEconomyService(db *pgxpool.Pool, ledger *LedgerService) *EconomyService {
	return &EconomyService{
		db:             db,
		ledger:         ledger,
		collectionRepo: repository.NewCollectionRepository(db),
		redeemRepo:     repository.NewRedeemRepository(db),
	}
}

// Purchase debits the buyer and appends the character to their collection as
// one unit. An insufficient balance fails before anything is written.
func (s *EconomyService) Purchase(ctx context.Context, buyerID int64, character domain.Character, price int64) (err error) {
	defer s.observe("purchase", &err)
	if price <= 0 {
		return ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = s.ledger.DebitWithTx(ctx, tx, buyerID, price); err != nil {
		return err
	}
	entry := &domain.CollectionEntry{
		UserID:      buyerID,
		CharacterID: character.ID,
		Source:      domain.SourcePurchase,
	}
	if err = s.collectionRepo.AppendWithTx(ctx, tx, entry); err != nil {
		return err
	}
	if err = s.ledger.audit(ctx, tx, buyerID, domain.TxPurchase, -price, map[string]interface{}{
		"character_id": character.ID,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Gift moves one collection entry from sender to recipient. After a failure
// the sender still owns the entry; after success exactly one entry changed
// hands.
func (s *EconomyService) Gift(ctx context.Context, senderID, recipientID, entryID int64) (characterID int64, err error) {
	defer s.observe("gift", &err)
	if senderID == recipientID {
		return 0, ErrSelfGift
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	characterID, err = s.collectionRepo.MoveEntryWithTx(ctx, tx, entryID, senderID, recipientID)
	if err != nil {
		return 0, err
	}
	return characterID, tx.Commit(ctx)
}

// GiftByCharacter gifts the sender's oldest copy of the given character.
func (s *EconomyService) GiftByCharacter(ctx context.Context, senderID, recipientID, characterID int64) (int64, error) {
	entry, err := s.collectionRepo.FindOwnedByCharacter(ctx, senderID, characterID)
	if err != nil {
		return 0, err
	}
	return s.Gift(ctx, senderID, recipientID, entry.ID)
}

// Redeem consumes one use of a code for the user and applies its reward, all
// in one transaction. A repeat redemption by the same user fails with
// ErrAlreadyRedeemed; redeeming past max uses fails with ErrCodeExhausted.
// Neither grants anything.
func (s *EconomyService) Redeem(ctx context.Context, userID int64, code string) (reward *domain.RedeemCode, err error) {
	defer s.observe("redeem", &err)

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The row lock serializes all redemptions of this code, making the
	// use-count check race free.
	c, err := s.redeemRepo.GetForUpdateWithTx(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if c.Expired(time.Now()) {
		return nil, ErrCodeExpired
	}

	// Record the use before the exhaustion check so a repeat redemption
	// reports ErrAlreadyRedeemed even once the code runs out. The rollback
	// discards the inserted use when the code is exhausted.
	if err = s.redeemRepo.ConsumeWithTx(ctx, tx, c.Code, userID); err != nil {
		return nil, err
	}
	if c.MaxUses > 0 && c.UseCount >= c.MaxUses {
		return nil, ErrCodeExhausted
	}

	if c.CoinAmount > 0 {
		if _, err = s.ledger.CreditWithTx(ctx, tx, userID, c.CoinAmount); err != nil {
			return nil, err
		}
		if err = s.ledger.audit(ctx, tx, userID, domain.TxRedeem, c.CoinAmount, map[string]interface{}{
			"code": c.Code,
		}); err != nil {
			return nil, err
		}
	}
	if c.CharacterID != nil {
		entry := &domain.CollectionEntry{
			UserID:      userID,
			CharacterID: *c.CharacterID,
			Source:      domain.SourceRedeem,
		}
		if err = s.collectionRepo.AppendWithTx(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// AdminGrant credits coins and/or grants a character directly. It bypasses
// economy checks but stays atomic and leaves a full audit trail.
func (s *EconomyService) AdminGrant(ctx context.Context, adminID, userID int64, characterID *int64, coins int64) (err error) {
	defer s.observe("admin_grant", &err)
	if coins <= 0 && characterID == nil {
		return ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	meta := map[string]interface{}{"admin_id": adminID}
	if characterID != nil {
		meta["character_id"] = *characterID
		entry := &domain.CollectionEntry{
			UserID:      userID,
			CharacterID: *characterID,
			Source:      domain.SourceAdmin,
		}
		if err = s.collectionRepo.AppendWithTx(ctx, tx, entry); err != nil {
			return err
		}
	}
	if coins > 0 {
		if _, err = s.ledger.CreditWithTx(ctx, tx, userID, coins); err != nil {
			return err
		}
	}
	// Grants always leave an audit row, even pure character grants.
	if err = s.ledger.audit(ctx, tx, userID, domain.TxAdminGrant, coins, meta); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Collection returns a user's collection grouped by character, optionally
// filtered to one rarity tier (0 = all).
func (s *EconomyService) Collection(ctx context.Context, userID int64, rarity domain.Rarity) ([]domain.CollectionItem, error) {
	return s.collectionRepo.ListByUser(ctx, userID, rarity)
}

func (s *EconomyService) observe(op string, err *error) {
	result := "ok"
	if *err != nil {
		result = "error"
	}
	metrics.EconomyOps.WithLabelValues(op, result).Inc()
}
