package service

import (
	"context"
	"time"

	"character_catcher/internal/domain"
	"character_catcher/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EngineStore is the Postgres-backed engine.Store. It is the only place the
// claim flip and the reward settlement meet: both commit in one database
// transaction, so no observer can see a claimed spawn without its reward or
// the other way around. Multiple bot processes sharing the database share
// these guarantees.
type EngineStore struct {
	db             *pgxpool.Pool
	spawnRepo      *repository.SpawnRepository
	collectionRepo *repository.CollectionRepository
	statsRepo      *repository.StatsRepository
	chatRepo       *repository.ChatRepository
	ledger         *LedgerService
}

func NewEngineStore(db *pgxpool.Pool, ledger *LedgerService, chatRepo *repository.ChatRepository) *EngineStore {
	return &EngineStore{
		db:             db,
		spawnRepo:      repository.NewSpawnRepository(db),
		collectionRepo: repository.NewCollectionRepository(db),
		statsRepo:      repository.NewStatsRepository(db),
		chatRepo:       chatRepo,
		ledger:         ledger,
	}
}

func (s *EngineStore) ActiveSpawn(ctx context.Context, chatID int64) (*domain.ActiveSpawn, error) {
	return s.spawnRepo.Get(ctx, chatID)
}

func (s *EngineStore) PublishSpawn(ctx context.Context, spawn domain.ActiveSpawn, replaceAfter time.Duration) (bool, error) {
	return s.spawnRepo.Publish(ctx, spawn, replaceAfter)
}

// SettleClaim flips the spawn's claimed flag and, when the flip wins, applies
// the whole reward in the same transaction: collection entry, balance credit,
// audit row and guess counters. A lost race rolls back having written
// nothing.
func (s *EngineStore) SettleClaim(ctx context.Context, chatID int64, spawnToken string, userID, characterID, reward int64) (newBalance int64, won bool, err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	won, err = s.spawnRepo.MarkClaimedWithTx(ctx, tx, chatID, spawnToken, userID)
	if err != nil {
		return 0, false, err
	}
	if !won {
		return 0, false, nil
	}

	entry := &domain.CollectionEntry{
		UserID:      userID,
		CharacterID: characterID,
		Source:      domain.SourceClaimed,
	}
	if err = s.collectionRepo.AppendWithTx(ctx, tx, entry); err != nil {
		return 0, false, err
	}

	if reward > 0 {
		newBalance, err = s.ledger.CreditWithTx(ctx, tx, userID, reward)
		if err != nil {
			return 0, false, err
		}
		if err = s.ledger.audit(ctx, tx, userID, domain.TxClaimReward, reward, map[string]interface{}{
			"chat_id":      chatID,
			"character_id": characterID,
			"spawn_token":  spawnToken,
		}); err != nil {
			return 0, false, err
		}
	}

	if err = s.statsRepo.IncrementGuessWithTx(ctx, tx, chatID, userID); err != nil {
		return 0, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	return newBalance, true, nil
}

func (s *EngineStore) ChatSettings(ctx context.Context, chatID int64) (domain.ChatSettings, error) {
	return s.chatRepo.GetSettings(ctx, chatID)
}
