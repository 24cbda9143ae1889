package handlers

import (
	"character_catcher/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler bundles the read-only API surface. All mutation runs through the
// bot; the HTTP API exists for dashboards and the web collection viewer.
type Handler struct {
	DB             *pgxpool.Pool
	UserRepo       *repository.UserRepository
	StatsRepo      *repository.StatsRepository
	CharacterRepo  *repository.CharacterRepository
	CollectionRepo *repository.CollectionRepository
	TxRepo         *repository.TransactionRepository
}

func NewHandler(db *pgxpool.Pool) *Handler {
	return &Handler{
		DB:             db,
		UserRepo:       repository.NewUserRepository(db),
		StatsRepo:      repository.NewStatsRepository(db),
		CharacterRepo:  repository.NewCharacterRepository(db),
		CollectionRepo: repository.NewCollectionRepository(db),
		TxRepo:         repository.NewTransactionRepository(db),
	}
}
