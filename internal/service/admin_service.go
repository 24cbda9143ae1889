package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"character_catcher/internal/catalog"
	"character_catcher/internal/domain"
	"character_catcher/internal/logger"
	"character_catcher/internal/repository"
	"character_catcher/internal/text"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrThresholdOutOfRange: spawn frequency outside the allowed clamp.
var ErrThresholdOutOfRange = fmt.Errorf("spawn threshold must be between %d and %d messages",
	domain.MinSpawnThreshold, domain.MaxSpawnThreshold)

// AdminService covers the administrative surface: catalog management, redeem
// code management, per-chat cadence settings and the spawn escape hatch.
// None of it is on the claim hot path.
type AdminService struct {
	characterRepo *repository.CharacterRepository
	redeemRepo    *repository.RedeemRepository
	chatRepo      *repository.ChatRepository
	spawnRepo     *repository.SpawnRepository
	registry      *catalog.Registry
	log           *slog.Logger
}

func NewAdminService(db *pgxpool.Pool, chatRepo *repository.ChatRepository, registry *catalog.Registry) *AdminService {
	return &AdminService{
		characterRepo: repository.NewCharacterRepository(db),
		redeemRepo:    repository.NewRedeemRepository(db),
		chatRepo:      chatRepo,
		spawnRepo:     repository.NewSpawnRepository(db),
		registry:      registry,
		log:           logger.With("component", "admin"),
	}
}

// ReloadCatalog rebuilds the registry snapshot from the database. Readers
// switch snapshots atomically.
func (s *AdminService) ReloadCatalog(ctx context.Context) error {
	characters, err := s.characterRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	s.registry.Replace(catalog.NewSnapshot(characters))
	s.log.Info("catalog reloaded", "characters", len(characters))
	return nil
}

// AddCharacter publishes a new character and reloads the catalog.
func (s *AdminService) AddCharacter(ctx context.Context, name, anime string, rarity domain.Rarity, imageURL string) (domain.Character, error) {
	normalized := text.Normalize(name)
	if normalized == "" {
		return domain.Character{}, errors.New("character name normalizes to nothing")
	}
	if !rarity.Valid() {
		rarity = domain.RarityCommon
	}

	c := domain.Character{
		Name:           strings.TrimSpace(name),
		NormalizedName: normalized,
		Anime:          strings.TrimSpace(anime),
		Rarity:         rarity,
		ImageURL:       imageURL,
		Enabled:        true,
	}
	if err := s.characterRepo.Create(ctx, &c); err != nil {
		return domain.Character{}, err
	}
	s.log.Info("character added", "character_id", c.ID, "name", c.Name, "rarity", rarity.String())
	return c, s.ReloadCatalog(ctx)
}

// SetCharacterRarity moves a character to another tier and reloads.
func (s *AdminService) SetCharacterRarity(ctx context.Context, id int64, rarity domain.Rarity) error {
	if !rarity.Valid() {
		return fmt.Errorf("invalid rarity tier %d", rarity)
	}
	if err := s.characterRepo.SetRarity(ctx, id, rarity); err != nil {
		return err
	}
	return s.ReloadCatalog(ctx)
}

// SetCharacterEnabled toggles spawn eligibility and reloads.
func (s *AdminService) SetCharacterEnabled(ctx context.Context, id int64, enabled bool) error {
	if err := s.characterRepo.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}
	return s.ReloadCatalog(ctx)
}

// SearchCharacters finds catalog entries by normalized name or anime.
func (s *AdminService) SearchCharacters(ctx context.Context, query string, limit int) ([]domain.Character, error) {
	return s.characterRepo.Search(ctx, text.Normalize(query), limit)
}

// CreateCode mints a redeem code. maxUses 0 means unlimited; validDays 0
// means the code never expires.
func (s *AdminService) CreateCode(ctx context.Context, adminID, coins int64, characterID *int64, maxUses, validDays int) (*domain.RedeemCode, error) {
	if coins <= 0 && characterID == nil {
		return nil, ErrInvalidAmount
	}

	code := &domain.RedeemCode{
		Code:        generateCode(10),
		CoinAmount:  coins,
		CharacterID: characterID,
		MaxUses:     maxUses,
		CreatedBy:   adminID,
	}
	if validDays > 0 {
		expires := time.Now().AddDate(0, 0, validDays)
		code.ExpiresAt = &expires
	}
	if err := s.redeemRepo.Create(ctx, code); err != nil {
		return nil, err
	}
	s.log.Info("redeem code created",
		"code", code.Code, "coins", coins, "max_uses", maxUses, "admin_id", adminID)
	return code, nil
}

func (s *AdminService) ListCodes(ctx context.Context) ([]*domain.RedeemCode, error) {
	return s.redeemRepo.List(ctx)
}

func (s *AdminService) DeleteCode(ctx context.Context, code string) error {
	return s.redeemRepo.Delete(ctx, code)
}

// ClearSpawn force-removes a chat's active spawn. Returns false when there
// was nothing to clear.
func (s *AdminService) ClearSpawn(ctx context.Context, chatID int64) (bool, error) {
	cleared, err := s.spawnRepo.Clear(ctx, chatID)
	if err != nil {
		return false, err
	}
	if cleared {
		s.log.Info("spawn cleared", "chat_id", chatID)
	}
	return cleared, nil
}

// SetSpawnThreshold changes how many messages a chat needs between spawns.
func (s *AdminService) SetSpawnThreshold(ctx context.Context, chatID int64, threshold int) error {
	if threshold < domain.MinSpawnThreshold || threshold > domain.MaxSpawnThreshold {
		return ErrThresholdOutOfRange
	}
	return s.chatRepo.SetThreshold(ctx, chatID, threshold)
}

// SetSpawnExpiry sets the window after which an unclaimed spawn may be
// superseded; zero restores "never expires".
func (s *AdminService) SetSpawnExpiry(ctx context.Context, chatID int64, seconds int) error {
	if seconds < 0 {
		return ErrInvalidAmount
	}
	return s.chatRepo.SetExpiry(ctx, chatID, seconds)
}

// SetSpawnInterval sets the timer-spawn interval; zero disables timer spawns.
func (s *AdminService) SetSpawnInterval(ctx context.Context, chatID int64, seconds int) error {
	if seconds < 0 {
		return ErrInvalidAmount
	}
	return s.chatRepo.SetInterval(ctx, chatID, seconds)
}

// ChatSettings returns a chat's effective cadence settings.
func (s *AdminService) ChatSettings(ctx context.Context, chatID int64) (domain.ChatSettings, error) {
	return s.chatRepo.GetSettings(ctx, chatID)
}

// ResetChatSettings restores the chat to defaults.
func (s *AdminService) ResetChatSettings(ctx context.Context, chatID int64) error {
	return s.chatRepo.Reset(ctx, chatID)
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateCode(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble.
		panic(err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
