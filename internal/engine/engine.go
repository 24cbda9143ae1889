// Package engine runs the spawn/claim state machine: per-chat spawn cadence,
// single-winner claim resolution, and the ledger settlement of a won spawn.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"character_catcher/internal/catalog"
	"character_catcher/internal/domain"
	"character_catcher/internal/logger"
	"character_catcher/internal/metrics"
	"character_catcher/internal/text"
)

// Store is the transactional surface the engine mutates spawns through. All
// implementations must give true atomicity: PublishSpawn is a compare-and-set
// against "no unclaimed spawn for this chat", and SettleClaim flips the
// claimed flag and applies the reward as one unit. With multiple bot
// processes the invariants hold because every process routes through the same
// store.
type Store interface {
	// ActiveSpawn returns the chat's spawn row, claimed or not, or nil when
	// the chat has never spawned (or was cleared).
	ActiveSpawn(ctx context.Context, chatID int64) (*domain.ActiveSpawn, error)

	// PublishSpawn installs spawn as the chat's active spawn. It succeeds
	// when the chat has no spawn, a claimed spawn, or (with a positive
	// replaceAfter) an unclaimed spawn older than replaceAfter. It returns false
	// when an unclaimed spawn is still pending.
	PublishSpawn(ctx context.Context, spawn domain.ActiveSpawn, replaceAfter time.Duration) (bool, error)

	// SettleClaim atomically marks the spawn claimed by userID and, if and
	// only if the flip wins, appends the collection entry, credits reward and
	// bumps the guess counters. won is false when the spawn token no longer
	// names an unclaimed spawn.
	SettleClaim(ctx context.Context, chatID int64, spawnToken string, userID, characterID, reward int64) (newBalance int64, won bool, err error)

	// ChatSettings returns the chat's cadence settings, with defaults for
	// chats that never configured anything.
	ChatSettings(ctx context.Context, chatID int64) (domain.ChatSettings, error)
}

// Counter tracks messages seen per chat since the last spawn. Counts drive
// cadence only, so approximate values (for example a shared Redis counter
// racing across processes) are acceptable.
type Counter interface {
	Incr(ctx context.Context, chatID int64) (int64, error)
	Reset(ctx context.Context, chatID int64) error
}

// Publisher delivers a freshly spawned character to the chat. Delivery is
// fire-and-forget from the engine's point of view.
type Publisher interface {
	SpawnPublished(ctx context.Context, chatID int64, c domain.Character)
}

// Rewards maps a rarity tier to the coin reward paid for claiming it.
type Rewards map[domain.Rarity]int64

// DefaultRewards pays 100 coins per tier level.
func DefaultRewards() Rewards {
	r := make(Rewards, int(domain.RarityMax))
	for tier := domain.RarityMin; tier <= domain.RarityMax; tier++ {
		r[tier] = int64(tier) * 100
	}
	return r
}

// Engine wires the selector, the spawn store and the ledger settlement
// together. It is safe for concurrent use across chats and within a chat;
// serialization happens only at the store's claim flip.
type Engine struct {
	store    Store
	counter  Counter
	registry *catalog.Registry
	selector *catalog.Selector
	weights  catalog.Weights
	rewards  Rewards
	pub      Publisher
	log      *slog.Logger
}

// New creates an engine. pub may be nil when no delivery side effects are
// wanted (tests, dry runs).
func New(store Store, counter Counter, registry *catalog.Registry, selector *catalog.Selector, weights catalog.Weights, rewards Rewards, pub Publisher) *Engine {
	return &Engine{
		store:    store,
		counter:  counter,
		registry: registry,
		selector: selector,
		weights:  weights,
		rewards:  rewards,
		pub:      pub,
		log:      logger.With("component", "engine"),
	}
}

// Reward returns the configured reward for a tier.
func (e *Engine) Reward(r domain.Rarity) int64 {
	return e.rewards[r]
}

// OnMessage handles one inbound chat message: resolves it as a claim attempt
// against the chat's active spawn, then advances the message-count cadence
// and spawns when the threshold is reached.
//
// Wrong guesses never mutate state. Under N concurrent correct guesses
// exactly one caller sees ClaimSuccess; the rest see ClaimAlreadyClaimed.
func (e *Engine) OnMessage(ctx context.Context, chatID, userID int64, message string) (ClaimResult, SpawnResult, error) {
	claim, err := e.resolveClaim(ctx, chatID, userID, message)
	if err != nil {
		return ClaimResult{}, SpawnResult{}, err
	}
	metrics.Claims.WithLabelValues(claim.Status.String()).Inc()

	spawn, err := e.advanceCadence(ctx, chatID)
	if err != nil {
		// The claim already settled; report it alongside the cadence error.
		return claim, SpawnResult{}, err
	}
	return claim, spawn, nil
}

// OnTick attempts a timer-driven spawn for the chat. Chats without a
// configured interval report SpawnNotDue.
func (e *Engine) OnTick(ctx context.Context, chatID int64) (SpawnResult, error) {
	settings, err := e.store.ChatSettings(ctx, chatID)
	if err != nil {
		return SpawnResult{}, err
	}
	if settings.IntervalSeconds <= 0 {
		return SpawnResult{Status: SpawnNotDue}, nil
	}

	current, err := e.store.ActiveSpawn(ctx, chatID)
	if err != nil {
		return SpawnResult{}, err
	}
	interval := time.Duration(settings.IntervalSeconds) * time.Second
	if current != nil && time.Since(current.CreatedAt) < interval {
		if current.Claimed {
			return SpawnResult{Status: SpawnNotDue}, nil
		}
		return SpawnResult{Status: SpawnAlreadyActive}, nil
	}
	return e.spawn(ctx, chatID, settings)
}

// ForceSpawn publishes a spawn immediately, ignoring cadence. Used by admin
// tooling.
func (e *Engine) ForceSpawn(ctx context.Context, chatID int64) (SpawnResult, error) {
	settings, err := e.store.ChatSettings(ctx, chatID)
	if err != nil {
		return SpawnResult{}, err
	}
	return e.spawn(ctx, chatID, settings)
}

func (e *Engine) resolveClaim(ctx context.Context, chatID, userID int64, message string) (ClaimResult, error) {
	guess := text.Normalize(message)
	if guess == "" {
		return ClaimResult{Status: ClaimNoMatch}, nil
	}

	spawn, err := e.store.ActiveSpawn(ctx, chatID)
	if err != nil {
		return ClaimResult{}, err
	}
	if spawn == nil {
		return ClaimResult{Status: ClaimNoActiveSpawn}, nil
	}

	character, ok := e.registry.Current().ByID(spawn.CharacterID)
	if !ok {
		// Spawned from a snapshot whose character has since been removed.
		// Nothing can match it; treat the chat as idle.
		e.log.Warn("active spawn references unknown character",
			"chat_id", chatID, "character_id", spawn.CharacterID)
		return ClaimResult{Status: ClaimNoActiveSpawn}, nil
	}

	// Guess matching is exact on the normalized form. No fuzzy or prefix
	// matching: partial credit would make spamming guesses profitable.
	if guess != character.NormalizedName {
		return ClaimResult{Status: ClaimNoMatch}, nil
	}

	if spawn.Claimed {
		return ClaimResult{Status: ClaimAlreadyClaimed, Character: character}, nil
	}

	reward := e.rewards[character.Rarity]
	newBalance, won, err := e.store.SettleClaim(ctx, chatID, spawn.SpawnToken, userID, character.ID, reward)
	if err != nil {
		return ClaimResult{}, err
	}
	if !won {
		return ClaimResult{Status: ClaimAlreadyClaimed, Character: character}, nil
	}

	e.log.Info("spawn claimed",
		"chat_id", chatID, "user_id", userID,
		"character_id", character.ID, "rarity", character.Rarity.String(),
		"reward", reward)
	return ClaimResult{
		Status:     ClaimSuccess,
		Character:  character,
		Reward:     reward,
		NewBalance: newBalance,
	}, nil
}

func (e *Engine) advanceCadence(ctx context.Context, chatID int64) (SpawnResult, error) {
	count, err := e.counter.Incr(ctx, chatID)
	if err != nil {
		return SpawnResult{}, err
	}
	settings, err := e.store.ChatSettings(ctx, chatID)
	if err != nil {
		return SpawnResult{}, err
	}
	if count < int64(settings.SpawnThreshold) {
		return SpawnResult{Status: SpawnNotDue}, nil
	}
	return e.spawn(ctx, chatID, settings)
}

func (e *Engine) spawn(ctx context.Context, chatID int64, settings domain.ChatSettings) (SpawnResult, error) {
	character, err := e.selector.Pick(e.registry.Current(), e.weights)
	if err != nil {
		if errors.Is(err, catalog.ErrEmptyCatalog) {
			e.log.Warn("spawn skipped, catalog empty", "chat_id", chatID)
			return SpawnResult{Status: SpawnSkipped}, nil
		}
		return SpawnResult{}, err
	}

	spawn := domain.ActiveSpawn{
		ChatID:      chatID,
		CharacterID: character.ID,
		SpawnToken:  uuid.NewString(),
		CreatedAt:   time.Now(),
	}
	replaceAfter := time.Duration(settings.ExpirySeconds) * time.Second

	published, err := e.store.PublishSpawn(ctx, spawn, replaceAfter)
	if err != nil {
		return SpawnResult{}, err
	}
	if !published {
		return SpawnResult{Status: SpawnAlreadyActive}, nil
	}

	// Counter resets only after a successful publish, so a blocked spawn
	// retries on the next message instead of waiting out a full window.
	if err := e.counter.Reset(ctx, chatID); err != nil {
		e.log.Warn("reset message counter", "chat_id", chatID, "error", err)
	}

	metrics.Spawns.WithLabelValues(character.Rarity.String()).Inc()
	e.log.Info("spawn published",
		"chat_id", chatID, "character_id", character.ID,
		"rarity", character.Rarity.String(), "spawn_token", spawn.SpawnToken)

	if e.pub != nil {
		e.pub.SpawnPublished(ctx, chatID, character)
	}
	return SpawnResult{Status: SpawnPublished, Spawn: spawn, Character: character}, nil
}
