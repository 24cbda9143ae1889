package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"character_catcher/internal/catalog"
	"character_catcher/internal/domain"
)

var (
	// ErrShopEmpty: the catalog could not fill a single shop slot.
	ErrShopEmpty = errors.New("shop has no items")
	// ErrShopItemNotFound: the item number does not exist in the current
	// shop rotation.
	ErrShopItemNotFound = errors.New("shop item not found")
)

const (
	shopSize      = 10
	shopTTL       = time.Hour
	shopKeyPrefix = "shop:chat:"
	priceBase     = 1000 // coins per rarity tier
	priceJitter   = 200
	priceFloor    = 100
)

// ShopItem is one purchasable slot in a chat's shop rotation.
type ShopItem struct {
	Character domain.Character `json:"character"`
	Price     int64            `json:"price"`
}

// ShopService keeps a per-chat rotation of purchasable characters. Rotations
// live in Redis with a TTL so every bot process sees the same shop; without
// Redis a process-local cache serves the same role.
type ShopService struct {
	redis    *redis.Client // nil means in-process cache only
	registry *catalog.Registry
	economy  *EconomyService

	mu    sync.Mutex
	rng   *rand.Rand
	local map[int64]localShop
}

type localShop struct {
	items     []ShopItem
	expiresAt time.Time
}

func NewShopService(redisClient *redis.Client, registry *catalog.Registry, economy *EconomyService) *ShopService {
	return &ShopService{
		redis:    redisClient,
		registry: registry,
		economy:  economy,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		local:    make(map[int64]localShop),
	}
}

// Items returns the chat's current rotation, generating a fresh one when the
// previous rotation expired.
func (s *ShopService) Items(ctx context.Context, chatID int64) ([]ShopItem, error) {
	if items, ok := s.load(ctx, chatID); ok {
		return items, nil
	}

	items := s.generate()
	if len(items) == 0 {
		return nil, ErrShopEmpty
	}
	s.store(ctx, chatID, items, shopTTL)
	return items, nil
}

// Buy purchases item number n (1-based) from the chat's rotation. The
// purchase itself is the atomic EconomyService.Purchase; a sold item leaves
// the rotation only after the purchase commits.
func (s *ShopService) Buy(ctx context.Context, chatID, userID int64, n int) (ShopItem, error) {
	items, err := s.Items(ctx, chatID)
	if err != nil {
		return ShopItem{}, err
	}
	if n < 1 || n > len(items) {
		return ShopItem{}, ErrShopItemNotFound
	}
	item := items[n-1]

	if err := s.economy.Purchase(ctx, userID, item.Character, item.Price); err != nil {
		return ShopItem{}, err
	}

	remaining := append(append([]ShopItem(nil), items[:n-1]...), items[n:]...)
	s.store(ctx, chatID, remaining, s.remainingTTL(ctx, chatID))
	return item, nil
}

// Refresh discards the chat's rotation and builds a new one.
func (s *ShopService) Refresh(ctx context.Context, chatID int64) ([]ShopItem, error) {
	if s.redis != nil {
		s.redis.Del(ctx, shopKey(chatID))
	}
	s.mu.Lock()
	delete(s.local, chatID)
	s.mu.Unlock()
	return s.Items(ctx, chatID)
}

// generate samples up to shopSize distinct enabled characters and prices them
// by tier with a little jitter.
func (s *ShopService) generate() []ShopItem {
	eligible := s.registry.Current().Enabled()

	s.mu.Lock()
	s.rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if len(eligible) > shopSize {
		eligible = eligible[:shopSize]
	}
	items := make([]ShopItem, 0, len(eligible))
	for _, c := range eligible {
		price := int64(int(c.Rarity))*priceBase + int64(s.rng.Intn(2*priceJitter+1)-priceJitter)
		if price < priceFloor {
			price = priceFloor
		}
		items = append(items, ShopItem{Character: c, Price: price})
	}
	s.mu.Unlock()
	return items
}

func (s *ShopService) load(ctx context.Context, chatID int64) ([]ShopItem, bool) {
	if s.redis != nil {
		data, err := s.redis.Get(ctx, shopKey(chatID)).Bytes()
		if err != nil {
			return nil, false
		}
		var items []ShopItem
		if json.Unmarshal(data, &items) != nil || len(items) == 0 {
			return nil, false
		}
		return items, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.local[chatID]
	if !ok || time.Now().After(cached.expiresAt) || len(cached.items) == 0 {
		return nil, false
	}
	return cached.items, true
}

func (s *ShopService) store(ctx context.Context, chatID int64, items []ShopItem, ttl time.Duration) {
	if ttl <= 0 {
		ttl = shopTTL
	}
	if s.redis != nil {
		if data, err := json.Marshal(items); err == nil {
			s.redis.Set(ctx, shopKey(chatID), data, ttl)
		}
		return
	}

	s.mu.Lock()
	s.local[chatID] = localShop{items: items, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// remainingTTL preserves the rotation's original expiry when rewriting it
// after a sale.
func (s *ShopService) remainingTTL(ctx context.Context, chatID int64) time.Duration {
	if s.redis != nil {
		if ttl, err := s.redis.TTL(ctx, shopKey(chatID)).Result(); err == nil && ttl > 0 {
			return ttl
		}
		return shopTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.local[chatID]; ok {
		if left := time.Until(cached.expiresAt); left > 0 {
			return left
		}
	}
	return shopTTL
}

func shopKey(chatID int64) string {
	return shopKeyPrefix + strconv.FormatInt(chatID, 10)
}
