package engine

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"character_catcher/internal/catalog"
	"character_catcher/internal/domain"
	"character_catcher/internal/text"
)

// memStore implements Store with a single mutex. It mirrors the transactional
// guarantees of the Postgres store: PublishSpawn is a compare-and-set and
// SettleClaim flips the claimed flag and applies the reward as one unit.
type memStore struct {
	mu          sync.Mutex
	spawns      map[int64]*domain.ActiveSpawn
	balances    map[int64]int64
	collections map[int64][]domain.CollectionEntry
	settings    map[int64]domain.ChatSettings
}

func newMemStore() *memStore {
	return &memStore{
		spawns:      make(map[int64]*domain.ActiveSpawn),
		balances:    make(map[int64]int64),
		collections: make(map[int64][]domain.CollectionEntry),
		settings:    make(map[int64]domain.ChatSettings),
	}
}

func (s *memStore) ActiveSpawn(_ context.Context, chatID int64) (*domain.ActiveSpawn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spawns[chatID]
	if !ok {
		return nil, nil
	}
	cp := *sp
	return &cp, nil
}

func (s *memStore) PublishSpawn(_ context.Context, spawn domain.ActiveSpawn, replaceAfter time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.spawns[spawn.ChatID]; ok && !existing.Claimed {
		if replaceAfter <= 0 || time.Since(existing.CreatedAt) < replaceAfter {
			return false, nil
		}
	}
	cp := spawn
	s.spawns[spawn.ChatID] = &cp
	return true, nil
}

func (s *memStore) SettleClaim(_ context.Context, chatID int64, spawnToken string, userID, characterID, reward int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spawns[chatID]
	if !ok || sp.SpawnToken != spawnToken || sp.Claimed {
		return 0, false, nil
	}
	now := time.Now()
	sp.Claimed = true
	sp.ClaimedBy = &userID
	sp.ClaimedAt = &now
	s.balances[userID] += reward
	s.collections[userID] = append(s.collections[userID], domain.CollectionEntry{
		UserID:      userID,
		CharacterID: characterID,
		Source:      domain.SourceClaimed,
		AcquiredAt:  now,
	})
	return s.balances[userID], true, nil
}

func (s *memStore) ChatSettings(_ context.Context, chatID int64) (domain.ChatSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.settings[chatID]; ok {
		return cfg, nil
	}
	return domain.ChatSettings{ChatID: chatID, SpawnThreshold: domain.DefaultSpawnThreshold}, nil
}

func (s *memStore) setSettings(cfg domain.ChatSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[cfg.ChatID] = cfg
}

func (s *memStore) backdateSpawn(chatID int64, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.spawns[chatID]; ok {
		sp.CreatedAt = sp.CreatedAt.Add(-d)
	}
}

func (s *memStore) balance(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID]
}

func (s *memStore) collectionSize(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[userID])
}

type recordingPublisher struct {
	mu     sync.Mutex
	chats  []int64
	latest domain.Character
}

func (p *recordingPublisher) SpawnPublished(_ context.Context, chatID int64, c domain.Character) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chats = append(p.chats, chatID)
	p.latest = c
}

func testCatalog(names ...string) *catalog.Registry {
	reg := catalog.NewRegistry()
	chars := make([]domain.Character, 0, len(names))
	for i, name := range names {
		chars = append(chars, domain.Character{
			ID:             int64(i + 1),
			Name:           name,
			NormalizedName: text.Normalize(name),
			Anime:          "test",
			Rarity:         domain.RarityCommon,
			Enabled:        true,
		})
	}
	reg.Replace(catalog.NewSnapshot(chars))
	return reg
}

func newTestEngine(store *memStore, reg *catalog.Registry, pub Publisher) *Engine {
	weights := catalog.Weights{domain.RarityCommon: 1}
	return New(store, NewMemoryCounter(), reg, catalog.NewSelector(rand.NewSource(1)), weights, DefaultRewards(), pub)
}

const chatID = int64(-100200300)

func mustSpawn(t *testing.T, e *Engine) SpawnResult {
	t.Helper()
	res, err := e.ForceSpawn(context.Background(), chatID)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if res.Status != SpawnPublished {
		t.Fatalf("ForceSpawn status = %v; want published", res.Status)
	}
	return res
}

func TestClaimNoActiveSpawn(t *testing.T) {
	e := newTestEngine(newMemStore(), testCatalog("Asuna"), nil)

	claim, _, err := e.OnMessage(context.Background(), chatID, 1, "Asuna")
	if err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if claim.Status != ClaimNoActiveSpawn {
		t.Errorf("status = %v; want no_active_spawn", claim.Status)
	}
}

func TestClaimNoMatchLeavesStateUntouched(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, testCatalog("Asuna"), nil)
	mustSpawn(t, e)

	for _, wrong := range []string{"Rem", "asun", "asuna yuuki", "", "  !!"} {
		claim, _, err := e.OnMessage(context.Background(), chatID, 1, wrong)
		if err != nil {
			t.Fatalf("OnMessage(%q): %v", wrong, err)
		}
		if claim.Status != ClaimNoMatch {
			t.Errorf("guess %q: status = %v; want no_match", wrong, claim.Status)
		}
	}
	if b := store.balance(1); b != 0 {
		t.Errorf("balance mutated by wrong guesses: %d", b)
	}
	if n := store.collectionSize(1); n != 0 {
		t.Errorf("collection mutated by wrong guesses: %d entries", n)
	}
}

func TestClaimNormalization(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, testCatalog("Ryūko Matoi"), nil)
	mustSpawn(t, e)

	claim, _, err := e.OnMessage(context.Background(), chatID, 7, "  ryuko-MATOI ")
	if err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if claim.Status != ClaimSuccess {
		t.Fatalf("status = %v; want success", claim.Status)
	}
	if claim.Character.Name != "Ryūko Matoi" {
		t.Errorf("claimed character = %q", claim.Character.Name)
	}
}

// The trailing-space race: A guesses the exact name, B repeats it slightly
// later. A wins once; B is told the spawn is gone; A is paid exactly once.
func TestClaimSecondGuessAlreadyClaimed(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, testCatalog("Asuna"), nil)
	mustSpawn(t, e)

	a, _, err := e.OnMessage(context.Background(), chatID, 1, "Asuna")
	if err != nil {
		t.Fatalf("OnMessage A: %v", err)
	}
	b, _, err := e.OnMessage(context.Background(), chatID, 2, "asuna ")
	if err != nil {
		t.Fatalf("OnMessage B: %v", err)
	}

	if a.Status != ClaimSuccess {
		t.Fatalf("A status = %v; want success", a.Status)
	}
	if b.Status != ClaimAlreadyClaimed {
		t.Fatalf("B status = %v; want already_claimed", b.Status)
	}
	reward := DefaultRewards()[domain.RarityCommon]
	if a.Reward != reward || store.balance(1) != reward {
		t.Errorf("A reward = %d, balance = %d; want %d once", a.Reward, store.balance(1), reward)
	}
	if store.balance(2) != 0 || store.collectionSize(2) != 0 {
		t.Errorf("B gained state: balance %d, entries %d", store.balance(2), store.collectionSize(2))
	}
	if store.collectionSize(1) != 1 {
		t.Errorf("A collection entries = %d; want 1", store.collectionSize(1))
	}
}

func TestClaimConcurrentSingleWinner(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, testCatalog("Asuna"), nil)
	mustSpawn(t, e)

	const guessers = 64
	results := make([]ClaimResult, guessers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < guessers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, _, err := e.OnMessage(context.Background(), chatID, int64(i+1), "Asuna")
			if err != nil {
				t.Errorf("guesser %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	close(start)
	wg.Wait()

	var winners, losers int
	var winner int64
	for i, res := range results {
		switch res.Status {
		case ClaimSuccess:
			winners++
			winner = int64(i + 1)
		case ClaimAlreadyClaimed:
			losers++
		default:
			t.Errorf("guesser %d: unexpected status %v", i, res.Status)
		}
	}
	if winners != 1 || losers != guessers-1 {
		t.Fatalf("winners = %d, losers = %d; want 1 and %d", winners, losers, guessers-1)
	}

	reward := DefaultRewards()[domain.RarityCommon]
	if store.balance(winner) != reward {
		t.Errorf("winner balance = %d; want %d", store.balance(winner), reward)
	}
	if store.collectionSize(winner) != 1 {
		t.Errorf("winner entries = %d; want 1", store.collectionSize(winner))
	}
	for u := int64(1); u <= guessers; u++ {
		if u == winner {
			continue
		}
		if store.balance(u) != 0 || store.collectionSize(u) != 0 {
			t.Errorf("loser %d mutated: balance %d, entries %d", u, store.balance(u), store.collectionSize(u))
		}
	}
}

func TestSpawnCompareAndSet(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, testCatalog("Asuna"), nil)
	mustSpawn(t, e)

	res, err := e.ForceSpawn(context.Background(), chatID)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if res.Status != SpawnAlreadyActive {
		t.Fatalf("second spawn status = %v; want already_active", res.Status)
	}

	// Claiming frees the slot.
	if claim, _, _ := e.OnMessage(context.Background(), chatID, 1, "Asuna"); claim.Status != ClaimSuccess {
		t.Fatalf("claim status = %v", claim.Status)
	}
	mustSpawn(t, e)
}

func TestSpawnExpiryConfigurable(t *testing.T) {
	store := newMemStore()
	store.setSettings(domain.ChatSettings{
		ChatID:         chatID,
		SpawnThreshold: domain.DefaultSpawnThreshold,
		ExpirySeconds:  60,
	})
	e := newTestEngine(store, testCatalog("Asuna"), nil)
	mustSpawn(t, e)

	// Still pending and younger than the expiry window.
	res, err := e.ForceSpawn(context.Background(), chatID)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if res.Status != SpawnAlreadyActive {
		t.Fatalf("status = %v; want already_active", res.Status)
	}

	store.backdateSpawn(chatID, 2*time.Minute)
	mustSpawn(t, e)
}

func TestMessageCountCadence(t *testing.T) {
	store := newMemStore()
	store.setSettings(domain.ChatSettings{ChatID: chatID, SpawnThreshold: 10})
	pub := &recordingPublisher{}
	e := newTestEngine(store, testCatalog("Asuna"), pub)

	ctx := context.Background()
	for i := 0; i < 9; i++ {
		_, spawn, err := e.OnMessage(ctx, chatID, 1, "hello")
		if err != nil {
			t.Fatalf("OnMessage %d: %v", i, err)
		}
		if spawn.Status != SpawnNotDue {
			t.Fatalf("message %d: spawn status = %v; want not_due", i+1, spawn.Status)
		}
	}

	_, spawn, err := e.OnMessage(ctx, chatID, 1, "hello")
	if err != nil {
		t.Fatalf("OnMessage: %v", err)
	}
	if spawn.Status != SpawnPublished {
		t.Fatalf("threshold message: spawn status = %v; want published", spawn.Status)
	}

	pub.mu.Lock()
	published := len(pub.chats)
	latest := pub.latest.Name
	pub.mu.Unlock()
	if published != 1 || latest != "Asuna" {
		t.Errorf("publisher saw %d spawns (latest %q); want 1 Asuna", published, latest)
	}

	// With the spawn still pending, reaching the threshold again must not
	// replace it.
	for i := 0; i < 10; i++ {
		_, spawn, err = e.OnMessage(ctx, chatID, 1, "hello")
		if err != nil {
			t.Fatalf("OnMessage: %v", err)
		}
	}
	if spawn.Status != SpawnAlreadyActive {
		t.Errorf("post-threshold status = %v; want already_active", spawn.Status)
	}
}

func TestSpawnSkippedOnEmptyCatalog(t *testing.T) {
	e := newTestEngine(newMemStore(), catalog.NewRegistry(), nil)

	res, err := e.ForceSpawn(context.Background(), chatID)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if res.Status != SpawnSkipped {
		t.Errorf("status = %v; want skipped", res.Status)
	}
}

func TestOnTick(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, testCatalog("Asuna"), nil)
	ctx := context.Background()

	// No interval configured: the timer path is inert.
	res, err := e.OnTick(ctx, chatID)
	if err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if res.Status != SpawnNotDue {
		t.Fatalf("status = %v; want not_due", res.Status)
	}

	store.setSettings(domain.ChatSettings{
		ChatID:          chatID,
		SpawnThreshold:  domain.DefaultSpawnThreshold,
		IntervalSeconds: 3600,
	})

	res, err = e.OnTick(ctx, chatID)
	if err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if res.Status != SpawnPublished {
		t.Fatalf("first tick status = %v; want published", res.Status)
	}

	// Unclaimed and young: pending.
	if res, _ = e.OnTick(ctx, chatID); res.Status != SpawnAlreadyActive {
		t.Fatalf("second tick status = %v; want already_active", res.Status)
	}

	// Claimed and young: not due yet.
	if claim, _, _ := e.OnMessage(ctx, chatID, 1, "Asuna"); claim.Status != ClaimSuccess {
		t.Fatal("claim failed")
	}
	if res, _ = e.OnTick(ctx, chatID); res.Status != SpawnNotDue {
		t.Fatalf("post-claim tick status = %v; want not_due", res.Status)
	}

	store.backdateSpawn(chatID, 2*time.Hour)
	if res, _ = e.OnTick(ctx, chatID); res.Status != SpawnPublished {
		t.Fatalf("aged tick status = %v; want published", res.Status)
	}
}
