package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"character_catcher/internal/domain"
	"character_catcher/internal/repository"
	"character_catcher/internal/service"

	"github.com/google/uuid"
)

func TestEngineStore_PublishCompareAndSet(t *testing.T) {
	db := connectDB(t)
	ledger := service.NewLedgerService(db)
	chatRepo := repository.NewChatRepository(db, 0)
	store := service.NewEngineStore(db, ledger, chatRepo)
	character := newCharacter(t, db, "Chika Fujiwara", domain.RarityEpic)
	chatID := newUser(t, db) // random id works for a chat too
	ctx := context.Background()

	first := domain.ActiveSpawn{
		ChatID:      chatID,
		CharacterID: character.ID,
		SpawnToken:  uuid.NewString(),
	}
	published, err := store.PublishSpawn(ctx, first, 0)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published {
		t.Fatal("first publish must succeed")
	}

	// A second publish while the first is unclaimed must lose the CAS.
	second := first
	second.SpawnToken = uuid.NewString()
	published, err = store.PublishSpawn(ctx, second, 0)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published {
		t.Fatal("publish over an unclaimed spawn must fail")
	}

	// After the spawn is claimed the next publish goes through.
	winner := newUser(t, db)
	if _, won, err := store.SettleClaim(ctx, chatID, first.SpawnToken, winner, character.ID, 100); err != nil || !won {
		t.Fatalf("settle: won=%v err=%v", won, err)
	}
	published, err = store.PublishSpawn(ctx, second, 0)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published {
		t.Fatal("publish over a claimed spawn must succeed")
	}
}

func TestEngineStore_ConcurrentClaimSingleWinner(t *testing.T) {
	db := connectDB(t)
	ledger := service.NewLedgerService(db)
	chatRepo := repository.NewChatRepository(db, 0)
	store := service.NewEngineStore(db, ledger, chatRepo)
	character := newCharacter(t, db, "Kaguya Shinomiya", domain.RarityLegendary)
	chatID := newUser(t, db)
	ctx := context.Background()

	const contenders = 16
	users := make([]int64, contenders)
	for i := range users {
		users[i] = newUser(t, db)
	}

	spawn := domain.ActiveSpawn{
		ChatID:      chatID,
		CharacterID: character.ID,
		SpawnToken:  uuid.NewString(),
	}
	if published, err := store.PublishSpawn(ctx, spawn, 0); err != nil || !published {
		t.Fatalf("publish: published=%v err=%v", published, err)
	}

	var wg sync.WaitGroup
	wins := make(chan int64, contenders)
	for _, userID := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, won, err := store.SettleClaim(ctx, chatID, spawn.SpawnToken, userID, character.ID, 300)
			if err != nil {
				t.Errorf("settle: %v", err)
				return
			}
			if won {
				wins <- userID
			}
		}(userID)
	}
	wg.Wait()
	close(wins)

	var winners []int64
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", len(winners))
	}

	// The winner got the reward, the entry and the stats bump exactly once.
	winner := winners[0]
	if got := balanceOf(t, db, winner); got != 300 {
		t.Fatalf("expected winner balance 300, got %d", got)
	}
	entry, err := repository.NewCollectionRepository(db).FindOwnedByCharacter(ctx, winner, character.ID)
	if err != nil {
		t.Fatalf("winner entry: %v", err)
	}
	if entry.Source != domain.SourceClaimed {
		t.Fatalf("expected source claimed, got %s", entry.Source)
	}

	// Losers paid nothing and own nothing.
	for _, userID := range users {
		if userID == winner {
			continue
		}
		if got := balanceOf(t, db, userID); got != 0 {
			t.Fatalf("loser %d has balance %d", userID, got)
		}
	}
}

func TestEngineStore_ExpiredSpawnReplaced(t *testing.T) {
	db := connectDB(t)
	ledger := service.NewLedgerService(db)
	chatRepo := repository.NewChatRepository(db, 0)
	store := service.NewEngineStore(db, ledger, chatRepo)
	character := newCharacter(t, db, "Ai Hayasaka", domain.RarityRare)
	chatID := newUser(t, db)
	ctx := context.Background()

	stale := domain.ActiveSpawn{
		ChatID:      chatID,
		CharacterID: character.ID,
		SpawnToken:  uuid.NewString(),
	}
	if published, err := store.PublishSpawn(ctx, stale, 0); err != nil || !published {
		t.Fatalf("publish: published=%v err=%v", published, err)
	}

	// Backdate the row past a one second expiry window.
	if _, err := db.Exec(ctx,
		`UPDATE active_spawns SET created_at = now() - interval '10 seconds' WHERE chat_id = $1`,
		chatID); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	replacement := stale
	replacement.SpawnToken = uuid.NewString()
	published, err := store.PublishSpawn(ctx, replacement, time.Second)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published {
		t.Fatal("expired unclaimed spawn must be replaceable")
	}

	// The stale token can no longer win.
	userID := newUser(t, db)
	_, won, err := store.SettleClaim(ctx, chatID, stale.SpawnToken, userID, character.ID, 100)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if won {
		t.Fatal("stale spawn token must not settle")
	}
}
