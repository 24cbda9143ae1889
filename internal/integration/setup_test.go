package integration

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"character_catcher/internal/domain"
	"character_catcher/internal/repository"
	"character_catcher/internal/text"

	"github.com/jackc/pgx/v5/pgxpool"
)

// connectDB skips the test unless DATABASE_URL points at a disposable
// database, then makes sure the schema is present.
func connectDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	applyMigrations(t, db)
	return db
}

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if filepath.Ext(f.Name()) == ".sql" {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(migDir, name))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", name, err)
		}
	}
}

// newUser inserts a user with a random id so runs against a persistent
// database never collide.
func newUser(t *testing.T, db *pgxpool.Pool) int64 {
	t.Helper()

	id := rand.Int63()
	repo := repository.NewUserRepository(db)
	if err := repo.Upsert(context.Background(), &domain.User{
		ID:        id,
		Username:  "itest",
		FirstName: "Integration",
	}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return id
}

func newCharacter(t *testing.T, db *pgxpool.Pool, name string, rarity domain.Rarity) domain.Character {
	t.Helper()

	c := domain.Character{
		Name:           name,
		NormalizedName: text.Normalize(name),
		Anime:          "Test Anime",
		Rarity:         rarity,
		Enabled:        true,
	}
	if err := repository.NewCharacterRepository(db).Create(context.Background(), &c); err != nil {
		t.Fatalf("create character: %v", err)
	}
	return c
}

func balanceOf(t *testing.T, db *pgxpool.Pool, userID int64) int64 {
	t.Helper()

	balance, err := repository.NewUserRepository(db).GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	return balance
}
