package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"character_catcher/internal/domain"
	"character_catcher/internal/repository"
	"character_catcher/internal/text"

	"github.com/jackc/pgx/v5/pgxpool"
)

// seedEntry is one line of the seed file.
type seedEntry struct {
	Name     string `json:"name"`
	Anime    string `json:"anime"`
	Rarity   string `json:"rarity"`
	ImageURL string `json:"image_url"`
}

// Loads a JSON array of characters into the catalog. Intended for bootstrap
// and local development; production uploads go through the bot.
func main() {
	file := flag.String("file", "characters.json", "path to the seed file")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read seed file: %v", err)
	}
	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Fatalf("parse seed file: %v", err)
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	repo := repository.NewCharacterRepository(db)
	seeded := 0
	for _, entry := range entries {
		normalized := text.Normalize(entry.Name)
		if normalized == "" {
			log.Printf("skipping %q: name normalizes to nothing", entry.Name)
			continue
		}
		c := domain.Character{
			Name:           entry.Name,
			NormalizedName: normalized,
			Anime:          entry.Anime,
			Rarity:         domain.ParseRarity(entry.Rarity),
			ImageURL:       entry.ImageURL,
			Enabled:        true,
		}
		if err := repo.Create(context.Background(), &c); err != nil {
			log.Fatalf("insert %q: %v", entry.Name, err)
		}
		seeded++
	}

	fmt.Printf("seeded %d characters\n", seeded)
}
