package config

import (
	"os"
	"strconv"
	"strings"

	"character_catcher/internal/domain"
	"character_catcher/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	BotToken    string
	BotUsername string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AdminTelegramIDs []int64 // comma separated in env

	// Spawn cadence defaults; chats can override via admin commands.
	SpawnThreshold     int
	SpawnExpirySeconds int
	TickSeconds        int

	LogLevel string
	LogJSON  bool
}

// Load reads the environment (plus a .env file when present) and exits the
// process on missing required values.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	botUsername := os.Getenv("BOT_USERNAME")
	if botUsername == "" {
		botUsername = "CharacterCatcherBot"
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	var adminIDs []int64
	if raw := os.Getenv("ADMIN_TELEGRAM_IDS"); raw != "" {
		for _, idStr := range strings.Split(raw, ",") {
			idStr = strings.TrimSpace(idStr)
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				adminIDs = append(adminIDs, id)
			}
		}
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			redisDB = n
		}
	}

	threshold := domain.DefaultSpawnThreshold
	if v := os.Getenv("SPAWN_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			if n < domain.MinSpawnThreshold {
				n = domain.MinSpawnThreshold
			}
			if n > domain.MaxSpawnThreshold {
				n = domain.MaxSpawnThreshold
			}
			threshold = n
		}
	}

	expiry := 0 // spawns never expire unless configured
	if v := os.Getenv("SPAWN_EXPIRY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			expiry = n
		}
	}

	tick := 60
	if v := os.Getenv("TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			tick = n
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		AppPort:            port,
		DatabaseURL:        dbURL,
		BotToken:           botToken,
		BotUsername:        botUsername,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            redisDB,
		AdminTelegramIDs:   adminIDs,
		SpawnThreshold:     threshold,
		SpawnExpirySeconds: expiry,
		TickSeconds:        tick,
		LogLevel:           logLevel,
		LogJSON:            os.Getenv("LOG_JSON") == "true",
	}
}

// IsAdmin reports whether the telegram id is in the configured admin list.
func (c *Config) IsAdmin(id int64) bool {
	for _, adminID := range c.AdminTelegramIDs {
		if adminID == id {
			return true
		}
	}
	return false
}
