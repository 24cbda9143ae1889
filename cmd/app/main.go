package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	botpkg "character_catcher/internal/bot"
	"character_catcher/internal/catalog"
	"character_catcher/internal/config"
	"character_catcher/internal/db"
	"character_catcher/internal/domain"
	"character_catcher/internal/engine"
	httpServer "character_catcher/internal/http"
	"character_catcher/internal/http/middleware"
	"character_catcher/internal/logger"
	"character_catcher/internal/repository"
	"character_catcher/internal/service"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

const version = "1.0.0"

// publisherFunc adapts a closure to the engine's publisher hook so the bot
// can be constructed after the engine it depends on.
type publisherFunc func(ctx context.Context, chatID int64, c domain.Character)

func (f publisherFunc) SpawnPublished(ctx context.Context, chatID int64, c domain.Character) {
	f(ctx, chatID, c)
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	// Redis is optional: without it the message counters and shop rotation
	// fall back to in-process state, which is fine for a single bot instance.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, using in-process fallbacks", "error", err)
			redisClient = nil
		}
		cancel()
	}

	// Repositories and services.
	userRepo := repository.NewUserRepository(dbPool)
	statsRepo := repository.NewStatsRepository(dbPool)
	chatRepo := repository.NewChatRepository(dbPool, cfg.SpawnThreshold)

	ledger := service.NewLedgerService(dbPool)
	economy := service.NewEconomyService(dbPool, ledger)

	registry := catalog.NewRegistry()
	admin := service.NewAdminService(dbPool, chatRepo, registry)
	if err := admin.ReloadCatalog(context.Background()); err != nil {
		logger.Fatal("load catalog", "error", err)
	}

	shop := service.NewShopService(redisClient, registry, economy)

	var counter engine.Counter = engine.NewMemoryCounter()
	if redisClient != nil {
		counter = engine.NewRedisCounter(redisClient)
	}

	// The bot is both the update source and the spawn publisher; the engine
	// is wired with the bot after construction to break the cycle.
	store := service.NewEngineStore(dbPool, ledger, chatRepo)
	selector := catalog.NewSelector(rand.NewSource(time.Now().UnixNano()))

	var bot *botpkg.Bot
	eng := engine.New(store, counter, registry, selector,
		catalog.DefaultWeights(), engine.DefaultRewards(),
		publisherFunc(func(ctx context.Context, chatID int64, c domain.Character) {
			bot.SpawnPublished(ctx, chatID, c)
		}))

	var err error
	bot, err = botpkg.New(cfg, botpkg.Deps{
		Engine:    eng,
		Ledger:    ledger,
		Economy:   economy,
		Shop:      shop,
		Admin:     admin,
		UserRepo:  userRepo,
		StatsRepo: statsRepo,
		ChatRepo:  chatRepo,
	})
	if err != nil {
		logger.Fatal("create bot", "error", err)
	}
	go bot.Start()

	// Read-only HTTP API.
	middleware.InitRedisRateLimiter(redisClient)

	r := gin.Default()
	httpServer.RegisterRoutes(r, dbPool, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	bot.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
