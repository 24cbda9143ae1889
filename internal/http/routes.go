package http

import (
	"os"
	"strconv"
	"time"

	"character_catcher/internal/http/handlers"
	"character_catcher/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, version string) {
	h := handlers.NewHandler(db)
	healthHandler := handlers.NewHealthHandler(db, version)

	// read limits from env, with safe defaults
	apiRateLimit := 30
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateLimit = n
		}
	}
	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}

	// Health checks and metrics (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(apiRateLimit, apiRateWindow))

	// Leaderboards
	v1.GET("/top/balances", h.TopBalances)
	v1.GET("/top/guesses", h.TopGuessers)
	v1.GET("/chats/:id/top", h.ChatTopGuessers)

	// Catalog
	v1.GET("/characters", h.SearchCharacters)
	v1.GET("/characters/:id", h.GetCharacter)

	// Collections and ledger history
	v1.GET("/users/:id/collection", h.GetCollection)
	v1.GET("/users/:id/transactions", h.GetTransactions)
}
