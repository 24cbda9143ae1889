package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const leaderboardLimit = 100

// TopBalances returns the richest users.
func (h *Handler) TopBalances(c *gin.Context) {
	top, err := h.UserRepo.TopBalances(c.Request.Context(), queryLimit(c, leaderboardLimit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": top,
		"metric":      "balance",
	})
}

// TopGuessers returns the global correct-guess leaderboard.
func (h *Handler) TopGuessers(c *gin.Context) {
	top, err := h.StatsRepo.TopGlobal(c.Request.Context(), queryLimit(c, leaderboardLimit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": top,
		"metric":      "guesses",
	})
}

// ChatTopGuessers returns the per-chat correct-guess leaderboard.
func (h *Handler) ChatTopGuessers(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	top, err := h.StatsRepo.TopChat(c.Request.Context(), chatID, queryLimit(c, leaderboardLimit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": top,
		"metric":      "guesses",
		"chat_id":     chatID,
	})
}

func queryLimit(c *gin.Context, max int) int {
	limit := max
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < max {
			limit = n
		}
	}
	return limit
}
