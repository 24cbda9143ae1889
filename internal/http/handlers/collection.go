package handlers

import (
	"net/http"
	"strconv"

	"character_catcher/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetCollection returns a user's collection grouped by character, optionally
// filtered by rarity tier.
func (h *Handler) GetCollection(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var rarity domain.Rarity // zero means all tiers
	if v := c.Query("rarity"); v != "" {
		rarity = domain.ParseRarity(v)
	}

	items, err := h.CollectionRepo.ListByUser(c.Request.Context(), userID, rarity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load collection"})
		return
	}

	total, err := h.CollectionRepo.CountByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load collection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"total":   total,
		"items":   items,
	})
}

// GetTransactions returns a user's recent ledger entries, newest first.
func (h *Handler) GetTransactions(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	transactions, err := h.TxRepo.GetByUserID(c.Request.Context(), userID, queryLimit(c, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
