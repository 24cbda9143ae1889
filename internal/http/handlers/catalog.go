package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"character_catcher/internal/repository"
	"character_catcher/internal/text"

	"github.com/gin-gonic/gin"
)

// SearchCharacters finds catalog entries by name or anime.
func (h *Handler) SearchCharacters(c *gin.Context) {
	query := text.Normalize(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	characters, err := h.CharacterRepo.Search(c.Request.Context(), query, queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"characters": characters})
}

// GetCharacter returns a single catalog entry.
func (h *Handler) GetCharacter(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return
	}

	character, err := h.CharacterRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, character)
}
