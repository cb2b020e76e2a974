package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"community-ledger/internal/services"
)

const defaultLeaderboardDays = 7

type LeaderboardHandler struct {
	leaderboards *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboards *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboards: leaderboards}
}

// GetRichest ranks users by balance
func (h *LeaderboardHandler) GetRichest(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.leaderboards.Richest(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

// GetMostActive ranks users by public posts over ?days=
func (h *LeaderboardHandler) GetMostActive(c *gin.Context) {
	window, limit, ok := windowParams(c)
	if !ok {
		return
	}

	entries, err := h.leaderboards.MostActive(c.Request.Context(), window, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

// GetMostLiked ranks authors by likes received over ?days=
func (h *LeaderboardHandler) GetMostLiked(c *gin.Context) {
	window, limit, ok := windowParams(c)
	if !ok {
		return
	}

	entries, err := h.leaderboards.MostLiked(c.Request.Context(), window, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

func windowParams(c *gin.Context) (time.Duration, int, bool) {
	_, window, err := queryDays(c, defaultLeaderboardDays)
	if err != nil {
		respondError(c, err)
		return 0, 0, false
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return 0, 0, false
	}
	return window, limit, true
}
