package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"community-ledger/internal/auth"
	"community-ledger/internal/models"
	"community-ledger/internal/services"
)

type ActivityHandler struct {
	feed          *services.FeedService
	retentionDays int
}

func NewActivityHandler(feed *services.FeedService, retentionDays int) *ActivityHandler {
	return &ActivityHandler{feed: feed, retentionDays: retentionDays}
}

type createActivityRequest struct {
	ActivityType string  `json:"activity_type" binding:"required"`
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description"`
	ReferenceID  *string `json:"reference_id"`
	IsPublic     *bool   `json:"is_public"`
}

// GetFeed returns the public feed
func (h *ActivityHandler) GetFeed(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, skip, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	q := services.FeedQuery{RequesterID: userID, Limit: limit, Skip: skip}
	if raw := c.Query("type"); raw != "" {
		t := models.ActivityType(raw)
		q.Type = &t
	}

	items, err := h.feed.GetFeed(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

// GetMyFeed returns the caller's own activities, private ones included
func (h *ActivityHandler) GetMyFeed(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, skip, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	items, err := h.feed.GetMyFeed(c.Request.Context(), userID, limit, skip)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

// CreateActivity posts an activity for the caller
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	public := true
	if req.IsPublic != nil {
		public = *req.IsPublic
	}

	activity, err := h.feed.CreateActivity(c.Request.Context(), models.NewActivityParams{
		UserID:       userID,
		UserName:     auth.GetUsername(c),
		ActivityType: models.ActivityType(req.ActivityType),
		Title:        req.Title,
		Description:  req.Description,
		ReferenceID:  req.ReferenceID,
		IsPublic:     public,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": activity})
}

// ToggleLike likes or unlikes an activity
func (h *ActivityHandler) ToggleLike(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	activityID, ok := parseActivityID(c)
	if !ok {
		return
	}

	res, err := h.feed.ToggleLike(c.Request.Context(), activityID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Activité aimée"
	if res.Action == services.LikeActionUnliked {
		message = "J'aime retiré"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    message,
		"action":     res.Action,
		"like_count": res.LikeCount,
		"is_liked":   res.IsLiked,
	})
}

// GetTrending returns the most liked recent public activities
func (h *ActivityHandler) GetTrending(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.feed.Trending(c.Request.Context(), 0, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

// GetStats returns aggregate feed statistics
func (h *ActivityHandler) GetStats(c *gin.Context) {
	stats, err := h.feed.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// DeleteActivity removes an activity owned by the caller, or any activity for admins
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	activityID, ok := parseActivityID(c)
	if !ok {
		return
	}

	if err := h.feed.DeleteActivity(c.Request.Context(), activityID, userID, auth.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Activité supprimée"})
}

// Cleanup purges activities older than ?days= (admin only)
func (h *ActivityHandler) Cleanup(c *gin.Context) {
	days, olderThan, err := queryDays(c, h.retentionDays)
	if err != nil {
		respondError(c, err)
		return
	}
	if days < 1 {
		respondError(c, fmt.Errorf("%w: days must be at least 1", services.ErrInvalidInput))
		return
	}

	deleted, err := h.feed.Cleanup(c.Request.Context(), olderThan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"deleted_count": deleted,
		"message":       fmt.Sprintf("%d activités supprimées", deleted),
	})
}

func parseActivityID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid activity ID"})
		return uuid.Nil, false
	}
	return id, true
}
