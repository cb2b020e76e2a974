package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"community-ledger/internal/auth"
	"community-ledger/internal/logging"
	"community-ledger/internal/services"
)

// respondError maps service errors to HTTP statuses. Storage failures are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrInsufficientFunds), errors.Is(err, services.ErrAlreadyClaimed):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// requireUser returns the authenticated user ID or writes a 401
func requireUser(c *gin.Context) (uint, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", services.ErrInvalidInput, name)
	}
	return v, nil
}

// maxQueryDays bounds ?days= so the converted duration cannot overflow
const maxQueryDays = 3650

// queryDays reads an optional ?days= parameter as a duration
func queryDays(c *gin.Context, fallback int) (int, time.Duration, error) {
	days, err := queryInt(c, "days", fallback)
	if err != nil {
		return 0, 0, err
	}
	if days > maxQueryDays {
		return 0, 0, fmt.Errorf("%w: days must be at most %d", services.ErrInvalidInput, maxQueryDays)
	}
	return days, time.Duration(days) * 24 * time.Hour, nil
}

// pageParams reads limit and skip. Clamping happens in the services.
func pageParams(c *gin.Context) (limit, skip int, err error) {
	if limit, err = queryInt(c, "limit", 0); err != nil {
		return 0, 0, err
	}
	if skip, err = queryInt(c, "skip", 0); err != nil {
		return 0, 0, err
	}
	return limit, skip, nil
}
