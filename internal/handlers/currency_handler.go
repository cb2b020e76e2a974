package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"community-ledger/internal/models"
	"community-ledger/internal/services"
)

type CurrencyHandler struct {
	ledger *services.LedgerService
}

func NewCurrencyHandler(ledger *services.LedgerService) *CurrencyHandler {
	return &CurrencyHandler{ledger: ledger}
}

type adminTransactionRequest struct {
	UserID          uint    `json:"user_id" binding:"required"`
	Amount          int64   `json:"amount"`
	TransactionType string  `json:"transaction_type" binding:"required"`
	Description     string  `json:"description"`
	ReferenceID     *string `json:"reference_id"`
}

// GetBalance returns the caller's coins, XP and level
func (h *CurrencyHandler) GetBalance(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": balance})
}

// GetTransactions pages through the caller's ledger
func (h *CurrencyHandler) GetTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, skip, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	txs, total, err := h.ledger.ListTransactions(c.Request.Context(), userID, limit, skip)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    txs,
		"total":   total,
	})
}

// ClaimDailyLogin credits the daily login bonus
func (h *CurrencyHandler) ClaimDailyLogin(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	tx, err := h.ledger.ClaimDailyLogin(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tx})
}

// RecordTransaction records an explicit credit or debit for any user (admin only).
// Payouts recorded here bypass the engagement cap.
func (h *CurrencyHandler) RecordTransaction(c *gin.Context) {
	var req adminTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.ledger.RecordTransaction(c.Request.Context(), services.TransactionRequest{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Type:        models.TransactionType(req.TransactionType),
		Description: req.Description,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": tx})
}
