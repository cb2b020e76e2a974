package services

import (
	"errors"

	"community-ledger/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidAmount     = errors.New("transaction amount must not be zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyClaimed    = errors.New("daily reward already claimed")
	ErrInvalidInput      = models.ErrInvalidInput
)
