package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"community-ledger/internal/validation"
)

// TransactionType tags a coin movement
type TransactionType string

const (
	TransactionRegistrationBonus  TransactionType = "registration_bonus"
	TransactionDailyLogin         TransactionType = "daily_login"
	TransactionTournamentWin      TransactionType = "tournament_win"
	TransactionTournamentEntry    TransactionType = "tournament_entry"
	TransactionPurchase           TransactionType = "purchase"
	TransactionComment            TransactionType = "comment"
	TransactionActivityEngagement TransactionType = "activity_engagement"
	TransactionBetPlaced          TransactionType = "bet_placed"
	TransactionBetWon             TransactionType = "bet_won"
	TransactionAchievementReward  TransactionType = "achievement_reward"
	TransactionAdminAdjustment    TransactionType = "admin_adjustment"
	TransactionRefund             TransactionType = "refund"
)

var transactionTypes = map[TransactionType]bool{
	TransactionRegistrationBonus:  true,
	TransactionDailyLogin:         true,
	TransactionTournamentWin:      true,
	TransactionTournamentEntry:    true,
	TransactionPurchase:           true,
	TransactionComment:            true,
	TransactionActivityEngagement: true,
	TransactionBetPlaced:          true,
	TransactionBetWon:             true,
	TransactionAchievementReward:  true,
	TransactionAdminAdjustment:    true,
	TransactionRefund:             true,
}

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	return transactionTypes[t]
}

func init() {
	validation.Register("transaction_type", func(s string) bool {
		return TransactionType(s).Valid()
	})
}

// CoinTransaction is one immutable ledger row. Positive amounts are
// credits, negative amounts are debits.
type CoinTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index:idx_coin_tx_user_created,priority:1" json:"user_id" validate:"required"`
	Amount          int64           `gorm:"not null" json:"amount" validate:"ne=0"`
	TransactionType TransactionType `gorm:"size:50;not null;index" json:"transaction_type" validate:"transaction_type"`
	Description     string          `gorm:"type:text" json:"description" validate:"max=500"`
	ReferenceID     *string         `gorm:"size:100" json:"reference_id,omitempty"`
	CreatedAt       time.Time       `gorm:"index:idx_coin_tx_user_created,priority:2;index" json:"created_at"`
}

// TableName specifies the table name for CoinTransaction model
func (CoinTransaction) TableName() string {
	return "coin_transactions"
}

// BeforeCreate assigns an ID when the caller did not
func (t *CoinTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// NewCoinTransaction builds a validated, not yet persisted transaction
func NewCoinTransaction(userID uint, amount int64, txType TransactionType, description string, referenceID *string) (*CoinTransaction, error) {
	t := &CoinTransaction{
		ID:              uuid.New(),
		UserID:          userID,
		Amount:          amount,
		TransactionType: txType,
		Description:     description,
		ReferenceID:     normalizeReference(referenceID),
	}
	if err := validation.Struct(t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return t, nil
}
