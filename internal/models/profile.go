package models

import (
	"time"
)

// Profile is the per-user economy aggregate: spendable balance, lifetime
// earnings and experience. Balances only move through the ledger.
type Profile struct {
	UserID           uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username         string    `gorm:"size:100" json:"username"` // display cache
	Coins            int64     `gorm:"not null;default:0;index" json:"coins"`
	TotalCoinsEarned int64     `gorm:"not null;default:0" json:"total_coins_earned"`
	ExperiencePoints int64     `gorm:"not null;default:0" json:"experience_points"`
	Level            int       `gorm:"not null;default:1" json:"level"`
	IsDisabled       bool      `gorm:"default:false" json:"is_disabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for Profile model
func (Profile) TableName() string {
	return "user_profiles"
}
