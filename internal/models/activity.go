package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"community-ledger/internal/validation"
)

// ErrInvalidInput marks malformed or unknown input rejected at the boundary
var ErrInvalidInput = errors.New("invalid input")

// ActivityType tags an activity feed entry
type ActivityType string

const (
	ActivityTournamentWin  ActivityType = "tournament_win"
	ActivityTournamentJoin ActivityType = "tournament_join"
	ActivityTeamJoin       ActivityType = "team_join"
	ActivityTeamCreate     ActivityType = "team_create"
	ActivityLevelUp        ActivityType = "level_up"
	ActivityAchievement    ActivityType = "achievement"
	ActivityComment        ActivityType = "comment"
	ActivityPurchase       ActivityType = "purchase"
	ActivityBetWon         ActivityType = "bet_won"
)

// ActivityTypes lists every known activity type in display order
var ActivityTypes = []ActivityType{
	ActivityTournamentWin,
	ActivityTournamentJoin,
	ActivityTeamJoin,
	ActivityTeamCreate,
	ActivityLevelUp,
	ActivityAchievement,
	ActivityComment,
	ActivityPurchase,
	ActivityBetWon,
}

// Valid reports whether t is a known activity type
func (t ActivityType) Valid() bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}

func init() {
	validation.Register("activity_type", func(s string) bool {
		return ActivityType(s).Valid()
	})
}

// ActivityFeed is a single community feed entry. Only its likes change
// after creation.
type ActivityFeed struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;index" json:"user_id" validate:"required"`
	UserName     string       `gorm:"size:100" json:"user_name" validate:"max=100"` // display cache, never used for identity
	ActivityType ActivityType `gorm:"size:50;not null;index" json:"activity_type" validate:"activity_type"`
	Title        string       `gorm:"size:200;not null" json:"title" validate:"required,max=200"`
	Description  string       `gorm:"type:text" json:"description" validate:"max=2000"`
	ReferenceID  *string      `gorm:"size:100" json:"reference_id,omitempty"`
	IsPublic     bool         `gorm:"not null;index" json:"is_public"`
	CreatedAt    time.Time    `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for ActivityFeed model
func (ActivityFeed) TableName() string {
	return "activity_feed"
}

// BeforeCreate assigns an ID when the caller did not
func (a *ActivityFeed) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ActivityLike is one member of an activity's likes set. The composite key
// makes membership idempotent.
type ActivityLike struct {
	ActivityID uuid.UUID `gorm:"type:uuid;primaryKey" json:"activity_id"`
	UserID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for ActivityLike model
func (ActivityLike) TableName() string {
	return "activity_likes"
}

// NewActivityParams carries the caller-supplied fields of a new activity
type NewActivityParams struct {
	UserID       uint
	UserName     string
	ActivityType ActivityType
	Title        string
	Description  string
	ReferenceID  *string
	IsPublic     bool
}

// NewActivity builds a validated, not yet persisted activity
func NewActivity(p NewActivityParams) (*ActivityFeed, error) {
	a := &ActivityFeed{
		ID:           uuid.New(),
		UserID:       p.UserID,
		UserName:     strings.TrimSpace(p.UserName),
		ActivityType: p.ActivityType,
		Title:        strings.TrimSpace(p.Title),
		Description:  strings.TrimSpace(p.Description),
		ReferenceID:  normalizeReference(p.ReferenceID),
		IsPublic:     p.IsPublic,
	}
	if err := validation.Struct(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return a, nil
}

func normalizeReference(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
