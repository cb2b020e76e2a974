package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"community-ledger/internal/logging"
	"community-ledger/internal/metrics"
	"community-ledger/internal/models"
)

// EngagementType names an engagement event that can earn a reward
type EngagementType string

const (
	EngagementReceivedLike EngagementType = "received_like"
)

// DefaultEngagementDailyCap is the per-user daily limit on engagement rewards
const DefaultEngagementDailyCap = 10

// Reward is the coin and XP grant for one engagement event
type Reward struct {
	Coins       int64
	XP          int64
	Description string
}

// EngagementRewards is the fixed reward table
var EngagementRewards = map[EngagementType]Reward{
	EngagementReceivedLike: {Coins: 1, XP: 1, Description: "Like reçu sur une activité"},
}

// RewardOutcome is the result of a reward attempt. Skipped is not a failure.
type RewardOutcome string

const (
	RewardApplied RewardOutcome = "applied"
	RewardSkipped RewardOutcome = "skipped"
)

// ActivityRecorder emits automatic activities such as level ups
type ActivityRecorder interface {
	CreateAutomaticActivity(ctx context.Context, userID uint, userName string, activityType models.ActivityType, details AutoActivityDetails) (*models.ActivityFeed, error)
}

// EvaluateEngagement decides the reward for one event given how many
// engagement rewards the user already received today
func EvaluateEngagement(engagementType EngagementType, rewardsToday int64, dailyCap int) (Reward, RewardOutcome) {
	if rewardsToday >= int64(dailyCap) {
		return Reward{}, RewardSkipped
	}
	reward, ok := EngagementRewards[engagementType]
	if !ok {
		return Reward{}, RewardSkipped
	}
	return reward, RewardApplied
}

// RewardOptions configures the RewardService
type RewardOptions struct {
	DailyCap int
	Location *time.Location
	Now      func() time.Time
}

// RewardService applies capped engagement rewards
type RewardService struct {
	ledger   *LedgerService
	recorder ActivityRecorder
	dailyCap int
	location *time.Location
	now      func() time.Time
	locks    *userLocks
	log      zerolog.Logger
}

// NewRewardService creates a new RewardService. recorder may be nil, in
// which case level ups are not announced in the feed.
func NewRewardService(ledger *LedgerService, recorder ActivityRecorder, opts RewardOptions) *RewardService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &RewardService{
		ledger:   ledger,
		recorder: recorder,
		dailyCap: opts.DailyCap,
		location: opts.Location,
		now:      opts.Now,
		locks:    newUserLocks(),
		log:      logging.WithComponent("rewards"),
	}
}

// RewardForEngagement credits userID for one engagement event unless the
// daily cap is reached or the event type earns nothing. referenceID points
// at the causing entity and may be nil.
func (s *RewardService) RewardForEngagement(ctx context.Context, userID uint, engagementType EngagementType, referenceID *string) (RewardOutcome, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	since := startOfDay(s.now(), s.location)
	count, err := s.ledger.repo.CountTransactionsSince(ctx, userID, models.TransactionActivityEngagement, since)
	if err != nil {
		metrics.RewardOutcomes.WithLabelValues(string(engagementType), "failed").Inc()
		return "", fmt.Errorf("failed to count today's rewards: %w", err)
	}

	reward, outcome := EvaluateEngagement(engagementType, count, s.dailyCap)
	if outcome == RewardSkipped {
		metrics.RewardOutcomes.WithLabelValues(string(engagementType), string(RewardSkipped)).Inc()
		s.log.Debug().
			Uint("user_id", userID).
			Str("engagement", string(engagementType)).
			Int64("rewards_today", count).
			Msg("Engagement reward skipped")
		return RewardSkipped, nil
	}

	_, change, err := s.ledger.CreditWithExperience(ctx, TransactionRequest{
		UserID:      userID,
		Amount:      reward.Coins,
		Type:        models.TransactionActivityEngagement,
		Description: reward.Description,
		ReferenceID: referenceID,
	}, reward.XP)
	if err != nil {
		metrics.RewardOutcomes.WithLabelValues(string(engagementType), "failed").Inc()
		return "", fmt.Errorf("failed to credit engagement reward: %w", err)
	}
	metrics.RewardOutcomes.WithLabelValues(string(engagementType), string(RewardApplied)).Inc()

	if change.Increased() {
		s.announceLevelUp(ctx, userID, change.NewLevel)
	}
	return RewardApplied, nil
}

// AddExperience grants xp outside the engagement table, posting a level_up
// activity when the cached level rises
func (s *RewardService) AddExperience(ctx context.Context, userID uint, xp int64) (LevelChange, error) {
	change, err := s.ledger.grantExperience(ctx, userID, xp)
	if err != nil {
		return LevelChange{}, err
	}
	if change.Increased() {
		s.announceLevelUp(ctx, userID, change.NewLevel)
	}
	return change, nil
}

// announceLevelUp posts a level_up activity. The reward is already
// committed, so failures are only logged.
func (s *RewardService) announceLevelUp(ctx context.Context, userID uint, level int) {
	if s.recorder == nil {
		return
	}

	var username string
	if balance, err := s.ledger.GetBalance(ctx, userID); err == nil {
		username = balance.Username
	}

	ref := strconv.Itoa(level)
	_, err := s.recorder.CreateAutomaticActivity(ctx, userID, username, models.ActivityLevelUp, AutoActivityDetails{
		ReferenceID: &ref,
		Level:       level,
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Uint("user_id", userID).Int("level", level).Msg("Failed to record level up activity")
		return
	}
	s.log.Info().Uint("user_id", userID).Int("level", level).Msg("User levelled up")
}
