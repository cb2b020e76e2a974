package services

import (
	"context"
	"testing"
	"time"

	"community-ledger/internal/models"
)

func TestEvaluateEngagement(t *testing.T) {
	tests := []struct {
		name        string
		engagement  EngagementType
		today       int64
		cap         int
		wantOutcome RewardOutcome
		wantCoins   int64
	}{
		{"first like", EngagementReceivedLike, 0, 10, RewardApplied, 1},
		{"last slot", EngagementReceivedLike, 9, 10, RewardApplied, 1},
		{"cap reached", EngagementReceivedLike, 10, 10, RewardSkipped, 0},
		{"zero cap", EngagementReceivedLike, 0, 0, RewardSkipped, 0},
		{"unknown engagement", "received_dislike", 0, 10, RewardSkipped, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reward, outcome := EvaluateEngagement(tt.engagement, tt.today, tt.cap)
			if outcome != tt.wantOutcome {
				t.Errorf("expected %s, got %s", tt.wantOutcome, outcome)
			}
			if reward.Coins != tt.wantCoins {
				t.Errorf("expected %d coins, got %d", tt.wantCoins, reward.Coins)
			}
		})
	}
}

func TestRewardDailyCap(t *testing.T) {
	const dailyCap = 3
	env := newTestEnv(t, dailyCap)
	ctx := context.Background()
	env.profile(t, 1, "alice")

	for i := 0; i < dailyCap; i++ {
		outcome, err := env.rewards.RewardForEngagement(ctx, 1, EngagementReceivedLike, nil)
		if err != nil || outcome != RewardApplied {
			t.Fatalf("reward %d: expected applied, got %s, %v", i+1, outcome, err)
		}
	}

	outcome, err := env.rewards.RewardForEngagement(ctx, 1, EngagementReceivedLike, nil)
	if err != nil {
		t.Fatalf("capped reward must not error: %v", err)
	}
	if outcome != RewardSkipped {
		t.Errorf("expected skipped past the cap, got %s", outcome)
	}
	if n := env.countTransactions(t, 1, models.TransactionActivityEngagement); n != dailyCap {
		t.Errorf("expected %d engagement transactions, got %d", dailyCap, n)
	}

	b := env.balance(t, 1)
	if b.Coins != 100+dailyCap || b.ExperiencePoints != dailyCap {
		t.Errorf("expected %d coins and %d XP, got %d and %d", 100+dailyCap, dailyCap, b.Coins, b.ExperiencePoints)
	}

	env.clock.Advance(24 * time.Hour)
	outcome, err = env.rewards.RewardForEngagement(ctx, 1, EngagementReceivedLike, nil)
	if err != nil || outcome != RewardApplied {
		t.Errorf("expected the cap to reset the next day, got %s, %v", outcome, err)
	}
}

func TestRewardUnknownEngagementIsSkipped(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	env.profile(t, 1, "alice")

	outcome, err := env.rewards.RewardForEngagement(context.Background(), 1, "shared_post", nil)
	if err != nil || outcome != RewardSkipped {
		t.Fatalf("expected skipped, got %s, %v", outcome, err)
	}
	if n := env.countTransactions(t, 1, models.TransactionActivityEngagement); n != 0 {
		t.Errorf("expected no engagement transaction, got %d", n)
	}
}

func TestRewardLevelUpPostsActivity(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	env.profile(t, 1, "alice")
	env.db.Model(&models.Profile{}).Where("user_id = ?", 1).Update("experience_points", 99)

	if _, err := env.rewards.RewardForEngagement(ctx, 1, EngagementReceivedLike, nil); err != nil {
		t.Fatalf("RewardForEngagement failed: %v", err)
	}
	if _, err := env.rewards.RewardForEngagement(ctx, 1, EngagementReceivedLike, nil); err != nil {
		t.Fatalf("RewardForEngagement failed: %v", err)
	}

	if b := env.balance(t, 1); b.Level != 2 {
		t.Fatalf("expected level 2, got %d", b.Level)
	}

	var levelUps []models.ActivityFeed
	env.db.Where("user_id = ? AND activity_type = ?", 1, models.ActivityLevelUp).Find(&levelUps)
	if len(levelUps) != 1 {
		t.Fatalf("expected exactly one level_up activity, got %d", len(levelUps))
	}
	if levelUps[0].UserName != "alice" || !levelUps[0].IsPublic {
		t.Errorf("unexpected level_up activity: %+v", levelUps[0])
	}
	if levelUps[0].ReferenceID == nil || *levelUps[0].ReferenceID != "2" {
		t.Errorf("expected reference to level 2, got %v", levelUps[0].ReferenceID)
	}
}

func TestRewardAddExperienceAnnouncesLevelUp(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	env.profile(t, 1, "alice")

	change, err := env.rewards.AddExperience(ctx, 1, 100)
	if err != nil {
		t.Fatalf("AddExperience failed: %v", err)
	}
	if !change.Increased() || change.NewLevel != 2 {
		t.Fatalf("expected level up to 2, got %+v", change)
	}

	var levelUps int64
	env.db.Model(&models.ActivityFeed{}).Where("user_id = ? AND activity_type = ?", 1, models.ActivityLevelUp).Count(&levelUps)
	if levelUps != 1 {
		t.Errorf("expected one level_up activity, got %d", levelUps)
	}

	if _, err := env.rewards.AddExperience(ctx, 1, 5); err != nil {
		t.Fatalf("AddExperience failed: %v", err)
	}
	env.db.Model(&models.ActivityFeed{}).Where("user_id = ? AND activity_type = ?", 1, models.ActivityLevelUp).Count(&levelUps)
	if levelUps != 1 {
		t.Errorf("XP without a level change must not post, got %d level_up activities", levelUps)
	}
}
