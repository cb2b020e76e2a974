package services

import (
	"context"
	"testing"
	"time"

	"community-ledger/internal/models"
)

func TestMostActiveAndMostLiked(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()

	// outside the window
	old := env.post(t, 3, "carol", models.ActivityComment, true)
	env.feed.ToggleLike(ctx, old.ID, 1)
	env.feed.ToggleLike(ctx, old.ID, 2)
	env.clock.Advance(10 * 24 * time.Hour)

	a1 := env.post(t, 1, "alice", models.ActivityComment, true)
	env.post(t, 1, "alice", models.ActivityComment, true)
	env.post(t, 1, "alice", models.ActivityComment, false)
	b1 := env.post(t, 2, "bob", models.ActivityTeamJoin, true)

	env.feed.ToggleLike(ctx, a1.ID, 1) // self like, not counted
	env.feed.ToggleLike(ctx, a1.ID, 2)
	env.feed.ToggleLike(ctx, b1.ID, 1)
	env.feed.ToggleLike(ctx, b1.ID, 3)

	active, err := env.leaderboards.MostActive(ctx, 7*24*time.Hour, 10)
	if err != nil {
		t.Fatalf("MostActive failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active users, got %+v", active)
	}
	if active[0].UserID != 1 || active[0].Score != 2 || active[0].Rank != 1 {
		t.Errorf("expected alice first with 2 public posts, got %+v", active[0])
	}
	if active[1].UserID != 2 || active[1].UserName != "bob" {
		t.Errorf("expected bob second, got %+v", active[1])
	}

	liked, err := env.leaderboards.MostLiked(ctx, 0, 10)
	if err != nil {
		t.Fatalf("MostLiked failed: %v", err)
	}
	if len(liked) != 2 {
		t.Fatalf("expected 2 liked users, got %+v", liked)
	}
	if liked[0].UserID != 2 || liked[0].Score != 2 {
		t.Errorf("expected bob first with 2 likes, got %+v", liked[0])
	}
	if liked[1].UserID != 1 || liked[1].Score != 1 {
		t.Errorf("expected alice second with 1 like, got %+v", liked[1])
	}
}

func TestRichestDelegatesToLedger(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	env.profile(t, 1, "alice")
	env.profile(t, 2, "bob")
	mustRecord(t, env, TransactionRequest{UserID: 2, Amount: 5, Type: models.TransactionComment})

	entries, err := env.leaderboards.Richest(context.Background(), 1)
	if err != nil {
		t.Fatalf("Richest failed: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != 2 || entries[0].Coins != 105 {
		t.Errorf("unexpected richest entries: %+v", entries)
	}
}
