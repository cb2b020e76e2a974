package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"community-ledger/internal/models"
)

type failingRewarder struct {
	calls int
}

func (f *failingRewarder) RewardForEngagement(ctx context.Context, userID uint, engagementType EngagementType, referenceID *string) (RewardOutcome, error) {
	f.calls++
	return "", errors.New("ledger unavailable")
}

func (e *testEnv) post(t *testing.T, userID uint, name string, activityType models.ActivityType, public bool) *models.ActivityFeed {
	t.Helper()
	a, err := e.feed.CreateActivity(context.Background(), models.NewActivityParams{
		UserID:       userID,
		UserName:     name,
		ActivityType: activityType,
		Title:        "Nouvelle activité",
		IsPublic:     public,
	})
	if err != nil {
		t.Fatalf("CreateActivity failed: %v", err)
	}
	return a
}

func TestLikeRewardsAuthorOnce(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	env.profile(t, 1, "alice")
	env.profile(t, 2, "bob")

	activity := env.post(t, 1, "alice", models.ActivityTeamJoin, true)

	res, err := env.feed.ToggleLike(ctx, activity.ID, 2)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if res.Action != LikeActionLiked || res.LikeCount != 1 || !res.IsLiked {
		t.Fatalf("unexpected like result: %+v", res)
	}

	a := env.balance(t, 1)
	if a.Coins != 101 || a.ExperiencePoints != 1 || a.Level != 1 {
		t.Errorf("expected author at 101 coins, 1 XP, level 1; got %d, %d, %d", a.Coins, a.ExperiencePoints, a.Level)
	}
	if b := env.balance(t, 2); b.Coins != 100 {
		t.Errorf("liker must not be rewarded, has %d coins", b.Coins)
	}

	var tx models.CoinTransaction
	if err := env.db.Where("user_id = ? AND transaction_type = ?", 1, models.TransactionActivityEngagement).First(&tx).Error; err != nil {
		t.Fatalf("expected an engagement transaction: %v", err)
	}
	if tx.Amount != 1 || tx.ReferenceID == nil || *tx.ReferenceID != activity.ID.String() {
		t.Errorf("unexpected engagement transaction: %+v", tx)
	}

	res, err = env.feed.ToggleLike(ctx, activity.ID, 2)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if res.Action != LikeActionUnliked || res.LikeCount != 0 || res.IsLiked {
		t.Fatalf("unexpected unlike result: %+v", res)
	}
	if n := env.countTransactions(t, 1, models.TransactionActivityEngagement); n != 1 {
		t.Errorf("unlike must not touch the ledger, got %d engagement rows", n)
	}
	if a := env.balance(t, 1); a.Coins != 101 {
		t.Errorf("reward must not be revoked on unlike, balance %d", a.Coins)
	}
}

func TestToggleLikeParity(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	activity := env.post(t, 1, "alice", models.ActivityComment, true)

	var res *LikeResult
	for i := 1; i <= 5; i++ {
		var err error
		res, err = env.feed.ToggleLike(ctx, activity.ID, 2)
		if err != nil {
			t.Fatalf("toggle %d failed: %v", i, err)
		}
		wantLiked := i%2 == 1
		if res.IsLiked != wantLiked {
			t.Fatalf("toggle %d: expected liked=%v, got %+v", i, wantLiked, res)
		}
	}
	if res.LikeCount != 1 {
		t.Errorf("expected 1 like after an odd number of toggles, got %d", res.LikeCount)
	}
}

func TestConcurrentTogglesStayConsistent(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	env.profile(t, 1, "alice")
	activity := env.post(t, 1, "alice", models.ActivityComment, true)

	const toggles = 8
	var wg sync.WaitGroup
	errs := make(chan error, toggles)
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.feed.ToggleLike(ctx, activity.ID, 2); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent toggle failed: %v", err)
	}

	count, err := env.repo.CountLikes(ctx, activity.ID)
	if err != nil {
		t.Fatalf("CountLikes failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no like after an even number of toggles, got %d", count)
	}
}

func TestCreateLikeIgnoresDuplicates(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	activity := env.post(t, 1, "alice", models.ActivityComment, true)

	like := func() *models.ActivityLike {
		return &models.ActivityLike{ActivityID: activity.ID, UserID: 2, CreatedAt: env.clock.Now()}
	}
	inserted, err := env.repo.CreateLike(ctx, like())
	if err != nil || !inserted {
		t.Fatalf("first like: expected inserted, got %v, %v", inserted, err)
	}
	inserted, err = env.repo.CreateLike(ctx, like())
	if err != nil {
		t.Fatalf("duplicate like must not fail: %v", err)
	}
	if inserted {
		t.Error("duplicate like reported as inserted")
	}
	if count, _ := env.repo.CountLikes(ctx, activity.ID); count != 1 {
		t.Errorf("expected 1 like, got %d", count)
	}
}

func TestSelfLikeIsNeverRewarded(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	env.profile(t, 1, "alice")
	activity := env.post(t, 1, "alice", models.ActivityAchievement, true)

	res, err := env.feed.ToggleLike(ctx, activity.ID, 1)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if res.Action != LikeActionLiked {
		t.Fatalf("self like should still toggle, got %+v", res)
	}
	if n := env.countTransactions(t, 1, models.TransactionActivityEngagement); n != 0 {
		t.Errorf("self like created %d engagement transactions", n)
	}
}

func TestPrivateActivities(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	env.profile(t, 1, "alice")

	private := env.post(t, 1, "alice", models.ActivityPurchase, false)
	env.clock.Advance(time.Second)
	public := env.post(t, 1, "alice", models.ActivityPurchase, true)

	feed, err := env.feed.GetFeed(ctx, FeedQuery{RequesterID: 2})
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(feed) != 1 || feed[0].ID != public.ID {
		t.Errorf("public feed should only hold the public entry, got %d items", len(feed))
	}

	mine, err := env.feed.GetMyFeed(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("GetMyFeed failed: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != public.ID || mine[1].ID != private.ID {
		t.Errorf("my feed should hold both entries newest first, got %d items", len(mine))
	}

	if _, err := env.feed.ToggleLike(ctx, private.ID, 2); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if n := env.countTransactions(t, 1, models.TransactionActivityEngagement); n != 0 {
		t.Errorf("likes on private entries must not reward, got %d rows", n)
	}
}

func TestRewardFailureDoesNotFailToggle(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	rewarder := &failingRewarder{}
	env.feed.SetRewarder(rewarder)

	activity := env.post(t, 1, "alice", models.ActivityTournamentWin, true)
	res, err := env.feed.ToggleLike(ctx, activity.ID, 2)
	if err != nil {
		t.Fatalf("reward failure leaked into ToggleLike: %v", err)
	}
	if res.Action != LikeActionLiked || res.LikeCount != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if rewarder.calls != 1 {
		t.Errorf("expected one reward attempt, got %d", rewarder.calls)
	}
}

func TestToggleLikeMissingActivity(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	if _, err := env.feed.ToggleLike(context.Background(), uuid.New(), 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetFeedFiltersAndAnnotates(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()

	win := env.post(t, 1, "alice", models.ActivityTournamentWin, true)
	env.clock.Advance(time.Second)
	env.post(t, 2, "bob", models.ActivityTeamJoin, true)

	if _, err := env.feed.ToggleLike(ctx, win.ID, 3); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}

	kind := models.ActivityTournamentWin
	feed, err := env.feed.GetFeed(ctx, FeedQuery{Type: &kind, RequesterID: 3})
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(feed) != 1 || feed[0].ID != win.ID {
		t.Fatalf("expected only the tournament win, got %d items", len(feed))
	}
	if feed[0].LikeCount != 1 || !feed[0].IsLiked {
		t.Errorf("expected like annotations, got count %d liked %v", feed[0].LikeCount, feed[0].IsLiked)
	}

	all, err := env.feed.GetFeed(ctx, FeedQuery{RequesterID: 1, Limit: 1})
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(all) != 1 || all[0].ActivityType != models.ActivityTeamJoin {
		t.Errorf("expected newest entry first with limit 1, got %+v", all)
	}

	bogus := models.ActivityType("speedrun")
	if _, err := env.feed.GetFeed(ctx, FeedQuery{Type: &bogus}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestCreateActivityValidation(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()

	_, err := env.feed.CreateActivity(ctx, models.NewActivityParams{UserID: 1, ActivityType: "speedrun", Title: "x"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown type, got %v", err)
	}
	_, err = env.feed.CreateActivity(ctx, models.NewActivityParams{UserID: 1, ActivityType: models.ActivityComment, Title: "   "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank title, got %v", err)
	}
}

func TestCreateAutomaticActivity(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()
	ref := "tournament-7"

	a, err := env.feed.CreateAutomaticActivity(ctx, 1, "alice", models.ActivityTournamentWin, AutoActivityDetails{
		ReferenceID: &ref,
		Name:        "Coupe CS2",
	})
	if err != nil {
		t.Fatalf("CreateAutomaticActivity failed: %v", err)
	}
	if !a.IsPublic || a.Description != "A remporté le tournoi Coupe CS2" {
		t.Errorf("unexpected automatic activity: %+v", a)
	}
	if a.ReferenceID == nil || *a.ReferenceID != ref {
		t.Errorf("expected reference %q, got %v", ref, a.ReferenceID)
	}

	for _, activityType := range models.ActivityTypes {
		if _, err := env.feed.CreateAutomaticActivity(ctx, 1, "alice", activityType, AutoActivityDetails{Name: "x", Level: 3, Amount: 5}); err != nil {
			t.Errorf("template for %s failed: %v", activityType, err)
		}
	}
}

func TestDeleteActivityAuthorization(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()

	first := env.post(t, 1, "alice", models.ActivityComment, true)
	second := env.post(t, 1, "alice", models.ActivityComment, true)

	if err := env.feed.DeleteActivity(ctx, first.ID, 3, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := env.repo.GetActivity(ctx, first.ID); err != nil {
		t.Fatalf("forbidden delete removed the activity: %v", err)
	}

	if err := env.feed.DeleteActivity(ctx, first.ID, 1, false); err != nil {
		t.Fatalf("author delete failed: %v", err)
	}
	if err := env.feed.DeleteActivity(ctx, second.ID, 3, true); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}

	mine, err := env.feed.GetMyFeed(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("GetMyFeed failed: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("deleted activities still listed: %d", len(mine))
	}

	if err := env.feed.DeleteActivity(ctx, first.ID, 1, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCleanupRemovesOldActivitiesAndLikes(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()

	old := env.post(t, 1, "alice", models.ActivityComment, true)
	if _, err := env.feed.ToggleLike(ctx, old.ID, 2); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}

	env.clock.Advance(31 * 24 * time.Hour)
	fresh := env.post(t, 1, "alice", models.ActivityComment, true)

	deleted, err := env.feed.Cleanup(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 purged activity, got %d", deleted)
	}

	var likes int64
	env.db.Model(&models.ActivityLike{}).Where("activity_id = ?", old.ID).Count(&likes)
	if likes != 0 {
		t.Errorf("likes of purged activity survived: %d", likes)
	}
	if _, err := env.repo.GetActivity(ctx, fresh.ID); err != nil {
		t.Errorf("fresh activity was purged: %v", err)
	}

	if _, err := env.feed.Cleanup(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero age, got %v", err)
	}
}

func TestTrending(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()

	stale := env.post(t, 1, "alice", models.ActivityComment, true)
	for _, liker := range []uint{2, 3, 4} {
		env.feed.ToggleLike(ctx, stale.ID, liker)
	}

	env.clock.Advance(48 * time.Hour)
	quiet := env.post(t, 1, "alice", models.ActivityComment, true)
	env.clock.Advance(time.Minute)
	popular := env.post(t, 2, "bob", models.ActivityTeamCreate, true)
	hidden := env.post(t, 3, "carol", models.ActivityPurchase, false)

	for _, liker := range []uint{1, 3} {
		env.feed.ToggleLike(ctx, popular.ID, liker)
	}
	env.feed.ToggleLike(ctx, quiet.ID, 2)
	for _, liker := range []uint{1, 2, 4, 5} {
		env.feed.ToggleLike(ctx, hidden.ID, liker)
	}

	trending, err := env.feed.Trending(ctx, 0, 3)
	if err != nil {
		t.Fatalf("Trending failed: %v", err)
	}
	if len(trending) != 2 {
		t.Fatalf("expected 2 trending entries, got %d", len(trending))
	}
	if trending[0].ID != popular.ID || trending[0].LikeCount != 2 || !trending[0].IsLiked {
		t.Errorf("unexpected leader: %+v", trending[0])
	}
	if trending[1].ID != quiet.ID || trending[1].LikeCount != 1 || trending[1].IsLiked {
		t.Errorf("unexpected runner-up: %+v", trending[1])
	}
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t, DefaultEngagementDailyCap)
	ctx := context.Background()

	a := env.post(t, 1, "alice", models.ActivityComment, true)
	env.post(t, 1, "alice", models.ActivityComment, true)
	env.post(t, 2, "bob", models.ActivityTeamJoin, true)
	env.post(t, 2, "bob", models.ActivityTeamJoin, false)
	env.feed.ToggleLike(ctx, a.ID, 2)

	env.clock.Advance(30 * time.Hour)
	env.post(t, 3, "carol", models.ActivityBetWon, true)

	stats, err := env.feed.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalActivities != 4 || stats.Last24h != 1 || stats.TotalLikes != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if got := stats.AverageLikes.String(); got != "0.25" {
		t.Errorf("expected average 0.25, got %s", got)
	}
	if len(stats.PopularTypes) == 0 || stats.PopularTypes[0].ActivityType != models.ActivityComment {
		t.Errorf("expected comment as most popular type, got %+v", stats.PopularTypes)
	}
	if len(stats.MostActiveUsers) == 0 || stats.MostActiveUsers[0].UserID != 1 || stats.MostActiveUsers[0].Count != 2 {
		t.Errorf("expected alice as most active, got %+v", stats.MostActiveUsers)
	}
}
