package services

import (
	"context"
	"fmt"
	"time"

	"community-ledger/internal/repository"
)

const DefaultLeaderboardWindow = 7 * 24 * time.Hour

// RankedUser is one row of an activity based leaderboard
type RankedUser struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	UserName string `json:"user_name"`
	Score    int64  `json:"score"`
}

// LeaderboardService builds ranked views over the ledger and the feed.
// Every read is a live query.
type LeaderboardService struct {
	repo   *repository.Repository
	ledger *LedgerService
	now    func() time.Time
}

func NewLeaderboardService(repo *repository.Repository, ledger *LedgerService, now func() time.Time) *LeaderboardService {
	if now == nil {
		now = time.Now
	}
	return &LeaderboardService{repo: repo, ledger: ledger, now: now}
}

// Richest ranks users by current balance
func (s *LeaderboardService) Richest(ctx context.Context, limit int) ([]RichEntry, error) {
	return s.ledger.LeaderboardRichest(ctx, limit)
}

// MostActive ranks users by public activities posted within window
func (s *LeaderboardService) MostActive(ctx context.Context, window time.Duration, limit int) ([]RankedUser, error) {
	since, limit := s.bounds(window, limit)
	rows, err := s.repo.MostActiveUsers(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank active users: %w", err)
	}
	return rank(rows), nil
}

// MostLiked ranks authors by likes from other users on public activities
// posted within window
func (s *LeaderboardService) MostLiked(ctx context.Context, window time.Duration, limit int) ([]RankedUser, error) {
	since, limit := s.bounds(window, limit)
	rows, err := s.repo.MostLikedUsers(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank liked users: %w", err)
	}
	return rank(rows), nil
}

func (s *LeaderboardService) bounds(window time.Duration, limit int) (time.Time, int) {
	if window <= 0 {
		window = DefaultLeaderboardWindow
	}
	limit, _ = normalizePage(limit, 0)
	return s.now().UTC().Add(-window), limit
}

func rank(rows []repository.UserCount) []RankedUser {
	ranked := make([]RankedUser, len(rows))
	for i, r := range rows {
		ranked[i] = RankedUser{Rank: i + 1, UserID: r.UserID, UserName: r.UserName, Score: r.Count}
	}
	return ranked
}
