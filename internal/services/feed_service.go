package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	gobreaker "github.com/sony/gobreaker/v2"
	"gorm.io/gorm"

	"community-ledger/internal/logging"
	"community-ledger/internal/metrics"
	"community-ledger/internal/models"
	"community-ledger/internal/repository"
)

const (
	// TrendingLimit caps the trending view
	TrendingLimit = 20

	DefaultTrendingWindow = 24 * time.Hour

	statsTopN         = 5
	statsActiveWindow = 7 * 24 * time.Hour
)

// EngagementRewarder credits the author of an engaged-with activity
type EngagementRewarder interface {
	RewardForEngagement(ctx context.Context, userID uint, engagementType EngagementType, referenceID *string) (RewardOutcome, error)
}

// LikeAction is the effect of a like toggle
type LikeAction string

const (
	LikeActionLiked   LikeAction = "liked"
	LikeActionUnliked LikeAction = "unliked"
)

// LikeResult is returned by ToggleLike
type LikeResult struct {
	Action    LikeAction `json:"action"`
	LikeCount int64      `json:"like_count"`
	IsLiked   bool       `json:"is_liked"`
}

// ActivityView is an activity annotated for a given requester
type ActivityView struct {
	models.ActivityFeed
	LikeCount int64 `json:"like_count"`
	IsLiked   bool  `json:"is_liked"`
}

// FeedQuery selects a page of the public feed
type FeedQuery struct {
	Type        *models.ActivityType
	RequesterID uint
	Limit       int
	Skip        int
}

// FeedStats summarises public feed activity
type FeedStats struct {
	TotalActivities int64                  `json:"total_activities"`
	Last24h         int64                  `json:"last_24h"`
	TotalLikes      int64                  `json:"total_likes"`
	AverageLikes    decimal.Decimal        `json:"average_likes"`
	PopularTypes    []repository.TypeCount `json:"popular_types"`
	MostActiveUsers []repository.UserCount `json:"most_active_users"`
}

// FeedOptions configures the FeedService
type FeedOptions struct {
	TrendingWindow time.Duration
	Now            func() time.Time
}

// FeedService serves the activity feed and its likes
type FeedService struct {
	repo           *repository.Repository
	rewarder       EngagementRewarder
	breaker        *gobreaker.CircuitBreaker[RewardOutcome]
	trendingWindow time.Duration
	now            func() time.Time
	log            zerolog.Logger
}

// NewFeedService creates a new FeedService
func NewFeedService(repo *repository.Repository, opts FeedOptions) *FeedService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TrendingWindow <= 0 {
		opts.TrendingWindow = DefaultTrendingWindow
	}

	s := &FeedService{
		repo:           repo,
		trendingWindow: opts.TrendingWindow,
		now:            opts.Now,
		log:            logging.WithComponent("feed"),
	}
	s.breaker = gobreaker.NewCircuitBreaker[RewardOutcome](gobreaker.Settings{
		Name:        "engagement-rewards",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
	return s
}

// SetRewarder wires the engagement rewarder. Without one, likes never reward.
func (s *FeedService) SetRewarder(r EngagementRewarder) {
	s.rewarder = r
}

// CreateActivity validates and stores a new activity
func (s *FeedService) CreateActivity(ctx context.Context, p models.NewActivityParams) (*models.ActivityFeed, error) {
	activity, err := models.NewActivity(p)
	if err != nil {
		return nil, err
	}
	activity.CreatedAt = s.now().UTC()

	if err := s.repo.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	metrics.ActivitiesCreated.WithLabelValues(string(activity.ActivityType)).Inc()
	s.log.Debug().
		Str("activity_id", activity.ID.String()).
		Uint("user_id", activity.UserID).
		Str("type", string(activity.ActivityType)).
		Msg("Activity created")
	return activity, nil
}

// CreateAutomaticActivity posts a public activity using the fixed template of its type
func (s *FeedService) CreateAutomaticActivity(ctx context.Context, userID uint, userName string, activityType models.ActivityType, details AutoActivityDetails) (*models.ActivityFeed, error) {
	title, description, err := renderActivity(activityType, details)
	if err != nil {
		return nil, err
	}
	return s.CreateActivity(ctx, models.NewActivityParams{
		UserID:       userID,
		UserName:     userName,
		ActivityType: activityType,
		Title:        title,
		Description:  description,
		ReferenceID:  details.ReferenceID,
		IsPublic:     true,
	})
}

// GetFeed returns a page of public activities, newest first
func (s *FeedService) GetFeed(ctx context.Context, q FeedQuery) ([]ActivityView, error) {
	if q.Type != nil && !q.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, *q.Type)
	}
	limit, skip := normalizePage(q.Limit, q.Skip)

	activities, err := s.repo.ListPublicActivities(ctx, q.Type, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return s.annotate(ctx, activities, q.RequesterID, nil)
}

// GetMyFeed returns a page of the user's own activities, private ones included
func (s *FeedService) GetMyFeed(ctx context.Context, userID uint, limit, skip int) ([]ActivityView, error) {
	limit, skip = normalizePage(limit, skip)

	activities, err := s.repo.ListUserActivities(ctx, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return s.annotate(ctx, activities, userID, nil)
}

// ToggleLike adds or removes requesterID from the activity's likes. A new
// like on someone else's public activity rewards its author once the like
// is committed; reward failures never fail the toggle.
func (s *FeedService) ToggleLike(ctx context.Context, activityID uuid.UUID, requesterID uint) (*LikeResult, error) {
	var (
		activity *models.ActivityFeed
		result   LikeResult
		newLike  bool
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		activity, err = tx.GetActivityForUpdate(ctx, activityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
			}
			return err
		}

		removed, err := tx.DeleteLike(ctx, activityID, requesterID)
		if err != nil {
			return err
		}
		if removed > 0 {
			result.Action = LikeActionUnliked
		} else {
			like := &models.ActivityLike{ActivityID: activityID, UserID: requesterID, CreatedAt: s.now().UTC()}
			inserted, err := tx.CreateLike(ctx, like)
			if err != nil {
				return err
			}
			// a concurrent toggle may have inserted it first
			newLike = inserted
			result.Action = LikeActionLiked
			result.IsLiked = true
		}

		result.LikeCount, err = tx.CountLikes(ctx, activityID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}

	metrics.LikeToggles.WithLabelValues(string(result.Action)).Inc()

	if newLike && activity.IsPublic && activity.UserID != requesterID {
		s.rewardAuthor(ctx, activity)
	}
	return &result, nil
}

func (s *FeedService) rewardAuthor(ctx context.Context, activity *models.ActivityFeed) {
	if s.rewarder == nil {
		return
	}

	ref := activity.ID.String()
	outcome, err := s.breaker.Execute(func() (RewardOutcome, error) {
		return s.rewarder.RewardForEngagement(ctx, activity.UserID, EngagementReceivedLike, &ref)
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Uint("author_id", activity.UserID).
			Str("activity_id", ref).
			Msg("Engagement reward failed")
		return
	}
	logging.Ctx(ctx).Debug().
		Uint("author_id", activity.UserID).
		Str("outcome", string(outcome)).
		Msg("Engagement reward processed")
}

// Trending ranks public activities created within window by like count.
// A non-positive window falls back to the configured one.
func (s *FeedService) Trending(ctx context.Context, window time.Duration, requesterID uint) ([]ActivityView, error) {
	if window <= 0 {
		window = s.trendingWindow
	}
	since := s.now().UTC().Add(-window)

	ranked, err := s.repo.MostLikedSince(ctx, since, TrendingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank activities: %w", err)
	}

	ids := make([]uuid.UUID, len(ranked))
	counts := make(map[uuid.UUID]int64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ActivityID
		counts[r.ActivityID] = r.LikeCount
	}

	loaded, err := s.repo.GetActivitiesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	byID := make(map[uuid.UUID]models.ActivityFeed, len(loaded))
	for _, a := range loaded {
		byID[a.ID] = a
	}

	// keep the ranking order; rows deleted in between are dropped
	ordered := make([]models.ActivityFeed, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return s.annotate(ctx, ordered, requesterID, counts)
}

// DeleteActivity removes an activity. Only its author or an admin may do so.
func (s *FeedService) DeleteActivity(ctx context.Context, activityID uuid.UUID, requesterID uint, isAdmin bool) error {
	activity, err := s.repo.GetActivity(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
		}
		return fmt.Errorf("failed to load activity: %w", err)
	}

	if activity.UserID != requesterID && !isAdmin {
		return ErrForbidden
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		_, err := tx.DeleteActivity(ctx, activityID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}

	s.log.Info().
		Str("activity_id", activityID.String()).
		Uint("requester_id", requesterID).
		Bool("admin", isAdmin).
		Msg("Activity deleted")
	return nil
}

// Cleanup purges every activity older than olderThan together with its likes
func (s *FeedService) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: retention age must be positive", ErrInvalidInput)
	}
	cutoff := s.now().UTC().Add(-olderThan)

	var deleted int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		deleted, err = tx.DeleteActivitiesBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge activities: %w", err)
	}

	metrics.ActivitiesPurged.Add(float64(deleted))
	s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Activity cleanup finished")
	return deleted, nil
}

// GetStats aggregates the public feed
func (s *FeedService) GetStats(ctx context.Context) (*FeedStats, error) {
	now := s.now().UTC()
	dayAgo := now.Add(-24 * time.Hour)

	total, err := s.repo.CountPublicActivities(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}
	recent, err := s.repo.CountPublicActivities(ctx, &dayAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent activities: %w", err)
	}
	likes, err := s.repo.CountPublicLikes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	types, err := s.repo.PopularTypes(ctx, statsTopN)
	if err != nil {
		return nil, fmt.Errorf("failed to rank activity types: %w", err)
	}
	active, err := s.repo.MostActiveUsers(ctx, now.Add(-statsActiveWindow), statsTopN)
	if err != nil {
		return nil, fmt.Errorf("failed to rank active users: %w", err)
	}

	average := decimal.Zero
	if total > 0 {
		average = decimal.NewFromInt(likes).Div(decimal.NewFromInt(total)).Round(2)
	}

	return &FeedStats{
		TotalActivities: total,
		Last24h:         recent,
		TotalLikes:      likes,
		AverageLikes:    average,
		PopularTypes:    types,
		MostActiveUsers: active,
	}, nil
}

// annotate attaches like counts and the requester's like state. Known
// counts may be passed in to skip the count query.
func (s *FeedService) annotate(ctx context.Context, activities []models.ActivityFeed, requesterID uint, counts map[uuid.UUID]int64) ([]ActivityView, error) {
	views := make([]ActivityView, 0, len(activities))
	if len(activities) == 0 {
		return views, nil
	}

	ids := make([]uuid.UUID, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}

	var err error
	if counts == nil {
		counts, err = s.repo.LikeCounts(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to count likes: %w", err)
		}
	}
	liked, err := s.repo.LikedBy(ctx, ids, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}

	for _, a := range activities {
		views = append(views, ActivityView{
			ActivityFeed: a,
			LikeCount:    counts[a.ID],
			IsLiked:      liked[a.ID],
		})
	}
	return views, nil
}
