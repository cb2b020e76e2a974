package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"community-ledger/internal/models"
)

// LikeCount pairs an activity with its like total
type LikeCount struct {
	ActivityID uuid.UUID
	LikeCount  int64
}

// TypeCount is the number of activities of one type
type TypeCount struct {
	ActivityType models.ActivityType `json:"activity_type"`
	Count        int64               `json:"count"`
}

// UserCount is a per-user aggregate used by stats and leaderboards
type UserCount struct {
	UserID   uint   `json:"user_id"`
	UserName string `json:"user_name"`
	Count    int64  `json:"count"`
}

// CreateActivity inserts a new feed entry
func (r *Repository) CreateActivity(ctx context.Context, activity *models.ActivityFeed) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// GetActivity retrieves a feed entry by ID
func (r *Repository) GetActivity(ctx context.Context, id uuid.UUID) (*models.ActivityFeed, error) {
	var activity models.ActivityFeed
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// GetActivityForUpdate loads a feed entry and row-locks it until the
// surrounding transaction ends
func (r *Repository) GetActivityForUpdate(ctx context.Context, id uuid.UUID) (*models.ActivityFeed, error) {
	var activity models.ActivityFeed
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListPublicActivities returns public entries newest first, optionally of one type
func (r *Repository) ListPublicActivities(ctx context.Context, activityType *models.ActivityType, limit, offset int) ([]models.ActivityFeed, error) {
	query := r.db.WithContext(ctx).Where("is_public = ?", true)
	if activityType != nil {
		query = query.Where("activity_type = ?", *activityType)
	}

	var activities []models.ActivityFeed
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// ListUserActivities returns all of a user's entries, public and private, newest first
func (r *Repository) ListUserActivities(ctx context.Context, userID uint, limit, offset int) ([]models.ActivityFeed, error) {
	var activities []models.ActivityFeed
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// GetActivitiesByIDs loads entries in no particular order
func (r *Repository) GetActivitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ActivityFeed, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var activities []models.ActivityFeed
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&activities).Error
	return activities, err
}

// CreateLike adds userID to an activity's likes set. It reports false when
// the like was already there.
func (r *Repository) CreateLike(ctx context.Context, like *models.ActivityLike) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(like)
	return result.RowsAffected > 0, result.Error
}

// DeleteLike removes userID from an activity's likes set and reports how many rows went
func (r *Repository) DeleteLike(ctx context.Context, activityID uuid.UUID, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Delete(&models.ActivityLike{})
	return result.RowsAffected, result.Error
}

// CountLikes returns the size of an activity's likes set
func (r *Repository) CountLikes(ctx context.Context, activityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ActivityLike{}).
		Where("activity_id = ?", activityID).
		Count(&count).Error
	return count, err
}

// LikeCounts returns like totals for the given activities; absent IDs have none
func (r *Repository) LikeCounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []LikeCount
	err := r.db.WithContext(ctx).Model(&models.ActivityLike{}).
		Select("activity_id, COUNT(*) AS like_count").
		Where("activity_id IN ?", ids).
		Group("activity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.ActivityID] = row.LikeCount
	}
	return counts, nil
}

// LikedBy reports which of the given activities userID has liked
func (r *Repository) LikedBy(ctx context.Context, ids []uuid.UUID, userID uint) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 || userID == 0 {
		return liked, nil
	}

	var likedIDs []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.ActivityLike{}).
		Where("activity_id IN ? AND user_id = ?", ids, userID).
		Pluck("activity_id", &likedIDs).Error
	if err != nil {
		return nil, err
	}

	for _, id := range likedIDs {
		liked[id] = true
	}
	return liked, nil
}

// MostLikedSince ranks public activities created at or after since by like count
func (r *Repository) MostLikedSince(ctx context.Context, since time.Time, limit int) ([]LikeCount, error) {
	var rows []LikeCount
	err := r.db.WithContext(ctx).Model(&models.ActivityFeed{}).
		Select("activity_feed.id AS activity_id, COUNT(activity_likes.user_id) AS like_count").
		Joins("LEFT JOIN activity_likes ON activity_likes.activity_id = activity_feed.id").
		Where("activity_feed.is_public = ? AND activity_feed.created_at >= ?", true, since).
		Group("activity_feed.id").
		Order("like_count DESC").
		Order("activity_feed.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteActivity removes an entry together with its likes
func (r *Repository) DeleteActivity(ctx context.Context, id uuid.UUID) (int64, error) {
	if err := r.db.WithContext(ctx).Where("activity_id = ?", id).Delete(&models.ActivityLike{}).Error; err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ActivityFeed{})
	return result.RowsAffected, result.Error
}

// DeleteActivitiesBefore purges entries created before cutoff together with their likes
func (r *Repository) DeleteActivitiesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	stale := r.db.WithContext(ctx).Model(&models.ActivityFeed{}).
		Select("id").
		Where("created_at < ?", cutoff)

	if err := r.db.WithContext(ctx).Where("activity_id IN (?)", stale).Delete(&models.ActivityLike{}).Error; err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ActivityFeed{})
	return result.RowsAffected, result.Error
}

// CountPublicActivities counts public entries, optionally only those created at or after since
func (r *Repository) CountPublicActivities(ctx context.Context, since *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityFeed{}).Where("is_public = ?", true)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// CountPublicLikes counts likes on public entries
func (r *Repository) CountPublicLikes(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ActivityLike{}).
		Joins("JOIN activity_feed ON activity_feed.id = activity_likes.activity_id").
		Where("activity_feed.is_public = ?", true).
		Count(&count).Error
	return count, err
}

// PopularTypes ranks activity types among public entries
func (r *Repository) PopularTypes(ctx context.Context, limit int) ([]TypeCount, error) {
	var rows []TypeCount
	err := r.db.WithContext(ctx).Model(&models.ActivityFeed{}).
		Select("activity_type, COUNT(*) AS count").
		Where("is_public = ?", true).
		Group("activity_type").
		Order("count DESC").
		Order("activity_type ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// MostActiveUsers ranks users by public entries created at or after since
func (r *Repository) MostActiveUsers(ctx context.Context, since time.Time, limit int) ([]UserCount, error) {
	var rows []UserCount
	err := r.db.WithContext(ctx).Model(&models.ActivityFeed{}).
		Select("user_id, MAX(user_name) AS user_name, COUNT(*) AS count").
		Where("is_public = ? AND created_at >= ?", true, since).
		Group("user_id").
		Order("count DESC").
		Order("user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// MostLikedUsers ranks authors by likes received from other users on
// public entries created at or after since
func (r *Repository) MostLikedUsers(ctx context.Context, since time.Time, limit int) ([]UserCount, error) {
	var rows []UserCount
	err := r.db.WithContext(ctx).Model(&models.ActivityFeed{}).
		Select("activity_feed.user_id AS user_id, MAX(activity_feed.user_name) AS user_name, COUNT(activity_likes.user_id) AS count").
		Joins("JOIN activity_likes ON activity_likes.activity_id = activity_feed.id").
		Where("activity_feed.is_public = ? AND activity_feed.created_at >= ?", true, since).
		Where("activity_likes.user_id <> activity_feed.user_id").
		Group("activity_feed.user_id").
		Order("count DESC").
		Order("activity_feed.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
