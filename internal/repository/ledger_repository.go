package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"community-ledger/internal/models"
)

// CreateProfile inserts a new profile
func (r *Repository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetProfile retrieves a profile by user ID
func (r *Repository) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ApplyBalanceDelta adds amount to the balance only if the result stays
// non-negative. Credits also raise lifetime earnings. Reports whether a
// row was updated.
func (r *Repository) ApplyBalanceDelta(ctx context.Context, userID uint, amount int64) (bool, error) {
	earned := amount
	if earned < 0 {
		earned = 0
	}

	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ? AND coins + ? >= 0", userID, amount).
		Updates(map[string]interface{}{
			"coins":              gorm.Expr("coins + ?", amount),
			"total_coins_earned": gorm.Expr("total_coins_earned + ?", earned),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateTransaction appends a ledger row
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.CoinTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// IncrementExperience adds xp and returns the updated profile
func (r *Repository) IncrementExperience(ctx context.Context, userID uint, xp int64) (*models.Profile, error) {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("experience_points", gorm.Expr("experience_points + ?", xp))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetProfile(ctx, userID)
}

// SetLevel stores the cached level for a user
func (r *Repository) SetLevel(ctx context.Context, userID uint, level int) error {
	return r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("level", level).Error
}

// ListTransactions returns a user's history, newest first
func (r *Repository) ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.CoinTransaction, error) {
	var txs []models.CoinTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// CountTransactions counts a user's ledger rows
func (r *Repository) CountTransactions(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CoinTransaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CountTransactionsSince counts a user's rows of one type created at or after since
func (r *Repository) CountTransactionsSince(ctx context.Context, userID uint, txType models.TransactionType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CoinTransaction{}).
		Where("user_id = ? AND transaction_type = ? AND created_at >= ?", userID, txType, since).
		Count(&count).Error
	return count, err
}

// SumTransactions folds every ledger amount for a user
func (r *Repository) SumTransactions(ctx context.Context, userID uint) (int64, error) {
	var sum int64
	row := r.db.WithContext(ctx).Model(&models.CoinTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// TopProfilesByCoins ranks enabled profiles by balance. Ties go to higher
// lifetime earnings, then the older account, then the lower user ID.
func (r *Repository) TopProfilesByCoins(ctx context.Context, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Where("is_disabled = ?", false).
		Order("coins DESC").
		Order("total_coins_earned DESC").
		Order("created_at ASC").
		Order("user_id ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// ListProfileIDs returns every user ID in ascending order
func (r *Repository) ListProfileIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
