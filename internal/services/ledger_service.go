package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"community-ledger/internal/logging"
	"community-ledger/internal/metrics"
	"community-ledger/internal/models"
	"community-ledger/internal/repository"
	"community-ledger/internal/utils"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// LedgerOptions configures the LedgerService
type LedgerOptions struct {
	StartingCoins   int64
	DailyLoginCoins int64
	Location        *time.Location
	Now             func() time.Time
}

// LedgerService owns coin movements and the per-user Profile aggregate
type LedgerService struct {
	repo            *repository.Repository
	startingCoins   int64
	dailyLoginCoins int64
	location        *time.Location
	now             func() time.Time
	locks           *userLocks
	log             zerolog.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(repo *repository.Repository, opts LedgerOptions) *LedgerService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &LedgerService{
		repo:            repo,
		startingCoins:   opts.StartingCoins,
		dailyLoginCoins: opts.DailyLoginCoins,
		location:        opts.Location,
		now:             opts.Now,
		locks:           newUserLocks(),
		log:             logging.WithComponent("ledger"),
	}
}

// TransactionRequest describes a coin movement to record
type TransactionRequest struct {
	UserID      uint
	Amount      int64
	Type        models.TransactionType
	Description string
	ReferenceID *string
}

// Balance is the point-in-time economy snapshot of a user
type Balance struct {
	UserID           uint   `json:"user_id"`
	Coins            int64  `json:"coins"`
	TotalCoinsEarned int64  `json:"total_coins_earned"`
	ExperiencePoints int64  `json:"experience_points"`
	Level            int    `json:"level"`
	NextLevelXP      int64  `json:"next_level_xp"`
	Username         string `json:"username"`
}

// LevelChange reports the cached level before and after an XP change
type LevelChange struct {
	OldLevel int
	NewLevel int
}

// Increased reports whether the level went up
func (c LevelChange) Increased() bool {
	return c.NewLevel > c.OldLevel
}

// RichEntry is one row of the richest-users leaderboard
type RichEntry struct {
	Rank             int    `json:"rank"`
	UserID           uint   `json:"user_id"`
	Username         string `json:"username"`
	Coins            int64  `json:"coins"`
	TotalCoinsEarned int64  `json:"total_coins_earned"`
	Level            int    `json:"level"`
}

// BalanceDrift describes a profile whose balance no longer matches its ledger
type BalanceDrift struct {
	UserID      uint  `json:"user_id"`
	StoredCoins int64 `json:"stored_coins"`
	LedgerSum   int64 `json:"ledger_sum"`
}

// EnsureProfile returns the user's profile, creating it with the starting
// balance on first sight. The starting balance is itself a ledger row.
// A blank username gets a generated nickname.
func (s *LedgerService) EnsureProfile(ctx context.Context, userID uint, username string) (*models.Profile, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if strings.TrimSpace(username) == "" {
		if username, err = utils.GenerateNickname(); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	profile = &models.Profile{
		UserID:    userID,
		Username:  username,
		Level:     LevelForXP(0),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateProfile(ctx, profile); err != nil {
			return err
		}
		if s.startingCoins <= 0 {
			return nil
		}
		_, err := s.record(ctx, tx, TransactionRequest{
			UserID:      userID,
			Amount:      s.startingCoins,
			Type:        models.TransactionRegistrationBonus,
			Description: "Bonus de bienvenue",
		})
		return err
	})
	if err != nil {
		// Lost a creation race: the other writer's profile is authoritative
		if existing, getErr := s.repo.GetProfile(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.log.Info().Uint("user_id", userID).Int64("starting_coins", s.startingCoins).Msg("Profile created")
	return s.repo.GetProfile(ctx, userID)
}

// RecordTransaction appends a ledger row and applies it to the balance in
// one database transaction. Debits that would overdraw are rejected with
// ErrInsufficientFunds and leave no trace.
func (s *LedgerService) RecordTransaction(ctx context.Context, req TransactionRequest) (*models.CoinTransaction, error) {
	var recorded *models.CoinTransaction
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		recorded, err = s.record(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", req.UserID).
		Int64("amount", req.Amount).
		Str("type", string(req.Type)).
		Msg("Transaction recorded")
	return recorded, nil
}

// CreditWithExperience records a credit and raises XP atomically, then
// refreshes the cached level
func (s *LedgerService) CreditWithExperience(ctx context.Context, req TransactionRequest, xp int64) (*models.CoinTransaction, LevelChange, error) {
	if xp < 0 {
		return nil, LevelChange{}, fmt.Errorf("%w: experience must not be negative", ErrInvalidInput)
	}

	var (
		recorded *models.CoinTransaction
		change   LevelChange
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		recorded, err = s.record(ctx, tx, req)
		if err != nil {
			return err
		}
		if xp == 0 {
			profile, err := tx.GetProfile(ctx, req.UserID)
			if err != nil {
				return err
			}
			change = LevelChange{OldLevel: profile.Level, NewLevel: profile.Level}
			return nil
		}
		change, err = s.addExperience(ctx, tx, req.UserID, xp)
		return err
	})
	if err != nil {
		return nil, LevelChange{}, err
	}
	if change.Increased() {
		metrics.LevelUps.Inc()
	}
	return recorded, change, nil
}

// grantExperience raises a user's XP and refreshes the cached level.
// Callers announce the level up, see RewardService.AddExperience.
func (s *LedgerService) grantExperience(ctx context.Context, userID uint, xp int64) (LevelChange, error) {
	if xp <= 0 {
		return LevelChange{}, fmt.Errorf("%w: experience must be positive", ErrInvalidInput)
	}

	var change LevelChange
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		change, err = s.addExperience(ctx, tx, userID, xp)
		return err
	})
	if err != nil {
		return LevelChange{}, err
	}
	if change.Increased() {
		metrics.LevelUps.Inc()
	}
	return change, nil
}

func (s *LedgerService) addExperience(ctx context.Context, tx *repository.Repository, userID uint, xp int64) (LevelChange, error) {
	profile, err := tx.IncrementExperience(ctx, userID, xp)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LevelChange{}, fmt.Errorf("profile %d: %w", userID, ErrNotFound)
		}
		return LevelChange{}, fmt.Errorf("failed to add experience: %w", err)
	}

	change := LevelChange{OldLevel: profile.Level, NewLevel: LevelForXP(profile.ExperiencePoints)}
	if change.Increased() {
		if err := tx.SetLevel(ctx, userID, change.NewLevel); err != nil {
			return LevelChange{}, fmt.Errorf("failed to update level: %w", err)
		}
	} else {
		change.NewLevel = change.OldLevel
	}
	return change, nil
}

// record validates req and applies it within tx
func (s *LedgerService) record(ctx context.Context, tx *repository.Repository, req TransactionRequest) (*models.CoinTransaction, error) {
	if req.Amount == 0 {
		metrics.LedgerRejections.WithLabelValues("invalid_amount").Inc()
		return nil, ErrInvalidAmount
	}

	row, err := models.NewCoinTransaction(req.UserID, req.Amount, req.Type, req.Description, req.ReferenceID)
	if err != nil {
		metrics.LedgerRejections.WithLabelValues("invalid_input").Inc()
		return nil, err
	}
	row.CreatedAt = s.now().UTC()

	applied, err := tx.ApplyBalanceDelta(ctx, req.UserID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	if !applied {
		if _, err := tx.GetProfile(ctx, req.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				metrics.LedgerRejections.WithLabelValues("not_found").Inc()
				return nil, fmt.Errorf("profile %d: %w", req.UserID, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		metrics.LedgerRejections.WithLabelValues("insufficient_funds").Inc()
		return nil, ErrInsufficientFunds
	}

	if err := tx.CreateTransaction(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	metrics.LedgerTransactions.WithLabelValues(string(req.Type)).Inc()
	return row, nil
}

// GetBalance returns the user's current economy snapshot
func (s *LedgerService) GetBalance(ctx context.Context, userID uint) (*Balance, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return &Balance{
		UserID:           profile.UserID,
		Username:         profile.Username,
		Coins:            profile.Coins,
		TotalCoinsEarned: profile.TotalCoinsEarned,
		ExperiencePoints: profile.ExperiencePoints,
		Level:            profile.Level,
		NextLevelXP:      XPForLevel(profile.Level + 1),
	}, nil
}

// ListTransactions pages through a user's history, newest first
func (s *LedgerService) ListTransactions(ctx context.Context, userID uint, limit, skip int) ([]models.CoinTransaction, int64, error) {
	limit, skip = normalizePage(limit, skip)

	txs, err := s.repo.ListTransactions(ctx, userID, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	total, err := s.repo.CountTransactions(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return txs, total, nil
}

// LeaderboardRichest ranks users by balance. Ties go to higher lifetime
// earnings, then the older account, then the lower user ID.
func (s *LedgerService) LeaderboardRichest(ctx context.Context, limit int) ([]RichEntry, error) {
	limit, _ = normalizePage(limit, 0)

	profiles, err := s.repo.TopProfilesByCoins(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]RichEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = RichEntry{
			Rank:             i + 1,
			UserID:           p.UserID,
			Username:         p.Username,
			Coins:            p.Coins,
			TotalCoinsEarned: p.TotalCoinsEarned,
			Level:            p.Level,
		}
	}
	return entries, nil
}

// ClaimDailyLogin credits the daily login bonus once per reference-clock day
func (s *LedgerService) ClaimDailyLogin(ctx context.Context, userID uint) (*models.CoinTransaction, error) {
	if s.dailyLoginCoins <= 0 {
		return nil, fmt.Errorf("%w: daily login reward is disabled", ErrInvalidInput)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	since := startOfDay(s.now(), s.location)
	claimed, err := s.repo.CountTransactionsSince(ctx, userID, models.TransactionDailyLogin, since)
	if err != nil {
		return nil, fmt.Errorf("failed to check daily login: %w", err)
	}
	if claimed > 0 {
		return nil, ErrAlreadyClaimed
	}

	return s.RecordTransaction(ctx, TransactionRequest{
		UserID:      userID,
		Amount:      s.dailyLoginCoins,
		Type:        models.TransactionDailyLogin,
		Description: "Connexion quotidienne",
	})
}

// ReconstructBalance folds the user's ledger into a balance
func (s *LedgerService) ReconstructBalance(ctx context.Context, userID uint) (int64, error) {
	sum, err := s.repo.SumTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// RepairLevel recomputes the cached level from stored XP. Idempotent.
func (s *LedgerService) RepairLevel(ctx context.Context, userID uint) (bool, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("profile %d: %w", userID, ErrNotFound)
		}
		return false, err
	}

	level := LevelForXP(profile.ExperiencePoints)
	if level == profile.Level {
		return false, nil
	}
	if err := s.repo.SetLevel(ctx, userID, level); err != nil {
		return false, fmt.Errorf("failed to repair level: %w", err)
	}
	s.log.Warn().Uint("user_id", userID).Int("from", profile.Level).Int("to", level).Msg("Repaired cached level")
	return true, nil
}

// FindBalanceDrift compares every stored balance against its ledger
func (s *LedgerService) FindBalanceDrift(ctx context.Context) ([]BalanceDrift, error) {
	ids, err := s.repo.ListProfileIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	var drifts []BalanceDrift
	for _, id := range ids {
		profile, err := s.repo.GetProfile(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %d: %w", id, err)
		}
		sum, err := s.ReconstructBalance(ctx, id)
		if err != nil {
			return nil, err
		}
		if sum != profile.Coins {
			drifts = append(drifts, BalanceDrift{UserID: id, StoredCoins: profile.Coins, LedgerSum: sum})
		}
	}
	return drifts, nil
}

// normalizePage clamps pagination parameters
func normalizePage(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}
