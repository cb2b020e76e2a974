package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"community-ledger/internal/auth"
	"community-ledger/internal/config"
	"community-ledger/internal/database"
	"community-ledger/internal/handlers"
	"community-ledger/internal/jobs"
	"community-ledger/internal/logging"
	"community-ledger/internal/middleware"
	"community-ledger/internal/repository"
	"community-ledger/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	gin.SetMode(gin.ReleaseMode)

	tokens, err := auth.NewManager(cfg.App.JWTSecret, auth.DefaultTokenTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT")
	}

	db, err := database.Connect(cfg.GetDSN())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := database.AutoMigrate(db); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}

	repo := repository.NewRepository(db)

	ledger := services.NewLedgerService(repo, services.LedgerOptions{
		StartingCoins:   cfg.Rewards.StartingCoins,
		DailyLoginCoins: cfg.Rewards.DailyLoginCoins,
		Location:        cfg.Rewards.Location,
	})
	feed := services.NewFeedService(repo, services.FeedOptions{
		TrendingWindow: cfg.App.TrendingWindow,
	})
	rewards := services.NewRewardService(ledger, feed, services.RewardOptions{
		DailyCap: cfg.Rewards.EngagementDailyCap,
		Location: cfg.Rewards.Location,
	})
	feed.SetRewarder(rewards)
	leaderboards := services.NewLeaderboardService(repo, ledger, nil)

	sched, err := jobs.NewScheduler(5 * time.Minute)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	// Shared Redis counters when available, per-process buckets otherwise
	var limiter middleware.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, rate limiting fails open until it recovers")
		}
		cancel()
		limiter = middleware.NewRedisLimiter(rdb, cfg.Redis.RateLimitPerMin, time.Minute)
	} else {
		local := middleware.NewLocalLimiter(cfg.Redis.RateLimitPerMin, time.Minute)
		if err := sched.Every(10*time.Minute, "rate-limit-prune", func(ctx context.Context) { local.Prune() }); err != nil {
			logging.Fatal().Err(err).Msg("Failed to schedule limiter pruning")
		}
		limiter = local
	}

	retention := jobs.NewRetentionJob(feed, time.Duration(cfg.App.RetentionDays)*24*time.Hour)
	if err := retention.Schedule(sched, cfg.App.RetentionInterval); err != nil {
		logging.Fatal().Err(err).Msg("Failed to schedule retention job")
	}
	sched.Start()

	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
	}
	if cfg.Server.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.Server.FrontendURL)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Tokens:         tokens,
		Ledger:         ledger,
		Feed:           feed,
		Leaderboards:   leaderboards,
		Limiter:        limiter,
		AllowedOrigins: allowedOrigins,
		RetentionDays:  cfg.App.RetentionDays,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := sched.Shutdown(); err != nil {
		logging.Error().Err(err).Msg("Scheduler shutdown failed")
	}

	logging.Info().Msg("Server exited")
}
