package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"community-ledger/internal/auth"
	"community-ledger/internal/middleware"
	"community-ledger/internal/services"
)

// RouterConfig carries everything the HTTP layer depends on
type RouterConfig struct {
	Tokens         *auth.Manager
	Ledger         *services.LedgerService
	Feed           *services.FeedService
	Leaderboards   *services.LeaderboardService
	Limiter        middleware.Limiter // nil disables rate limiting
	AllowedOrigins []string
	RetentionDays  int
}

// ensureProfile creates the caller's profile with the starting balance on
// first sight, so every authenticated user owns a ledger
func ensureProfile(ledger *services.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			c.Next()
			return
		}
		if _, err := ledger.EnsureProfile(c.Request.Context(), userID, auth.GetUsername(c)); err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewRouter builds the gin engine with every route registered
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limit := func(scope string) gin.HandlerFunc {
		if cfg.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(cfg.Limiter, scope)
	}

	activityHandler := NewActivityHandler(cfg.Feed, cfg.RetentionDays)
	currencyHandler := NewCurrencyHandler(cfg.Ledger)
	leaderboardHandler := NewLeaderboardHandler(cfg.Leaderboards)

	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(cfg.Tokens), ensureProfile(cfg.Ledger))
	{
		activity := api.Group("/activity")
		{
			activity.GET("/feed", activityHandler.GetFeed)
			activity.GET("/my-feed", activityHandler.GetMyFeed)
			activity.GET("/trending", activityHandler.GetTrending)
			activity.GET("/stats", activityHandler.GetStats)
			activity.POST("", limit("activity_create"), activityHandler.CreateActivity)
			activity.POST("/:id/like", limit("activity_like"), activityHandler.ToggleLike)
			activity.DELETE("/:id", activityHandler.DeleteActivity)
			activity.DELETE("/admin/cleanup", auth.AdminOnly(), activityHandler.Cleanup)
		}

		currency := api.Group("/currency")
		{
			currency.GET("/balance", currencyHandler.GetBalance)
			currency.GET("/transactions", currencyHandler.GetTransactions)
			currency.POST("/daily-login", limit("daily_login"), currencyHandler.ClaimDailyLogin)
			currency.POST("/admin/transactions", auth.AdminOnly(), currencyHandler.RecordTransaction)
		}

		leaderboard := api.Group("/leaderboard")
		{
			leaderboard.GET("/richest", leaderboardHandler.GetRichest)
			leaderboard.GET("/most-active", leaderboardHandler.GetMostActive)
			leaderboard.GET("/most-liked", leaderboardHandler.GetMostLiked)
		}
	}

	return router
}
