package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Rewards  RewardsConfig
	Redis    RedisConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port        string
	FrontendURL string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret         string
	RetentionDays     int
	RetentionInterval time.Duration
	TrendingWindow    time.Duration
}

// RewardsConfig holds economy settings
type RewardsConfig struct {
	StartingCoins      int64
	DailyLoginCoins    int64
	EngagementDailyCap int
	Location           *time.Location
}

// RedisConfig holds the optional rate limiter backend
type RedisConfig struct {
	Addr            string
	Password        string
	RateLimitPerMin int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("REWARD_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid REWARD_TIMEZONE: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "oupafamilly"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", ""),
		},
		App: AppConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			RetentionDays:     getEnvInt("RETENTION_DAYS", 30),
			RetentionInterval: time.Duration(getEnvInt("RETENTION_INTERVAL_HOURS", 24)) * time.Hour,
			TrendingWindow:    time.Duration(getEnvInt("TRENDING_WINDOW_HOURS", 24)) * time.Hour,
		},
		Rewards: RewardsConfig{
			StartingCoins:      int64(getEnvInt("STARTING_COINS", 100)),
			DailyLoginCoins:    int64(getEnvInt("DAILY_LOGIN_COINS", 10)),
			EngagementDailyCap: getEnvInt("ENGAGEMENT_DAILY_CAP", 10),
			Location:           loc,
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", ""),
			Password:        getEnv("REDIS_PASSWORD", ""),
			RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Rewards.EngagementDailyCap < 0 {
		return nil, fmt.Errorf("ENGAGEMENT_DAILY_CAP must not be negative")
	}

	if config.App.RetentionDays < 1 {
		return nil, fmt.Errorf("RETENTION_DAYS must be at least 1")
	}

	if config.App.RetentionInterval < time.Hour {
		return nil, fmt.Errorf("RETENTION_INTERVAL_HOURS must be at least 1")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt parses an integer environment variable, falling back on absent or malformed values
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
