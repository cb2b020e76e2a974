package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENGAGEMENT_DAILY_CAP", "")
	t.Setenv("STARTING_COINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Rewards.StartingCoins != 100 {
		t.Errorf("expected starting coins 100, got %d", cfg.Rewards.StartingCoins)
	}
	if cfg.Rewards.EngagementDailyCap != 10 {
		t.Errorf("expected daily cap 10, got %d", cfg.Rewards.EngagementDailyCap)
	}
	if cfg.App.TrendingWindow != 24*time.Hour {
		t.Errorf("expected trending window 24h, got %v", cfg.App.TrendingWindow)
	}
	if cfg.Rewards.Location != time.UTC {
		t.Errorf("expected UTC reference location, got %v", cfg.Rewards.Location)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENGAGEMENT_DAILY_CAP", "3")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("DAILY_LOGIN_COINS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Rewards.EngagementDailyCap != 3 {
		t.Errorf("expected daily cap 3, got %d", cfg.Rewards.EngagementDailyCap)
	}
	if cfg.App.RetentionDays != 7 {
		t.Errorf("expected retention 7 days, got %d", cfg.App.RetentionDays)
	}
	if cfg.Rewards.DailyLoginCoins != 10 {
		t.Errorf("malformed value should fall back to 10, got %d", cfg.Rewards.DailyLoginCoins)
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n"}}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
