// Command reconcile compares every stored balance with the sum of its
// ledger and optionally repairs cached levels. Exits 1 when drift is found.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"

	"community-ledger/internal/config"
	"community-ledger/internal/database"
	"community-ledger/internal/logging"
	"community-ledger/internal/repository"
	"community-ledger/internal/services"
)

func main() {
	fixLevels := flag.Bool("fix-levels", false, "recompute cached levels from stored experience")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	sqlDB, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	db, err := database.Open(postgres.New(postgres.Config{Conn: sqlDB}))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repo := repository.NewRepository(db)
	ledger := services.NewLedgerService(repo, services.LedgerOptions{})

	drifts, err := ledger.FindBalanceDrift(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Reconciliation failed")
	}
	for _, d := range drifts {
		logging.Warn().
			Uint("user_id", d.UserID).
			Int64("stored", d.StoredCoins).
			Int64("ledger", d.LedgerSum).
			Int64("diff", d.StoredCoins-d.LedgerSum).
			Msg("Balance drift")
	}

	if *fixLevels {
		ids, err := repo.ListProfileIDs(ctx)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to list profiles")
		}
		repaired := 0
		for _, id := range ids {
			changed, err := ledger.RepairLevel(ctx, id)
			if err != nil {
				logging.Fatal().Err(err).Uint("user_id", id).Msg("Level repair failed")
			}
			if changed {
				repaired++
			}
		}
		logging.Info().Int("profiles", len(ids)).Int("repaired", repaired).Msg("Levels checked")
	}

	logging.Info().Int("drifted", len(drifts)).Msg("Reconciliation finished")
	if len(drifts) > 0 {
		cancel()
		database.Close(db)
		os.Exit(1)
	}
}
