// One-shot expiry sweep for cron-style operation alongside the API
// process.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"medalert/internal/config"
	"medalert/internal/database"
	"medalert/internal/repository"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	repo := repository.NewNotificationRepository(db)

	deleted, err := repo.DeleteExpired(context.Background(), time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("expiry sweep failed")
	}

	log.Info().Int64("deleted", deleted).Msg("expiry sweep completed")
}
