package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medalert/internal/config"
	"medalert/internal/database"
	"medalert/internal/modules/feed"
	"medalert/internal/modules/notification"
	"medalert/internal/pkg/email"
	"medalert/internal/pkg/expo"
	"medalert/internal/pkg/sms"
	"medalert/internal/repository"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	notifRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	if err := db.AutoMigrate(userRepo.Model(), notifRepo.Model()); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	pushClient := expo.NewClient(cfg.ExpoBaseURL, cfg.ExpoAccessToken)
	emailClient := email.NewClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	smsClient := sms.NewClient(cfg.SMSGatewayURL, cfg.SMSGatewayKey, log)

	hub := feed.NewHub()
	defer hub.Close()

	notifService := notification.NewService(
		notifRepo,
		userRepo,
		pushClient,
		smsClient,
		emailClient,
		hub,
		log,
		cfg.SendTimeout,
	)
	notifHandler := notification.NewHandler(notifService)
	feedHandler := feed.NewHandler(hub)

	tasks := notification.NewTasks(notifService, notification.TaskConfig{
		RetryInterval:   cfg.RetryInterval,
		ReceiptInterval: cfg.ReceiptInterval,
		SweepInterval:   cfg.SweepInterval,
	}, log)
	tasks.Start()
	defer tasks.Stop()

	r := gin.Default()

	v1 := r.Group("/api/v1")
	{
		notifHandler.RegisterRoutes(v1)
		feedHandler.RegisterRoutes(v1)
	}

	log.Info().Str("addr", cfg.HTTPAddr).Msg("starting notification engine")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
