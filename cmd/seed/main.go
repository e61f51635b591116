// Seeds the store with demo clinical users and a few sample
// notifications for local development.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"medalert/internal/config"
	"medalert/internal/database"
	"medalert/internal/domain"
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

	log.Info().Msg("running migrations")
	if err := db.AutoMigrate(userRepo.Model(), notifRepo.Model()); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	log.Info().Msg("cleaning old data")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM users")

	ctx := context.Background()

	log.Info().Msg("creating users")

	users := []domain.User{
		{
			Name:       "Sarah Johnson",
			Email:      "emo@medalert.local",
			Phone:      "+15550100",
			Role:       domain.RoleEMO,
			Department: "Emergency",
			HospitalID: "HOSP-001",
			PushToken:  "ExponentPushToken[demo-emo-token]",
			Preferences: domain.NotificationPreferences{
				Push:  true,
				SMS:   true,
				Email: true,
			},
			IsAvailable: true,
		},
		{
			Name:       "Michael Chen",
			Email:      "clinician@medalert.local",
			Phone:      "+15550101",
			Role:       domain.RoleClinician,
			Department: "Internal Medicine",
			HospitalID: "HOSP-001",
			PushToken:  "ExponentPushToken[demo-clinician-token]",
			Preferences: domain.NotificationPreferences{
				Push:  true,
				Email: true,
			},
			IsAvailable: true,
		},
		{
			Name:       "Emily Rodriguez",
			Email:      "radiologist@medalert.local",
			Role:       domain.RoleRadiologist,
			Department: "Radiology",
			HospitalID: "HOSP-001",
			Preferences: domain.NotificationPreferences{
				Push:       true,
				Email:      true,
				UrgentOnly: true,
			},
			IsAvailable: true,
		},
	}

	for i := range users {
		if err := userRepo.Create(ctx, &users[i]); err != nil {
			log.Fatal().Err(err).Str("email", users[i].Email).Msg("create user failed")
		}
	}

	log.Info().Msg("creating sample notifications")

	now := time.Now()
	samples := []domain.Notification{
		{
			NotificationID: domain.NewNotificationID(),
			UserID:         users[1].ID,
			AlertID:        "ALERT-2024-0001",
			Type:           domain.TypeAlertAssigned,
			Title:          "New alert assigned",
			Message:        "Suspected stroke, patient John Doe. Review imaging request.",
			Priority:       domain.PriorityUrgent,
			Data: domain.NotificationData{
				AlertID:        "ALERT-2024-0001",
				PatientName:    "John Doe",
				Severity:       "critical",
				Stage:          "sent_to_clinician",
				ActionRequired: "Confirm imaging order",
			},
			MaxRetries:   domain.DefaultMaxRetries,
			ScheduledFor: now,
			ExpiresAt:    now.Add(domain.DefaultExpiry),
		},
		{
			NotificationID: domain.NewNotificationID(),
			UserID:         users[0].ID,
			AlertID:        "ALERT-2024-0002",
			Type:           domain.TypeAlertCompleted,
			Title:          "Alert completed",
			Message:        "Case for patient Jane Roe has been closed by the clinician.",
			Priority:       domain.PriorityMedium,
			Data: domain.NotificationData{
				AlertID:     "ALERT-2024-0002",
				PatientName: "Jane Roe",
				Severity:    "moderate",
				Stage:       "completed",
			},
			MaxRetries:   domain.DefaultMaxRetries,
			ScheduledFor: now,
			ExpiresAt:    now.Add(domain.DefaultExpiry),
		},
	}

	for i := range samples {
		if err := notifRepo.Create(ctx, &samples[i]); err != nil {
			log.Fatal().Err(err).Msg("create notification failed")
		}
	}

	log.Info().
		Int("users", len(users)).
		Int("notifications", len(samples)).
		Msg("seed completed")
}
