package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"medalert/internal/database"
	"medalert/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *NotificationRepository {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "medalert_test.db"))
	require.NoError(t, err)

	repo := NewNotificationRepository(db)
	require.NoError(t, db.AutoMigrate(repo.Model()))
	return repo
}

func storedNotification(userID int64) *domain.Notification {
	now := time.Now()
	return &domain.Notification{
		NotificationID: domain.NewNotificationID(),
		UserID:         userID,
		AlertID:        "ALERT-42",
		Type:           domain.TypeAlertAssigned,
		Title:          "New alert assigned",
		Message:        "Patient requires review",
		Priority:       domain.PriorityHigh,
		MaxRetries:     domain.DefaultMaxRetries,
		ScheduledFor:   now,
		ExpiresAt:      now.Add(domain.DefaultExpiry),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestNotificationRepository_CreateAndGet(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	n := storedNotification(7)
	n.Data = domain.NotificationData{
		AlertID:     "ALERT-42",
		PatientName: "John Smith",
		Severity:    "critical",
		Stage:       "assigned",
	}
	require.NoError(t, repo.Create(ctx, n))
	require.NotZero(t, n.ID)

	got, err := repo.GetForRecipient(ctx, n.NotificationID, 7)
	require.NoError(t, err)
	require.Equal(t, n.NotificationID, got.NotificationID)
	require.Equal(t, domain.TypeAlertAssigned, got.Type)
	require.Equal(t, "John Smith", got.Data.PatientName)
	require.Equal(t, "critical", got.Data.Severity)
}

func TestNotificationRepository_GetForRecipient_WrongUser(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	n := storedNotification(7)
	require.NoError(t, repo.Create(ctx, n))

	_, err := repo.GetForRecipient(ctx, n.NotificationID, 8)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNotificationRepository_SaveRoundTripsChannels(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	n := storedNotification(7)
	require.NoError(t, repo.Create(ctx, n))

	sentAt := time.Now()
	n.Channels.Push.Sent = true
	n.Channels.Push.SentAt = &sentAt
	n.Channels.Push.TicketID = "ticket-1"
	n.Channels.Email.Sent = true
	n.Channels.Email.SentAt = &sentAt
	n.Channels.Email.EmailAddress = "sarah@clinic.example"
	require.NoError(t, repo.Save(ctx, n))

	got, err := repo.GetForRecipient(ctx, n.NotificationID, 7)
	require.NoError(t, err)
	require.True(t, got.Channels.Push.Sent)
	require.Equal(t, "ticket-1", got.Channels.Push.TicketID)
	require.True(t, got.Channels.Email.Sent)
	require.Equal(t, "sarah@clinic.example", got.Channels.Email.EmailAddress)
	require.False(t, got.Channels.SMS.Sent)
}

func TestNotificationRepository_ListByUser_NewestFirst(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		n := storedNotification(7)
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, n))
		ids = append(ids, n.NotificationID)
	}
	other := storedNotification(8)
	require.NoError(t, repo.Create(ctx, other))

	got, err := repo.ListByUser(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, ids[2], got[0].NotificationID)
	require.Equal(t, ids[1], got[1].NotificationID)
}

func TestNotificationRepository_FindRetryEligible(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	due := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	eligible := storedNotification(7)
	eligible.NextRetryAt = &due
	require.NoError(t, repo.Create(ctx, eligible))

	exhausted := storedNotification(7)
	exhausted.RetryCount = exhausted.MaxRetries
	exhausted.NextRetryAt = &due
	require.NoError(t, repo.Create(ctx, exhausted))

	unscheduled := storedNotification(7)
	require.NoError(t, repo.Create(ctx, unscheduled))

	notYetDue := storedNotification(7)
	notYetDue.NextRetryAt = &future
	require.NoError(t, repo.Create(ctx, notYetDue))

	allSent := storedNotification(7)
	allSent.NextRetryAt = &due
	allSent.Channels.Push.Sent = true
	allSent.Channels.SMS.Sent = true
	allSent.Channels.Email.Sent = true
	require.NoError(t, repo.Create(ctx, allSent))

	expired := storedNotification(7)
	expired.NextRetryAt = &due
	expired.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, expired))

	got, err := repo.FindRetryEligible(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, eligible.NotificationID, got[0].NotificationID)
}

func TestNotificationRepository_FindRetryEligible_PartialSend(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	due := now.Add(-time.Minute)

	// Push landed, email did not. Still eligible.
	n := storedNotification(7)
	n.NextRetryAt = &due
	n.Channels.Push.Sent = true
	n.Channels.SMS.Sent = true
	require.NoError(t, repo.Create(ctx, n))

	got, err := repo.FindRetryEligible(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestNotificationRepository_FindPendingReceipts(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	pending := storedNotification(7)
	pending.Channels.Push.Sent = true
	pending.Channels.Push.TicketID = "ticket-1"
	require.NoError(t, repo.Create(ctx, pending))

	delivered := storedNotification(7)
	delivered.Channels.Push.Sent = true
	delivered.Channels.Push.TicketID = "ticket-2"
	delivered.Channels.Push.Delivered = true
	require.NoError(t, repo.Create(ctx, delivered))

	noTicket := storedNotification(7)
	noTicket.Channels.Push.Sent = true
	require.NoError(t, repo.Create(ctx, noTicket))

	stale := storedNotification(7)
	stale.Channels.Push.Sent = true
	stale.Channels.Push.TicketID = "ticket-3"
	stale.CreatedAt = now.Add(-48 * time.Hour)
	require.NoError(t, repo.Create(ctx, stale))

	got, err := repo.FindPendingReceipts(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ticket-1", got[0].Channels.Push.TicketID)
}

func TestNotificationRepository_DeleteExpired(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	expired := storedNotification(7)
	expired.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, expired))

	live := storedNotification(7)
	require.NoError(t, repo.Create(ctx, live))

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	// Sweeping again removes nothing.
	deleted, err = repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Zero(t, deleted)

	got, err := repo.ListByUser(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, live.NotificationID, got[0].NotificationID)
}

func TestNotificationRepository_Stats(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	sent := storedNotification(7)
	sent.Channels.Push.Sent = true
	sent.RetryCount = 2
	require.NoError(t, repo.Create(ctx, sent))

	delivered := storedNotification(7)
	delivered.Channels.Push.Sent = true
	delivered.Channels.Push.Delivered = true
	require.NoError(t, repo.Create(ctx, delivered))

	failed := storedNotification(7)
	failed.Channels.Push.Error = "DeviceNotRegistered"
	require.NoError(t, repo.Create(ctx, failed))

	otherUser := storedNotification(8)
	otherUser.Channels.Push.Sent = true
	require.NoError(t, repo.Create(ctx, otherUser))

	all, err := repo.Stats(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(4), all.Total)
	require.Equal(t, int64(3), all.Sent)
	require.Equal(t, int64(1), all.Delivered)
	require.Equal(t, int64(1), all.Failed)
	require.InDelta(t, 0.5, all.AvgRetries, 0.001)

	userID := int64(7)
	scoped, err := repo.Stats(ctx, &userID)
	require.NoError(t, err)
	require.Equal(t, int64(3), scoped.Total)
	require.Equal(t, int64(2), scoped.Sent)
}
