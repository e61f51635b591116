package notification

import (
	"context"
	"time"

	"medalert/internal/domain"
	"medalert/internal/pkg/expo"
	"medalert/internal/repository"
)

// NotificationRepository defines the record-store operations the engine
// needs. Writes always replace the full record.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	Save(ctx context.Context, n *domain.Notification) error
	GetForRecipient(ctx context.Context, notificationID string, userID int64) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	FindRetryEligible(ctx context.Context, now time.Time) ([]domain.Notification, error)
	FindPendingReceipts(ctx context.Context, since time.Time) ([]domain.Notification, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Stats(ctx context.Context, userID *int64) (repository.DeliveryStats, error)
}

// UserDirectory resolves recipients and their channel preferences.
type UserDirectory interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// PushProvider is the push-channel capability: immediate send outcomes as
// tickets, asynchronous delivery confirmation as receipts.
type PushProvider interface {
	SendBatch(ctx context.Context, messages []expo.Message) ([]expo.Ticket, error)
	GetReceipts(ctx context.Context, ticketIDs []string) (map[string]expo.Receipt, error)
}

// SMSSender delivers one text message.
type SMSSender interface {
	Send(ctx context.Context, to, title, message string) error
}

// EmailSender delivers one notification email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EventPublisher pushes notification lifecycle events to connected
// dashboard clients. Best effort; delivery is not tracked.
type EventPublisher interface {
	Publish(userID int64, event interface{})
}
