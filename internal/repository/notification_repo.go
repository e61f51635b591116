package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medalert/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateNotification is returned when a notification with the same
// public id already exists.
var ErrDuplicateNotification = errors.New("duplicate notification id")

// DeliveryStats aggregates push delivery outcomes, optionally scoped to
// one recipient.
type DeliveryStats struct {
	Total      int64   `json:"total"`
	Sent       int64   `json:"sent"`
	Delivered  int64   `json:"delivered"`
	Failed     int64   `json:"failed"`
	AvgRetries float64 `json:"avg_retries"`
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type notificationModel struct {
	ID             int64  `gorm:"column:id;primaryKey"`
	NotificationID string `gorm:"column:notification_id;uniqueIndex"`
	UserID         int64  `gorm:"column:user_id;index:idx_notifications_user_created,priority:1"`
	AlertID        string `gorm:"column:alert_id;index"`
	Type           string `gorm:"column:type"`
	Title          string `gorm:"column:title;size:100"`
	Message        string `gorm:"column:message;size:500"`
	Data           []byte `gorm:"column:data;type:jsonb"`
	Priority       string `gorm:"column:priority;index"`

	PushSent        bool       `gorm:"column:push_sent"`
	PushSentAt      *time.Time `gorm:"column:push_sent_at"`
	PushTicketID    string     `gorm:"column:push_ticket_id;index"`
	PushDelivered   bool       `gorm:"column:push_delivered"`
	PushDeliveredAt *time.Time `gorm:"column:push_delivered_at"`
	PushClicked     bool       `gorm:"column:push_clicked"`
	PushClickedAt   *time.Time `gorm:"column:push_clicked_at"`
	PushError       string     `gorm:"column:push_error"`

	SMSSent        bool       `gorm:"column:sms_sent"`
	SMSSentAt      *time.Time `gorm:"column:sms_sent_at"`
	SMSDelivered   bool       `gorm:"column:sms_delivered"`
	SMSDeliveredAt *time.Time `gorm:"column:sms_delivered_at"`
	SMSPhoneNumber string     `gorm:"column:sms_phone_number"`
	SMSError       string     `gorm:"column:sms_error"`

	EmailSent        bool       `gorm:"column:email_sent"`
	EmailSentAt      *time.Time `gorm:"column:email_sent_at"`
	EmailDelivered   bool       `gorm:"column:email_delivered"`
	EmailDeliveredAt *time.Time `gorm:"column:email_delivered_at"`
	EmailAddress     string     `gorm:"column:email_address"`
	EmailError       string     `gorm:"column:email_error"`

	IsRead       bool       `gorm:"column:is_read;index"`
	ReadAt       *time.Time `gorm:"column:read_at"`
	RetryCount   int        `gorm:"column:retry_count"`
	MaxRetries   int        `gorm:"column:max_retries"`
	LastRetryAt  *time.Time `gorm:"column:last_retry_at"`
	NextRetryAt  *time.Time `gorm:"column:next_retry_at;index"`
	ScheduledFor time.Time  `gorm:"column:scheduled_for;index"`
	ExpiresAt    time.Time  `gorm:"column:expires_at;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;index:idx_notifications_user_created,priority:2"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (notificationModel) TableName() string { return "notifications" }

// Model exported for store migration.
func (r *NotificationRepository) Model() interface{} { return &notificationModel{} }

func toDomainNotification(m notificationModel) *domain.Notification {
	var data domain.NotificationData
	if len(m.Data) > 0 {
		_ = json.Unmarshal(m.Data, &data)
	}

	return &domain.Notification{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		UserID:         m.UserID,
		AlertID:        m.AlertID,
		Type:           domain.Type(m.Type),
		Title:          m.Title,
		Message:        m.Message,
		Data:           data,
		Priority:       domain.Priority(m.Priority),
		Channels: domain.Channels{
			Push: domain.PushChannel{
				Sent:        m.PushSent,
				SentAt:      m.PushSentAt,
				TicketID:    m.PushTicketID,
				Delivered:   m.PushDelivered,
				DeliveredAt: m.PushDeliveredAt,
				Clicked:     m.PushClicked,
				ClickedAt:   m.PushClickedAt,
				Error:       m.PushError,
			},
			SMS: domain.SMSChannel{
				Sent:        m.SMSSent,
				SentAt:      m.SMSSentAt,
				Delivered:   m.SMSDelivered,
				DeliveredAt: m.SMSDeliveredAt,
				PhoneNumber: m.SMSPhoneNumber,
				Error:       m.SMSError,
			},
			Email: domain.EmailChannel{
				Sent:         m.EmailSent,
				SentAt:       m.EmailSentAt,
				Delivered:    m.EmailDelivered,
				DeliveredAt:  m.EmailDeliveredAt,
				EmailAddress: m.EmailAddress,
				Error:        m.EmailError,
			},
		},
		IsRead:       m.IsRead,
		ReadAt:       m.ReadAt,
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		LastRetryAt:  m.LastRetryAt,
		NextRetryAt:  m.NextRetryAt,
		ScheduledFor: m.ScheduledFor,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toNotificationModel(n *domain.Notification) notificationModel {
	data, _ := json.Marshal(n.Data)

	return notificationModel{
		ID:             n.ID,
		NotificationID: n.NotificationID,
		UserID:         n.UserID,
		AlertID:        n.AlertID,
		Type:           string(n.Type),
		Title:          n.Title,
		Message:        n.Message,
		Data:           data,
		Priority:       string(n.Priority),

		PushSent:        n.Channels.Push.Sent,
		PushSentAt:      n.Channels.Push.SentAt,
		PushTicketID:    n.Channels.Push.TicketID,
		PushDelivered:   n.Channels.Push.Delivered,
		PushDeliveredAt: n.Channels.Push.DeliveredAt,
		PushClicked:     n.Channels.Push.Clicked,
		PushClickedAt:   n.Channels.Push.ClickedAt,
		PushError:       n.Channels.Push.Error,

		SMSSent:        n.Channels.SMS.Sent,
		SMSSentAt:      n.Channels.SMS.SentAt,
		SMSDelivered:   n.Channels.SMS.Delivered,
		SMSDeliveredAt: n.Channels.SMS.DeliveredAt,
		SMSPhoneNumber: n.Channels.SMS.PhoneNumber,
		SMSError:       n.Channels.SMS.Error,

		EmailSent:        n.Channels.Email.Sent,
		EmailSentAt:      n.Channels.Email.SentAt,
		EmailDelivered:   n.Channels.Email.Delivered,
		EmailDeliveredAt: n.Channels.Email.DeliveredAt,
		EmailAddress:     n.Channels.Email.EmailAddress,
		EmailError:       n.Channels.Email.Error,

		IsRead:       n.IsRead,
		ReadAt:       n.ReadAt,
		RetryCount:   n.RetryCount,
		MaxRetries:   n.MaxRetries,
		LastRetryAt:  n.LastRetryAt,
		NextRetryAt:  n.NextRetryAt,
		ScheduledFor: n.ScheduledFor,
		ExpiresAt:    n.ExpiresAt,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

// Create persists a new notification and fills in the store-managed id
// and timestamps.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	m := toNotificationModel(n)

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNotification
		}
		return fmt.Errorf("create notification: %w", err)
	}

	n.ID = m.ID
	n.CreatedAt = m.CreatedAt
	n.UpdatedAt = m.UpdatedAt
	return nil
}

// Save replaces the full stored record with the given state. Persisting
// the whole record rather than a delta keeps concurrent component writes
// from losing each other's channel updates within a read-mutate-persist
// cycle.
func (r *NotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	m := toNotificationModel(n)

	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return fmt.Errorf("save notification %s: %w", n.NotificationID, err)
	}

	n.UpdatedAt = m.UpdatedAt
	return nil
}

// GetForRecipient looks up a notification by public id scoped to one
// recipient. Returns gorm.ErrRecordNotFound when no matching record exists
// for that recipient.
func (r *NotificationRepository) GetForRecipient(ctx context.Context, notificationID string, userID int64) (*domain.Notification, error) {
	var m notificationModel
	err := r.db.WithContext(ctx).
		Where("notification_id = ? AND user_id = ?", notificationID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return toDomainNotification(m), nil
}

// ListByUser returns the recipient's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	var models []notificationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications for user %d: %w", userID, err)
	}

	out := make([]domain.Notification, 0, len(models))
	for _, m := range models {
		out = append(out, *toDomainNotification(m))
	}
	return out, nil
}

// FindRetryEligible returns notifications due for another delivery
// attempt: retries remaining, retry time reached, at least one channel
// not yet sent, and not expired.
func (r *NotificationRepository) FindRetryEligible(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	var models []notificationModel
	err := r.db.WithContext(ctx).
		Where("retry_count < max_retries").
		Where("next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Where("(push_sent = ? OR sms_sent = ? OR email_sent = ?)", false, false, false).
		Where("expires_at > ?", now).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find retry eligible: %w", err)
	}

	out := make([]domain.Notification, 0, len(models))
	for _, m := range models {
		out = append(out, *toDomainNotification(m))
	}
	return out, nil
}

// FindPendingReceipts returns notifications whose push send was accepted
// by the provider but not yet confirmed delivered, bounded to records
// created after since.
func (r *NotificationRepository) FindPendingReceipts(ctx context.Context, since time.Time) ([]domain.Notification, error) {
	var models []notificationModel
	err := r.db.WithContext(ctx).
		Where("push_sent = ?", true).
		Where("push_delivered = ?", false).
		Where("push_ticket_id <> ''").
		Where("created_at >= ?", since).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find pending receipts: %w", err)
	}

	out := make([]domain.Notification, 0, len(models))
	for _, m := range models {
		out = append(out, *toDomainNotification(m))
	}
	return out, nil
}

// DeleteExpired bulk-removes notifications past their expiry horizon and
// returns the number deleted.
func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&notificationModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Stats aggregates push delivery counters. A nil userID aggregates over
// all recipients.
func (r *NotificationRepository) Stats(ctx context.Context, userID *int64) (DeliveryStats, error) {
	q := r.db.WithContext(ctx).Model(&notificationModel{})
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var stats DeliveryStats
	err := q.Select(
		"COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN push_sent THEN 1 ELSE 0 END), 0) AS sent, " +
			"COALESCE(SUM(CASE WHEN push_delivered THEN 1 ELSE 0 END), 0) AS delivered, " +
			"COALESCE(SUM(CASE WHEN push_error <> '' THEN 1 ELSE 0 END), 0) AS failed, " +
			"COALESCE(AVG(retry_count), 0) AS avg_retries",
	).Scan(&stats).Error
	if err != nil {
		return DeliveryStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}
