package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification by the workflow event that produced it.
type Type string

const (
	TypeAlertAssigned  Type = "alert_assigned"
	TypeAlertForwarded Type = "alert_forwarded"
	TypeAlertReturned  Type = "alert_returned"
	TypeAlertCompleted Type = "alert_completed"
	TypeReminder       Type = "reminder"
)

// Priority orders notifications for escalation purposes.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Retry/backoff defaults. Delay grows as InitialRetryDelay * 2^retryCount,
// capped at MaxRetryDelay.
const (
	InitialRetryDelay = 1 * time.Second
	MaxRetryDelay     = 60 * time.Second
	DefaultMaxRetries = 3

	// DefaultExpiry is how long a notification stays in the store before
	// the sweeper removes it.
	DefaultExpiry = 24 * time.Hour

	MaxTitleLength   = 100
	MaxMessageLength = 500
)

// RetryDelay returns the backoff delay for the given retry count.
func RetryDelay(retryCount int) time.Duration {
	delay := InitialRetryDelay << uint(retryCount)
	if delay > MaxRetryDelay || delay <= 0 {
		delay = MaxRetryDelay
	}
	return delay
}

// NextRetryTime returns when the next retry attempt should happen,
// computed from the given retry count. Always strictly after now.
func NextRetryTime(retryCount int, now time.Time) time.Time {
	return now.Add(RetryDelay(retryCount))
}

// NewNotificationID generates a public notification identifier, distinct
// from the store's record id.
func NewNotificationID() string {
	return fmt.Sprintf("NOTIF-%s", uuid.NewString())
}

// NotificationData carries the structured payload shown to the recipient's
// client. It is opaque to the dispatch engine beyond size limits.
type NotificationData struct {
	AlertID        string `json:"alert_id"`
	PatientName    string `json:"patient_name"`
	Severity       string `json:"severity"`
	Stage          string `json:"stage"`
	ActionRequired string `json:"action_required,omitempty"`
}

// PushChannel tracks delivery state for the push path. TicketID is the
// provider correlation token used later to fetch a delivery receipt.
type PushChannel struct {
	Sent        bool       `json:"sent"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	TicketID    string     `json:"ticket_id,omitempty"`
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	Clicked     bool       `json:"clicked"`
	ClickedAt   *time.Time `json:"clicked_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// SMSChannel tracks delivery state for the SMS path.
type SMSChannel struct {
	Sent        bool       `json:"sent"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// EmailChannel tracks delivery state for the email path.
type EmailChannel struct {
	Sent         bool       `json:"sent"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	Delivered    bool       `json:"delivered"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	EmailAddress string     `json:"email_address,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Channels groups the per-channel delivery sub-records. Each channel owns
// disjoint fields and is tracked independently.
type Channels struct {
	Push  PushChannel  `json:"push"`
	SMS   SMSChannel   `json:"sms"`
	Email EmailChannel `json:"email"`
}

// Notification is a single multi-channel delivery record tied to one alert
// event and one recipient.
type Notification struct {
	ID             int64            `json:"-"`
	NotificationID string           `json:"notification_id"`
	UserID         int64            `json:"user_id"`
	AlertID        string           `json:"alert_id"`
	Type           Type             `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Data           NotificationData `json:"data"`
	Channels       Channels         `json:"channels"`
	Priority       Priority         `json:"priority"`
	IsRead         bool             `json:"is_read"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	RetryCount     int              `json:"retry_count"`
	MaxRetries     int              `json:"max_retries"`
	LastRetryAt    *time.Time       `json:"last_retry_at,omitempty"`
	NextRetryAt    *time.Time       `json:"next_retry_at,omitempty"`
	ScheduledFor   time.Time        `json:"scheduled_for"`
	ExpiresAt      time.Time        `json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// MarkAsRead marks the notification as read with a timestamp.
func (n *Notification) MarkAsRead() {
	n.IsRead = true
	now := time.Now()
	n.ReadAt = &now
}

// AllChannelsSent reports whether every channel has completed a send.
func (n *Notification) AllChannelsSent() bool {
	return n.Channels.Push.Sent && n.Channels.SMS.Sent && n.Channels.Email.Sent
}

// RetriesExhausted reports whether the notification is out of automatic
// retry attempts.
func (n *Notification) RetriesExhausted() bool {
	return n.RetryCount >= n.MaxRetries
}

// BumpRetry records a failed attempt: the next retry time is computed at
// the current retry count, then the count is incremented. Once the maximum
// is reached the next retry time is cleared and the notification becomes
// terminal until it expires.
func (n *Notification) BumpRetry(now time.Time) {
	next := NextRetryTime(n.RetryCount, now)
	n.NextRetryAt = &next
	n.RetryCount++
	n.LastRetryAt = &now

	if n.RetryCount >= n.MaxRetries {
		if n.RetryCount > n.MaxRetries {
			n.RetryCount = n.MaxRetries
		}
		n.NextRetryAt = nil
	}
}
