package notification

import (
	"time"

	"medalert/internal/domain"
)

// SendIntent is the dispatch request coming from the alert workflow.
type SendIntent struct {
	UserID       int64
	AlertID      string
	Type         domain.Type
	Title        string
	Message      string
	Priority     domain.Priority
	Data         domain.NotificationData
	ScheduledFor *time.Time
	MaxRetries   int
}

// DispatchRequest is the HTTP shape of a dispatch call.
type DispatchRequest struct {
	UserID       int64                   `json:"user_id" binding:"required"`
	AlertID      string                  `json:"alert_id" binding:"required"`
	Type         string                  `json:"type" binding:"required"`
	Title        string                  `json:"title" binding:"required,max=100"`
	Message      string                  `json:"message" binding:"required,max=500"`
	Priority     string                  `json:"priority"`
	Data         domain.NotificationData `json:"data"`
	ScheduledFor *time.Time              `json:"scheduled_for,omitempty"`
}

// ToIntent converts the HTTP request into a dispatch intent.
func (r DispatchRequest) ToIntent() SendIntent {
	return SendIntent{
		UserID:       r.UserID,
		AlertID:      r.AlertID,
		Type:         domain.Type(r.Type),
		Title:        r.Title,
		Message:      r.Message,
		Priority:     domain.Priority(r.Priority),
		Data:         r.Data,
		ScheduledFor: r.ScheduledFor,
	}
}

// FeedEvent is pushed to the live feed when a notification is created or
// confirmed delivered.
type FeedEvent struct {
	Kind         string               `json:"kind"`
	Notification *domain.Notification `json:"notification"`
}

const (
	FeedEventCreated   = "notification.created"
	FeedEventDelivered = "notification.delivered"
)
