package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medalert/internal/domain"
	"medalert/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const defaultListLimit = 50

// Service is the notification dispatch and delivery-tracking engine. It
// owns the synchronous dispatch path and the bodies of the three periodic
// loops (retry, receipt reconciliation, expiry sweep).
type Service struct {
	repo  NotificationRepository
	users UserDirectory
	push  PushProvider
	sms   SMSSender
	email EmailSender
	feed  EventPublisher

	log         zerolog.Logger
	sendTimeout time.Duration
}

func NewService(
	repo NotificationRepository,
	users UserDirectory,
	push PushProvider,
	sms SMSSender,
	email EmailSender,
	feed EventPublisher,
	log zerolog.Logger,
	sendTimeout time.Duration,
) *Service {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Service{
		repo:        repo,
		users:       users,
		push:        push,
		sms:         sms,
		email:       email,
		feed:        feed,
		log:         log,
		sendTimeout: sendTimeout,
	}
}

// Dispatch creates a notification record and fans out to the recipient's
// enabled channels. It returns after every attempted channel has reported;
// individual channel failures are recorded on the record, never returned.
// Only an unresolvable recipient or a store failure propagates.
func (s *Service) Dispatch(ctx context.Context, intent SendIntent) (*domain.Notification, error) {
	if intent.Priority == "" {
		intent.Priority = domain.PriorityMedium
	}
	if err := validateIntent(intent); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, intent.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("resolve recipient %d: %w", intent.UserID, err)
	}

	now := time.Now()

	scheduledFor := now
	if intent.ScheduledFor != nil {
		scheduledFor = *intent.ScheduledFor
	}

	maxRetries := intent.MaxRetries
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}

	n := &domain.Notification{
		NotificationID: domain.NewNotificationID(),
		UserID:         user.ID,
		AlertID:        intent.AlertID,
		Type:           intent.Type,
		Title:          intent.Title,
		Message:        intent.Message,
		Data:           intent.Data,
		Priority:       intent.Priority,
		MaxRetries:     maxRetries,
		ScheduledFor:   scheduledFor,
		ExpiresAt:      now.Add(domain.DefaultExpiry),
	}

	deferred := scheduledFor.After(now)
	if deferred {
		// A future scheduledFor parks the record for the retry loop,
		// which picks it up once the dispatch time arrives.
		n.NextRetryAt = &scheduledFor
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if !deferred {
		channels := enabledChannels(user, n.Priority)
		if len(channels) > 0 {
			outcomes := s.fanOut(ctx, user, n, channels)
			s.applyDispatchOutcomes(n, outcomes, time.Now())

			if err := s.repo.Save(ctx, n); err != nil {
				return nil, err
			}
		}
	}

	s.publish(user.ID, FeedEventCreated, n)

	s.log.Info().
		Str("notification_id", n.NotificationID).
		Str("alert_id", n.AlertID).
		Int64("user_id", user.ID).
		Str("priority", string(n.Priority)).
		Bool("deferred", deferred).
		Msg("notification dispatched")

	return n, nil
}

// applyDispatchOutcomes writes the joined fan-out results onto the record.
// Transport failures bump the retry counter; an immediate provider
// rejection of a push schedules the first retry without consuming an
// attempt, since the retry loop has not run yet.
func (s *Service) applyDispatchOutcomes(n *domain.Notification, outcomes []channelOutcome, now time.Time) {
	for _, out := range outcomes {
		switch {
		case out.skipped:

		case out.err != nil:
			applyError(n, out, out.err.Error())
			n.BumpRetry(now)
			s.log.Warn().
				Str("notification_id", n.NotificationID).
				Str("channel", string(out.channel)).
				Err(out.err).
				Msg("channel send failed")

		case out.providerErr != "":
			// The provider accepted the request but rejected the message.
			applySuccess(n, out)
			applyError(n, out, out.providerErr)
			next := domain.NextRetryTime(n.RetryCount, now)
			n.NextRetryAt = &next
			s.log.Warn().
				Str("notification_id", n.NotificationID).
				Str("channel", string(out.channel)).
				Str("error", out.providerErr).
				Msg("provider rejected message")

		default:
			applySuccess(n, out)
		}
	}
}

// ListForRecipient returns the recipient's notifications, newest first.
func (s *Service) ListForRecipient(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// MarkRead marks a notification as read on behalf of its recipient.
// Returns ErrNotificationNotFound when no record with that id belongs to
// the recipient.
func (s *Service) MarkRead(ctx context.Context, notificationID string, userID int64) (*domain.Notification, error) {
	n, err := s.repo.GetForRecipient(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("find notification %s: %w", notificationID, err)
	}

	n.MarkAsRead()

	if err := s.repo.Save(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// DeliveryStats aggregates push delivery counters, optionally scoped to
// one recipient.
func (s *Service) DeliveryStats(ctx context.Context, userID *int64) (repository.DeliveryStats, error) {
	return s.repo.Stats(ctx, userID)
}

func (s *Service) publish(userID int64, kind string, n *domain.Notification) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(userID, FeedEvent{Kind: kind, Notification: n})
}

func validateIntent(intent SendIntent) error {
	switch {
	case intent.UserID <= 0,
		intent.AlertID == "",
		intent.Title == "",
		intent.Message == "",
		len(intent.Title) > domain.MaxTitleLength,
		len(intent.Message) > domain.MaxMessageLength:
		return ErrValidation
	}

	switch intent.Type {
	case domain.TypeAlertAssigned, domain.TypeAlertForwarded, domain.TypeAlertReturned,
		domain.TypeAlertCompleted, domain.TypeReminder:
	default:
		return ErrValidation
	}

	switch intent.Priority {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent:
	default:
		return ErrValidation
	}

	return nil
}
