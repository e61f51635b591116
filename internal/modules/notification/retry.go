package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medalert/internal/domain"

	"gorm.io/gorm"
)

// RetryFailed finds notifications eligible for another delivery attempt
// and re-runs channel dispatch for them. Only channels that have not yet
// completed a send are re-attempted. One notification's failure never
// aborts the rest of the batch.
func (s *Service) RetryFailed(ctx context.Context) error {
	now := time.Now()

	eligible, err := s.repo.FindRetryEligible(ctx, now)
	if err != nil {
		return fmt.Errorf("retry sweep: %w", err)
	}

	retried := 0
	for i := range eligible {
		n := &eligible[i]
		if err := s.retryOne(ctx, n); err != nil {
			s.log.Error().
				Str("notification_id", n.NotificationID).
				Err(err).
				Msg("retry attempt failed")
			continue
		}
		retried++
	}

	if len(eligible) > 0 {
		s.log.Info().
			Int("eligible", len(eligible)).
			Int("retried", retried).
			Msg("retry sweep completed")
	}
	return nil
}

func (s *Service) retryOne(ctx context.Context, n *domain.Notification) error {
	user, err := s.users.FindByID(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn().
				Str("notification_id", n.NotificationID).
				Int64("user_id", n.UserID).
				Msg("recipient no longer exists, skipping retry")
			return nil
		}
		return fmt.Errorf("resolve recipient %d: %w", n.UserID, err)
	}

	// Re-apply preference gating: the recipient may have changed channel
	// settings since the original dispatch. Already-sent channels are
	// never re-attempted.
	var pending []channelKind
	for _, ch := range enabledChannels(user, n.Priority) {
		switch ch {
		case channelPush:
			if !n.Channels.Push.Sent {
				pending = append(pending, ch)
			}
		case channelSMS:
			if !n.Channels.SMS.Sent {
				pending = append(pending, ch)
			}
		case channelEmail:
			if !n.Channels.Email.Sent {
				pending = append(pending, ch)
			}
		}
	}

	now := time.Now()

	if len(pending) == 0 {
		// Nothing left to attempt on this record; stop reselecting it.
		n.NextRetryAt = nil
		return s.repo.Save(ctx, n)
	}

	outcomes := s.fanOut(ctx, user, n, pending)

	anyFailure := false
	for _, out := range outcomes {
		switch {
		case out.skipped:

		case out.failed():
			anyFailure = true
			applyError(n, out, outcomeErrText(out))
			if out.providerErr != "" {
				// Request reached the provider; the send counts even
				// though the message was rejected.
				applySuccess(n, out)
			}

		default:
			applySuccess(n, out)
		}
	}

	if anyFailure {
		n.BumpRetry(now)
	} else {
		n.NextRetryAt = nil
	}

	return s.repo.Save(ctx, n)
}
