package notification

import (
	"context"
	"fmt"
	"time"

	"medalert/internal/domain"
	"medalert/internal/pkg/expo"
)

// receiptLookback bounds how far back the reconciler polls for
// sent-but-unconfirmed push notifications. Older tickets are considered
// stale by the provider and are not worth querying.
const receiptLookback = 24 * time.Hour

// CheckReceipts reconciles push-provider delivery receipts against
// pending push notifications. Receipts are fetched in provider-limit
// batches; a failing batch or a failing per-record persist is logged and
// skipped without aborting the rest.
func (s *Service) CheckReceipts(ctx context.Context) error {
	now := time.Now()

	pending, err := s.repo.FindPendingReceipts(ctx, now.Add(-receiptLookback))
	if err != nil {
		return fmt.Errorf("receipt sweep: %w", err)
	}
	if len(pending) == 0 {
		s.log.Debug().Msg("no pending push receipts to check")
		return nil
	}

	ticketIDs := make([]string, 0, len(pending))
	for i := range pending {
		if id := pending[i].Channels.Push.TicketID; id != "" {
			ticketIDs = append(ticketIDs, id)
		}
	}

	checked := 0
	for start := 0; start < len(ticketIDs); start += expo.ReceiptBatchLimit {
		end := start + expo.ReceiptBatchLimit
		if end > len(ticketIDs) {
			end = len(ticketIDs)
		}

		receipts, err := s.push.GetReceipts(ctx, ticketIDs[start:end])
		if err != nil {
			s.log.Error().Err(err).Msg("receipt batch fetch failed")
			continue
		}

		for i := range pending {
			n := &pending[i]

			receipt, ok := receipts[n.Channels.Push.TicketID]
			if !ok {
				continue
			}

			s.applyReceipt(n, receipt, time.Now())

			if err := s.repo.Save(ctx, n); err != nil {
				s.log.Error().
					Str("notification_id", n.NotificationID).
					Err(err).
					Msg("failed to persist receipt update")
				continue
			}
			checked++
		}
	}

	s.log.Info().
		Int("pending", len(pending)).
		Int("updated", checked).
		Msg("receipt sweep completed")
	return nil
}

// applyReceipt folds one provider receipt into the notification. A
// success confirms delivery; a permanently invalid device records the
// error without scheduling a retry; any other error consumes a retry
// attempt with backoff while attempts remain.
func (s *Service) applyReceipt(n *domain.Notification, receipt expo.Receipt, now time.Time) {
	switch receipt.Status {
	case expo.StatusOK:
		n.Channels.Push.Delivered = true
		n.Channels.Push.DeliveredAt = &now
		s.publish(n.UserID, FeedEventDelivered, n)
		s.log.Debug().
			Str("notification_id", n.NotificationID).
			Msg("push delivery confirmed")

	case expo.StatusError:
		errText := receipt.Message
		if errText == "" {
			errText = "unknown provider error"
		}
		n.Channels.Push.Error = errText

		if receipt.Details != nil && receipt.Details.Error == expo.ErrorDeviceNotRegistered {
			// Permanent failure: the token is dead, retrying is pointless.
			n.NextRetryAt = nil
			s.log.Warn().
				Str("notification_id", n.NotificationID).
				Msg("device unregistered, retry suppressed")
			return
		}

		if !n.RetriesExhausted() {
			n.BumpRetry(now)
		}
	}
}
