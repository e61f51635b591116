package notification

import (
	"context"
	"sync"
	"time"

	"medalert/internal/domain"
	"medalert/internal/pkg/expo"
)

type channelKind string

const (
	channelPush  channelKind = "push"
	channelSMS   channelKind = "sms"
	channelEmail channelKind = "email"
)

// channelOutcome is the result of one channel attempt. Exactly one of the
// terminal states applies: skipped, success, transport failure (err), or
// immediate provider rejection (providerErr, push only).
type channelOutcome struct {
	channel     channelKind
	skipped     bool
	sentAt      time.Time
	ticketID    string
	destination string
	err         error
	providerErr string
}

func (o channelOutcome) failed() bool {
	return o.err != nil || o.providerErr != ""
}

// enabledChannels returns the channels to attempt for this recipient and
// priority. A channel is attempted only when the recipient has it enabled
// and, under urgentOnly, the priority is urgent.
func enabledChannels(user *domain.User, priority domain.Priority) []channelKind {
	if user.Preferences.UrgentOnly && priority != domain.PriorityUrgent {
		return nil
	}

	var channels []channelKind
	if user.Preferences.Push {
		channels = append(channels, channelPush)
	}
	if user.Preferences.SMS && user.Phone != "" {
		channels = append(channels, channelSMS)
	}
	if user.Preferences.Email && user.Email != "" {
		channels = append(channels, channelEmail)
	}
	return channels
}

// fanOut attempts every requested channel concurrently and waits for all
// of them. A slow or failing channel never blocks the others; each attempt
// is bounded by the per-send timeout. Outcomes are returned for the caller
// to apply after the join.
func (s *Service) fanOut(ctx context.Context, user *domain.User, n *domain.Notification, channels []channelKind) []channelOutcome {
	outcomes := make([]channelOutcome, len(channels))

	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch channelKind) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
			defer cancel()

			switch ch {
			case channelPush:
				outcomes[i] = s.attemptPush(sendCtx, user, n)
			case channelSMS:
				outcomes[i] = s.attemptSMS(sendCtx, user, n)
			case channelEmail:
				outcomes[i] = s.attemptEmail(sendCtx, user, n)
			}
		}(i, ch)
	}
	wg.Wait()

	return outcomes
}

// attemptPush sends one push message. A recipient without a valid push
// token is silently skipped rather than counted as a failure.
func (s *Service) attemptPush(ctx context.Context, user *domain.User, n *domain.Notification) channelOutcome {
	out := channelOutcome{channel: channelPush}

	if !expo.IsPushToken(user.PushToken) {
		s.log.Debug().Int64("user_id", user.ID).Msg("no valid push token, skipping push channel")
		out.skipped = true
		return out
	}

	msgPriority := "normal"
	channelID := "default"
	if n.Priority == domain.PriorityUrgent {
		msgPriority = "high"
		channelID = "urgent-alerts"
	}

	msg := expo.Message{
		To:    user.PushToken,
		Title: n.Title,
		Body:  n.Message,
		Data: map[string]string{
			"alert_id":     n.Data.AlertID,
			"type":         string(n.Type),
			"priority":     string(n.Priority),
			"patient_name": n.Data.PatientName,
			"severity":     n.Data.Severity,
			"stage":        n.Data.Stage,
		},
		Sound:     "default",
		Priority:  msgPriority,
		ChannelID: channelID,
	}

	tickets, err := s.push.SendBatch(ctx, []expo.Message{msg})
	if err != nil {
		out.err = err
		return out
	}

	out.sentAt = time.Now()
	ticket := tickets[0]

	switch ticket.Status {
	case expo.StatusOK:
		out.ticketID = ticket.ID
	case expo.StatusError:
		if ticket.Message != "" {
			out.providerErr = ticket.Message
		} else {
			out.providerErr = "unknown provider error"
		}
	}

	return out
}

func (s *Service) attemptSMS(ctx context.Context, user *domain.User, n *domain.Notification) channelOutcome {
	out := channelOutcome{channel: channelSMS, destination: user.Phone}

	if err := s.sms.Send(ctx, user.Phone, n.Title, n.Message); err != nil {
		out.err = err
		return out
	}

	out.sentAt = time.Now()
	return out
}

func (s *Service) attemptEmail(ctx context.Context, user *domain.User, n *domain.Notification) channelOutcome {
	out := channelOutcome{channel: channelEmail, destination: user.Email}

	if err := s.email.Send(ctx, user.Email, n.Title, n.Message); err != nil {
		out.err = err
		return out
	}

	out.sentAt = time.Now()
	return out
}

// applySuccess records the success-side fields of an outcome on the
// matching channel sub-record.
func applySuccess(n *domain.Notification, out channelOutcome) {
	sentAt := out.sentAt

	switch out.channel {
	case channelPush:
		n.Channels.Push.Sent = true
		n.Channels.Push.SentAt = &sentAt
		n.Channels.Push.TicketID = out.ticketID
	case channelSMS:
		n.Channels.SMS.Sent = true
		n.Channels.SMS.SentAt = &sentAt
		n.Channels.SMS.PhoneNumber = out.destination
	case channelEmail:
		n.Channels.Email.Sent = true
		n.Channels.Email.SentAt = &sentAt
		n.Channels.Email.EmailAddress = out.destination
	}
}

// applyError records the failure text on the matching channel sub-record.
func applyError(n *domain.Notification, out channelOutcome, errText string) {
	switch out.channel {
	case channelPush:
		n.Channels.Push.Error = errText
	case channelSMS:
		n.Channels.SMS.Error = errText
	case channelEmail:
		n.Channels.Email.Error = errText
	}
}

func outcomeErrText(out channelOutcome) string {
	if out.err != nil {
		return out.err.Error()
	}
	return out.providerErr
}
