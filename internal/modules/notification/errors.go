package notification

import "errors"

var (
	ErrValidation           = errors.New("validation error")
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
