package notification

import "errors"

var (
	ErrNoRecipients = errors.New("notification: no recipients configured")
	ErrNoWebhookURL = errors.New("notification: rule has no webhook URL")
	ErrWebhookReply = errors.New("notification: webhook returned an error status")
)
