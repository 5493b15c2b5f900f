package notification

import "errors"

var (
	// ErrNotification marks a failed confirmation notice.
	ErrNotification = errors.New("notification failed")
	// ErrWebhookDispatch marks a downstream sink that gave up.
	ErrWebhookDispatch = errors.New("downstream dispatch failed")
)
