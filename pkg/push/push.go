// Package push holds the outbound push transports. Both report a permanently
// invalid endpoint as ErrSubscriptionGone so callers can deactivate it.
package push

import "errors"

// ErrSubscriptionGone means the endpoint will never accept deliveries again
var ErrSubscriptionGone = errors.New("push subscription gone")

// Message is the compact JSON payload sent to devices
type Message struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	NotificationID string `json:"notification_id"`
	ActionURL      string `json:"action_url,omitempty"`
}
