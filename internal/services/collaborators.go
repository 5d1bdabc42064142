package services

import "context"

// UserDirectory resolves the address the email channel delivers to
type UserDirectory interface {
	GetEmail(ctx context.Context, userID string) (string, error)
}

// EmailTransport makes one outbound email attempt
type EmailTransport interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// PushTransport makes one outbound push attempt. A permanently invalid endpoint
// is reported with an error wrapping push.ErrSubscriptionGone.
type PushTransport interface {
	Deliver(ctx context.Context, subscription string, message []byte) error
}

// Publisher pushes in-app notifications to live clients
type Publisher interface {
	Publish(userID string, v any) int
}
