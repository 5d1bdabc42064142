package services

import (
	"context"

	"github.com/anonto42/notification-engine/internal/models"
)

// Outcome is the result of one delivery attempt. Err is nil on success.
type Outcome struct {
	Channel        string
	SubscriptionID string
	Err            error
}

// Status maps the outcome onto the delivery log vocabulary
func (o Outcome) Status() string {
	if o.Err != nil {
		return models.DeliveryStatusFailed
	}
	return models.DeliveryStatusSent
}

// ChannelDispatcher delivers a notification on one channel. Failures are
// reported as outcomes, never returned.
type ChannelDispatcher interface {
	Channel() string
	Deliver(ctx context.Context, n *models.Notification) []Outcome
}

// InAppDispatcher records in-app delivery. The persisted row is the in-app
// delivery; connected clients are also pushed a copy when a publisher is set.
type InAppDispatcher struct {
	publisher Publisher
}

// NewInAppDispatcher creates a new in-app dispatcher. publisher may be nil.
func NewInAppDispatcher(publisher Publisher) *InAppDispatcher {
	return &InAppDispatcher{publisher: publisher}
}

// Channel returns the channel name
func (d *InAppDispatcher) Channel() string { return models.ChannelInApp }

// Deliver publishes to live connections and always succeeds
func (d *InAppDispatcher) Deliver(_ context.Context, n *models.Notification) []Outcome {
	if d.publisher != nil {
		d.publisher.Publish(n.UserID, map[string]any{
			"type": "notification",
			"data": n,
		})
	}
	return []Outcome{{Channel: models.ChannelInApp}}
}
