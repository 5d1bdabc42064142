package models

import "time"

// Delivery channels
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// Delivery statuses
const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// DeliveryLog is one append-only audit row per dispatch attempt.
// Stored in PostgreSQL or MongoDB depending on DELIVERY_LOG_BACKEND.
type DeliveryLog struct {
	ID             uint      `json:"-" gorm:"primaryKey" bson:"-"`
	NotificationID string    `json:"notification_id" gorm:"size:36;not null;index" bson:"notification_id"`
	UserID         string    `json:"user_id" gorm:"size:64;not null;index" bson:"user_id"`
	Channel        string    `json:"channel" gorm:"size:10;not null" bson:"channel"`
	Status         string    `json:"status" gorm:"size:10;not null" bson:"status"`
	SubscriptionID *string   `json:"subscription_id,omitempty" gorm:"size:36" bson:"subscription_id,omitempty"`
	Error          *string   `json:"error,omitempty" gorm:"type:text" bson:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
