package models

import (
	"encoding/json"
	"time"
)

// PushSubscription is a user's push endpoint (PostgreSQL).
// Payload is opaque: a web-push subscription JSON or an FCM registration token.
type PushSubscription struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	UserID      string     `json:"user_id" gorm:"size:64;not null;index;uniqueIndex:idx_push_user_payload"`
	PayloadHash string     `json:"-" gorm:"size:64;not null;uniqueIndex:idx_push_user_payload"`
	Payload     string     `json:"-" gorm:"type:text;not null"`
	DeviceLabel string     `json:"device_label" gorm:"size:100"`
	IsActive    bool       `json:"is_active" gorm:"not null;index"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SubscribePushRequest defines the request body for registering a push endpoint.
// Subscription is either a browser PushSubscription object or an FCM token string.
type SubscribePushRequest struct {
	Subscription json.RawMessage `json:"subscription" validate:"required"`
	DeviceLabel  string          `json:"device_label,omitempty" validate:"omitempty,max=100"`
}

// Payload returns the subscription as stored: the JSON object verbatim, or the bare token
func (r *SubscribePushRequest) Payload() string {
	var token string
	if err := json.Unmarshal(r.Subscription, &token); err == nil {
		return token
	}
	return string(r.Subscription)
}
