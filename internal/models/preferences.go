package models

import "time"

// Digest modes. Stored per user; delivery is always realtime.
const (
	DigestRealtime = "realtime"
	DigestHourly   = "hourly"
	DigestDaily    = "daily"
)

// NotificationPreferences holds a user's channel toggles (PostgreSQL).
// One row per user, created with defaults on first read.
type NotificationPreferences struct {
	ID     uint   `json:"-" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"size:64;not null;uniqueIndex"`

	InAppEnabled bool `json:"in_app_enabled" gorm:"not null"`
	EmailEnabled bool `json:"email_enabled" gorm:"not null"`
	PushEnabled  bool `json:"push_enabled" gorm:"not null"`

	EmailBooking  bool `json:"email_booking" gorm:"not null"`
	PushBooking   bool `json:"push_booking" gorm:"not null"`
	EmailApproval bool `json:"email_approval" gorm:"not null"`
	PushApproval  bool `json:"push_approval" gorm:"not null"`
	EmailPayment  bool `json:"email_payment" gorm:"not null"`
	PushPayment   bool `json:"push_payment" gorm:"not null"`
	EmailMessage  bool `json:"email_message" gorm:"not null"`
	PushMessage   bool `json:"push_message" gorm:"not null"`
	EmailSystem   bool `json:"email_system" gorm:"not null"`
	PushSystem    bool `json:"push_system" gorm:"not null"`

	QuietHoursEnabled bool    `json:"quiet_hours_enabled" gorm:"not null"`
	QuietHoursStart   *string `json:"quiet_hours_start,omitempty" gorm:"size:5"` // "22:00"
	QuietHoursEnd     *string `json:"quiet_hours_end,omitempty" gorm:"size:5"`   // "06:00"
	Timezone          string  `json:"timezone" gorm:"size:64;not null"`

	DigestMode string    `json:"digest_mode" gorm:"size:20;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefaultPreferences returns the row inserted on a user's first access
func DefaultPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:        userID,
		InAppEnabled:  true,
		EmailEnabled:  true,
		PushEnabled:   true,
		EmailBooking:  true,
		PushBooking:   true,
		EmailApproval: true,
		PushApproval:  true,
		EmailPayment:  true,
		PushPayment:   true,
		EmailMessage:  true,
		PushMessage:   true,
		EmailSystem:   true,
		PushSystem:    true,
		Timezone:      "UTC",
		DigestMode:    DigestRealtime,
	}
}

// EmailAllowed reports the per-category email toggle. Unknown categories are allowed.
func (p *NotificationPreferences) EmailAllowed(category string) bool {
	switch category {
	case TypeBooking:
		return p.EmailBooking
	case TypeApproval:
		return p.EmailApproval
	case TypePayment:
		return p.EmailPayment
	case TypeMessage:
		return p.EmailMessage
	case TypeSystem:
		return p.EmailSystem
	default:
		return true
	}
}

// PushAllowed reports the per-category push toggle. Unknown categories are allowed.
func (p *NotificationPreferences) PushAllowed(category string) bool {
	switch category {
	case TypeBooking:
		return p.PushBooking
	case TypeApproval:
		return p.PushApproval
	case TypePayment:
		return p.PushPayment
	case TypeMessage:
		return p.PushMessage
	case TypeSystem:
		return p.PushSystem
	default:
		return true
	}
}

// UpdatePreferencesRequest is a partial update: nil fields are left untouched
type UpdatePreferencesRequest struct {
	InAppEnabled *bool `json:"in_app_enabled,omitempty"`
	EmailEnabled *bool `json:"email_enabled,omitempty"`
	PushEnabled  *bool `json:"push_enabled,omitempty"`

	EmailBooking  *bool `json:"email_booking,omitempty"`
	PushBooking   *bool `json:"push_booking,omitempty"`
	EmailApproval *bool `json:"email_approval,omitempty"`
	PushApproval  *bool `json:"push_approval,omitempty"`
	EmailPayment  *bool `json:"email_payment,omitempty"`
	PushPayment   *bool `json:"push_payment,omitempty"`
	EmailMessage  *bool `json:"email_message,omitempty"`
	PushMessage   *bool `json:"push_message,omitempty"`
	EmailSystem   *bool `json:"email_system,omitempty"`
	PushSystem    *bool `json:"push_system,omitempty"`

	QuietHoursEnabled *bool   `json:"quiet_hours_enabled,omitempty"`
	QuietHoursStart   *string `json:"quiet_hours_start,omitempty" validate:"omitempty,clock"`
	QuietHoursEnd     *string `json:"quiet_hours_end,omitempty" validate:"omitempty,clock"`
	Timezone          *string `json:"timezone,omitempty" validate:"omitempty,max=64"`
	DigestMode        *string `json:"digest_mode,omitempty" validate:"omitempty,oneof=realtime hourly daily"`
}
