package models

import (
	"net/url"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Notification priorities
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Known notification categories. Anything else is still accepted as a type.
const (
	TypeBooking  = "booking"
	TypeApproval = "approval"
	TypePayment  = "payment"
	TypeMessage  = "message"
	TypeSystem   = "system"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          string            `json:"id" gorm:"primaryKey;size:36"`
	UserID      string            `json:"user_id" gorm:"size:64;not null;index:idx_notifications_user_created"`
	Type        string            `json:"type" gorm:"size:30;index"` // booking, approval, payment, message, system, ...
	Title       string            `json:"title" gorm:"not null"`
	Message     string            `json:"message" gorm:"type:text;not null"`
	ActionURL   *string           `json:"action_url,omitempty"`
	ActionLabel *string           `json:"action_label,omitempty" gorm:"size:100"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	Priority    string            `json:"priority" gorm:"size:10;not null"`
	IsRead      bool              `json:"is_read" gorm:"not null;index"`
	IsArchived  bool              `json:"is_archived" gorm:"not null;index"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index:idx_notifications_user_created"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
	ArchivedAt  *time.Time        `json:"archived_at,omitempty"`
}

// IsValidPriority reports whether p is one of the supported priorities
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IsSafeActionURL reports whether s is an absolute http(s) URL or a path on the
// client's own origin. Anything else (javascript:, data:, //host) is rejected.
func IsSafeActionURL(s string) bool {
	if strings.HasPrefix(s, "/") {
		return !strings.HasPrefix(s, "//") && !strings.HasPrefix(s, "/\\")
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SendNotificationRequest defines the request body for creating a notification
type SendNotificationRequest struct {
	UserID      string         `json:"user_id" validate:"required,max=64"`
	Type        string         `json:"type" validate:"required,max=30"`
	Title       string         `json:"title" validate:"required,max=255"`
	Message     string         `json:"message" validate:"required"`
	ActionURL   string         `json:"action_url,omitempty" validate:"omitempty,weburl"`
	ActionLabel string         `json:"action_label,omitempty" validate:"omitempty,max=100"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Priority    string         `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
}

// ListNotificationsFilter narrows a notification listing
type ListNotificationsFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
	Type       string
}
