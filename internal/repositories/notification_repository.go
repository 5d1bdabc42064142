package repositories

import (
	"context"
	"time"

	"github.com/anonto42/notification-engine/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id, userID string) (*models.Notification, error)
	List(ctx context.Context, userID string, filter models.ListNotificationsFilter) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id, userID string, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Archive(ctx context.Context, id, userID string, at time.Time) error
	Delete(ctx context.Context, id, userID string) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

// visible is the predicate shared by listing and unread counting.
// Archived notifications never match.
func visible(userID string, unreadOnly bool, notificationType string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ? AND is_archived = ?", userID, false)
		if unreadOnly {
			db = db.Where("is_read = ?", false)
		}
		if notificationType != "" {
			db = db.Where("type = ?", notificationType)
		}
		return db
	}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *postgresNotificationRepository) GetByID(ctx context.Context, id, userID string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&notification).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &notification, nil
}

func (r *postgresNotificationRepository) List(ctx context.Context, userID string, filter models.ListNotificationsFilter) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	scope := visible(userID, filter.UnreadOnly, filter.Type)
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Notification{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Scopes(scope).
		Order("created_at DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Scopes(visible(userID, true, "")).Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, id, userID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.ensureOwned(ctx, id, userID)
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ? AND is_archived = ?", userID, false, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *postgresNotificationRepository) Archive(ctx context.Context, id, userID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_archived = ?", id, userID, false).
		Updates(map[string]interface{}{"is_archived": true, "archived_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.ensureOwned(ctx, id, userID)
	}
	return nil
}

func (r *postgresNotificationRepository) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ensureOwned distinguishes "already in the target state" from "missing or foreign"
// after a conditional update touched no rows.
func (r *postgresNotificationRepository) ensureOwned(ctx context.Context, id, userID string) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
