package repositories

import (
	"context"
	"time"

	"github.com/anonto42/notification-engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushSubscriptionRepository defines persistence for push endpoints
type PushSubscriptionRepository interface {
	// Upsert inserts sub or, when the (user, payload) pair exists, refreshes and reactivates it.
	// The stored row is returned.
	Upsert(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error)
	ListByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error)
	ListActiveByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error)
	// Deactivate reports whether this call flipped the subscription to inactive.
	Deactivate(ctx context.Context, id string) (bool, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id, userID string) error
}

type postgresPushSubscriptionRepository struct {
	db *gorm.DB
}

func NewPostgresPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &postgresPushSubscriptionRepository{db: db}
}

func (r *postgresPushSubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "payload_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"device_label", "is_active", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return nil, err
	}

	var stored models.PushSubscription
	if err := db.Where("user_id = ? AND payload_hash = ?", sub.UserID, sub.PayloadHash).First(&stored).Error; err != nil {
		return nil, translateError(err)
	}
	return &stored, nil
}

func (r *postgresPushSubscriptionRepository) ListByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *postgresPushSubscriptionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	err := r.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).Find(&subs).Error
	return subs, err
}

func (r *postgresPushSubscriptionRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PushSubscription{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return res.RowsAffected > 0, res.Error
}

func (r *postgresPushSubscriptionRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PushSubscription{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

func (r *postgresPushSubscriptionRepository) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.PushSubscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
