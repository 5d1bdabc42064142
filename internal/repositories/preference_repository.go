package repositories

import (
	"context"

	"github.com/anonto42/notification-engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository defines persistence for per-user notification preferences
type PreferenceRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	// CreateIfAbsent inserts prefs unless a row for the user already exists.
	CreateIfAbsent(ctx context.Context, prefs *models.NotificationPreferences) error
	Update(ctx context.Context, userID string, fields map[string]interface{}) error
}

type postgresPreferenceRepository struct {
	db *gorm.DB
}

func NewPostgresPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &postgresPreferenceRepository{db: db}
}

func (r *postgresPreferenceRepository) GetByUserID(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	var prefs models.NotificationPreferences
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return nil, translateError(err)
	}
	return &prefs, nil
}

func (r *postgresPreferenceRepository) CreateIfAbsent(ctx context.Context, prefs *models.NotificationPreferences) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(prefs).Error
}

func (r *postgresPreferenceRepository) Update(ctx context.Context, userID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.NotificationPreferences{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
