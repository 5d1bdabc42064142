package repositories

import (
	"github.com/anonto42/notification-engine/internal/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the relational tables owned by the engine
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.NotificationPreferences{},
		&models.PushSubscription{},
		&models.DeliveryLog{},
	)
}
