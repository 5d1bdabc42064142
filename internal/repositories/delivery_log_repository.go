package repositories

import (
	"context"

	"github.com/anonto42/notification-engine/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// DeliveryLogRepository is the append-only delivery audit trail
type DeliveryLogRepository interface {
	Append(ctx context.Context, entry *models.DeliveryLog) error
	ListByNotificationID(ctx context.Context, notificationID string) ([]models.DeliveryLog, error)
}

type postgresDeliveryLogRepository struct {
	db *gorm.DB
}

func NewPostgresDeliveryLogRepository(db *gorm.DB) DeliveryLogRepository {
	return &postgresDeliveryLogRepository{db: db}
}

func (r *postgresDeliveryLogRepository) Append(ctx context.Context, entry *models.DeliveryLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *postgresDeliveryLogRepository) ListByNotificationID(ctx context.Context, notificationID string) ([]models.DeliveryLog, error) {
	var entries []models.DeliveryLog
	err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).Order("created_at ASC, id ASC").Find(&entries).Error
	return entries, err
}

// MongoDeliveryLogRepository implements DeliveryLogRepository on MongoDB
type MongoDeliveryLogRepository struct {
	collection *mongo.Collection
}

// NewMongoDeliveryLogRepository stores delivery logs in the "delivery_logs" collection
func NewMongoDeliveryLogRepository(mongoDB *mongo.Database) *MongoDeliveryLogRepository {
	return &MongoDeliveryLogRepository{collection: mongoDB.Collection("delivery_logs")}
}

// EnsureIndexes creates the lookup index used by ListByNotificationID
func (r *MongoDeliveryLogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "notification_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

func (r *MongoDeliveryLogRepository) Append(ctx context.Context, entry *models.DeliveryLog) error {
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *MongoDeliveryLogRepository) ListByNotificationID(ctx context.Context, notificationID string) ([]models.DeliveryLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"notification_id": notificationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.DeliveryLog
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
