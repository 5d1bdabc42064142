package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/repositories"
)

// DeliveryLogger appends one row per attempt. Write failures are logged and
// swallowed; a lost log row never fails a send.
type DeliveryLogger struct {
	repo   repositories.DeliveryLogRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewDeliveryLogger creates a new delivery logger
func NewDeliveryLogger(repo repositories.DeliveryLogRepository, logger *zap.Logger) *DeliveryLogger {
	return &DeliveryLogger{repo: repo, logger: logger, now: time.Now}
}

// Record writes the outcome for a notification
func (l *DeliveryLogger) Record(ctx context.Context, n *models.Notification, o Outcome) {
	status := o.Status()
	deliveryAttempts.WithLabelValues(o.Channel, status).Inc()

	entry := &models.DeliveryLog{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Channel:        o.Channel,
		Status:         status,
		CreatedAt:      l.now(),
	}
	if o.SubscriptionID != "" {
		id := o.SubscriptionID
		entry.SubscriptionID = &id
	}
	if o.Err != nil {
		msg := o.Err.Error()
		entry.Error = &msg
		l.logger.Info("delivery attempt failed",
			zap.String("notification_id", n.ID),
			zap.String("channel", o.Channel),
			zap.String("subscription_id", o.SubscriptionID),
			zap.Error(o.Err),
		)
	}

	if err := l.repo.Append(ctx, entry); err != nil {
		l.logger.Warn("failed to write delivery log",
			zap.String("notification_id", n.ID),
			zap.String("channel", o.Channel),
			zap.Error(err),
		)
	}
}
