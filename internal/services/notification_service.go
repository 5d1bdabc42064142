package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/repositories"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Dependencies wires the notification service. Email and Push may be nil when
// the corresponding transport is not configured.
type Dependencies struct {
	Notifications repositories.NotificationRepository
	Preferences   *PreferenceStore
	Subscriptions *PushSubscriptionRegistry
	DeliveryLogs  repositories.DeliveryLogRepository
	InApp         ChannelDispatcher
	Email         ChannelDispatcher
	Push          ChannelDispatcher
	Logger        *zap.Logger
	// Async returns from Send right after the row is persisted
	Async bool
}

// NotificationService persists notifications and fans them out to the user's channels
type NotificationService struct {
	notifications repositories.NotificationRepository
	preferences   *PreferenceStore
	subscriptions *PushSubscriptionRegistry
	deliveryLogs  repositories.DeliveryLogRepository
	recorder      *DeliveryLogger
	inApp         ChannelDispatcher
	email         ChannelDispatcher
	push          ChannelDispatcher
	logger        *zap.Logger
	async         bool
	now           func() time.Time

	inflight sync.WaitGroup
}

// NewNotificationService creates a new notification service
func NewNotificationService(deps Dependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	inApp := deps.InApp
	if inApp == nil {
		inApp = NewInAppDispatcher(nil)
	}
	return &NotificationService{
		notifications: deps.Notifications,
		preferences:   deps.Preferences,
		subscriptions: deps.Subscriptions,
		deliveryLogs:  deps.DeliveryLogs,
		recorder:      NewDeliveryLogger(deps.DeliveryLogs, logger),
		inApp:         inApp,
		email:         deps.Email,
		push:          deps.Push,
		logger:        logger,
		async:         deps.Async,
		now:           time.Now,
	}
}

// Send persists the notification and dispatches it. The only error is a failure
// to persist; channel failures end up in the delivery log.
func (s *NotificationService) Send(ctx context.Context, req *models.SendNotificationRequest) (*models.Notification, error) {
	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = models.PriorityNormal
	} else if !models.IsValidPriority(priority) {
		s.logger.Warn("unknown notification priority, using normal", zap.String("priority", req.Priority))
		priority = models.PriorityNormal
	}

	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Priority:  priority,
		CreatedAt: s.now(),
	}
	if req.ActionURL != "" {
		if models.IsSafeActionURL(req.ActionURL) {
			url := req.ActionURL
			n.ActionURL = &url
		} else {
			s.logger.Warn("dropping unsafe action url", zap.String("user_id", req.UserID), zap.String("type", req.Type))
		}
	}
	if req.ActionLabel != "" {
		label := req.ActionLabel
		n.ActionLabel = &label
	}
	if len(req.Metadata) > 0 {
		n.Metadata = req.Metadata
	}

	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return nil, &PersistenceError{Op: "create notification", Err: err}
	}
	notificationsCreated.Inc()

	// dispatch outlives the request
	dispatchCtx := context.WithoutCancel(ctx)
	if s.async {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.dispatch(dispatchCtx, n)
		}()
	} else {
		s.dispatch(dispatchCtx, n)
	}

	return n, nil
}

// Wait blocks until background dispatches have finished
func (s *NotificationService) Wait() {
	s.inflight.Wait()
}

func (s *NotificationService) dispatch(ctx context.Context, n *models.Notification) {
	prefs, err := s.preferences.Resolve(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("failed to resolve preferences, using defaults",
			zap.String("user_id", n.UserID),
			zap.Error(err),
		)
		prefs = models.DefaultPreferences(n.UserID)
	}

	// channels run side by side; a slow one never holds back the others
	var channels []ChannelDispatcher
	if prefs.InAppEnabled {
		channels = append(channels, s.inApp)
	}
	if s.email != nil && prefs.EmailEnabled && prefs.EmailAllowed(n.Type) {
		quiet, qerr := IsQuiet(prefs, s.now())
		if qerr != nil {
			s.logger.Warn("quiet hours could not be evaluated, sending email",
				zap.String("user_id", n.UserID),
				zap.Error(qerr),
			)
		}
		if quiet {
			s.logger.Debug("email held back by quiet hours",
				zap.String("notification_id", n.ID),
				zap.String("user_id", n.UserID),
			)
		} else {
			channels = append(channels, s.email)
		}
	}
	if s.push != nil && prefs.PushEnabled && prefs.PushAllowed(n.Type) {
		channels = append(channels, s.push)
	}

	var wg sync.WaitGroup
	for _, d := range channels {
		wg.Add(1)
		go func(d ChannelDispatcher) {
			defer wg.Done()
			s.run(ctx, d, n)
		}(d)
	}
	wg.Wait()
}

// run delivers on one channel and records every outcome. A panicking
// dispatcher is recorded as a failed attempt.
func (s *NotificationService) run(ctx context.Context, d ChannelDispatcher, n *models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("channel dispatcher panicked",
				zap.String("channel", d.Channel()),
				zap.String("notification_id", n.ID),
				zap.Any("panic", r),
			)
			s.recorder.Record(ctx, n, Outcome{Channel: d.Channel(), Err: fmt.Errorf("dispatcher panic: %v", r)})
		}
	}()

	for _, o := range d.Deliver(ctx, n) {
		s.recorder.Record(ctx, n, o)
	}
}

// List returns a page of the user's non-archived notifications, newest first, and the total
func (s *NotificationService) List(ctx context.Context, userID string, filter models.ListNotificationsFilter) ([]models.Notification, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	notifications, total, err := s.notifications.List(ctx, userID, filter)
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list notifications", Err: err}
	}
	return notifications, total, nil
}

// GetUnreadCount counts unread, non-archived notifications
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.notifications.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, &PersistenceError{Op: "count unread notifications", Err: err}
	}
	return count, nil
}

// MarkAsRead marks one notification read. Already-read is not an error.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID string) error {
	if err := s.notifications.MarkAsRead(ctx, id, userID, s.now()); err != nil {
		return storeError("mark notification read", err)
	}
	return nil
}

// MarkAllAsRead marks every unread, non-archived notification and returns how many changed
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.notifications.MarkAllAsRead(ctx, userID, s.now())
	if err != nil {
		return 0, &PersistenceError{Op: "mark all notifications read", Err: err}
	}
	return updated, nil
}

// Archive hides a notification from listings and the unread count
func (s *NotificationService) Archive(ctx context.Context, id, userID string) error {
	if err := s.notifications.Archive(ctx, id, userID, s.now()); err != nil {
		return storeError("archive notification", err)
	}
	return nil
}

// Delete removes a notification permanently
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	if err := s.notifications.Delete(ctx, id, userID); err != nil {
		return storeError("delete notification", err)
	}
	return nil
}

// GetPreferences returns the user's preferences, creating defaults on first access
func (s *NotificationService) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	return s.preferences.Resolve(ctx, userID)
}

// UpdatePreferences applies a partial preference update
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID string, req *models.UpdatePreferencesRequest) (*models.NotificationPreferences, error) {
	return s.preferences.Update(ctx, userID, req)
}

// SubscribePush registers a device for push delivery
func (s *NotificationService) SubscribePush(ctx context.Context, userID, payload, deviceLabel string) (*models.PushSubscription, error) {
	return s.subscriptions.Subscribe(ctx, userID, payload, deviceLabel)
}

// UnsubscribePush removes one of the user's devices
func (s *NotificationService) UnsubscribePush(ctx context.Context, userID, subscriptionID string) error {
	return s.subscriptions.Unsubscribe(ctx, subscriptionID, userID)
}

// ListPushSubscriptions returns the user's registered devices
func (s *NotificationService) ListPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	return s.subscriptions.List(ctx, userID)
}

// ListDeliveries returns the delivery log of a notification owned by userID
func (s *NotificationService) ListDeliveries(ctx context.Context, id, userID string) ([]models.DeliveryLog, error) {
	if _, err := s.notifications.GetByID(ctx, id, userID); err != nil {
		return nil, storeError("get notification", err)
	}
	entries, err := s.deliveryLogs.ListByNotificationID(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "list delivery log", Err: err}
	}
	return entries, nil
}
