package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repositories.AutoMigrate(db))
	return db
}

type fakeUsers map[string]string

func (f fakeUsers) GetEmail(_ context.Context, userID string) (string, error) {
	email, ok := f[userID]
	if !ok {
		return "", repositories.ErrNotFound
	}
	return email, nil
}

type sentEmail struct {
	to, subject, html, text string
}

type fakeEmailTransport struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailTransport) Send(_ context.Context, to, subject, htmlBody, textBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, html: htmlBody, text: textBody})
	return f.err
}

func (f *fakeEmailTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePushTransport struct {
	mu       sync.Mutex
	calls    map[string]int
	errs     map[string]error
	messages [][]byte
}

func newFakePushTransport() *fakePushTransport {
	return &fakePushTransport{calls: map[string]int{}, errs: map[string]error{}}
}

func (f *fakePushTransport) Deliver(_ context.Context, subscription string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[subscription]++
	f.messages = append(f.messages, message)
	return f.errs[subscription]
}

func (f *fakePushTransport) callCount(subscription string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[subscription]
}

func (f *fakePushTransport) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// failingNotificationRepo rejects every insert
type failingNotificationRepo struct {
	repositories.NotificationRepository
}

func (failingNotificationRepo) CreateNotification(context.Context, *models.Notification) error {
	return errors.New("connection refused")
}

// failingPreferenceRepo fails every read
type failingPreferenceRepo struct {
	repositories.PreferenceRepository
}

func (failingPreferenceRepo) GetByUserID(context.Context, string) (*models.NotificationPreferences, error) {
	return nil, errors.New("connection refused")
}

type panickingDispatcher struct{}

func (panickingDispatcher) Channel() string { return models.ChannelEmail }

func (panickingDispatcher) Deliver(context.Context, *models.Notification) []Outcome {
	panic("boom")
}

type harness struct {
	db     *gorm.DB
	svc    *NotificationService
	subs   *PushSubscriptionRegistry
	prefs  *PreferenceStore
	logs   repositories.DeliveryLogRepository
	notifs repositories.NotificationRepository
	email  *fakeEmailTransport
	push   *fakePushTransport
}

func newHarness(t *testing.T, mutate ...func(*Dependencies)) *harness {
	t.Helper()

	db := newTestDB(t)
	log := zap.NewNop()

	h := &harness{
		db:     db,
		notifs: repositories.NewPostgresNotificationRepository(db),
		logs:   repositories.NewPostgresDeliveryLogRepository(db),
		prefs:  NewPreferenceStore(repositories.NewPostgresPreferenceRepository(db), nil, log),
		subs:   NewPushSubscriptionRegistry(repositories.NewPostgresPushSubscriptionRepository(db)),
		email:  &fakeEmailTransport{},
		push:   newFakePushTransport(),
	}

	users := fakeUsers{
		"user-1": "user1@example.com",
		"user-2": "user2@example.com",
	}

	deps := Dependencies{
		Notifications: h.notifs,
		Preferences:   h.prefs,
		Subscriptions: h.subs,
		DeliveryLogs:  h.logs,
		InApp:         NewInAppDispatcher(nil),
		Email:         NewEmailDispatcher(users, h.email, time.Second),
		Push:          NewPushDispatcher(h.subs, h.push, time.Second, log),
		Logger:        log,
	}
	for _, m := range mutate {
		m(&deps)
	}

	h.svc = NewNotificationService(deps)
	return h
}

func bookingRequest(userID string) *models.SendNotificationRequest {
	return &models.SendNotificationRequest{
		UserID:  userID,
		Type:    models.TypeBooking,
		Title:   "Booking confirmed",
		Message: "Your booking for Friday is confirmed.",
	}
}

func (h *harness) send(t *testing.T, userID, typ string) *models.Notification {
	t.Helper()
	req := bookingRequest(userID)
	req.Type = typ
	n, err := h.svc.Send(context.Background(), req)
	require.NoError(t, err)
	return n
}

// outcomes groups a notification's delivery log by channel and status
func (h *harness) outcomes(t *testing.T, notificationID string) map[string][]models.DeliveryLog {
	t.Helper()
	entries, err := h.logs.ListByNotificationID(context.Background(), notificationID)
	require.NoError(t, err)

	byChannel := map[string][]models.DeliveryLog{}
	for _, e := range entries {
		byChannel[e.Channel] = append(byChannel[e.Channel], e)
	}
	return byChannel
}

func (h *harness) subscription(t *testing.T, id string) models.PushSubscription {
	t.Helper()
	var sub models.PushSubscription
	require.NoError(t, h.db.First(&sub, "id = ?", id).Error)
	return sub
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
