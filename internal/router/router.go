package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/notification-engine/internal/handlers"
	"github.com/anonto42/notification-engine/internal/middleware"
	"github.com/anonto42/notification-engine/internal/repositories"
	"github.com/anonto42/notification-engine/internal/services"
	"github.com/anonto42/notification-engine/pkg/config"
	"github.com/anonto42/notification-engine/pkg/firebase"
	"github.com/anonto42/notification-engine/pkg/mailer"
	"github.com/anonto42/notification-engine/pkg/push"
	"github.com/anonto42/notification-engine/pkg/realtime"
)

// Engine holds the long-lived dependencies behind the HTTP surface
type Engine struct {
	Service *services.NotificationService
	Hub     *realtime.Hub
	Users   repositories.UserRepository

	closers []func() error
	logger  *zap.Logger
}

// NewEngine builds repositories, transports and the notification service.
// fb may be nil when Firebase is not configured.
func NewEngine(ctx context.Context, cfg *config.Config, db *config.DB, fb *firebase.App, logger *zap.Logger) (*Engine, error) {
	en := &Engine{logger: logger}

	pgdb := db.Postgres
	users := repositories.NewPostgresUserRepository(pgdb)
	en.Users = users

	deliveryLogs, err := newDeliveryLogRepository(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	var cache repositories.PreferenceCache
	if cfg.RedisURL != "" {
		redisCache, err := repositories.NewRedisPreferenceCache(ctx, cfg.RedisURL, cfg.PreferenceCacheTTL)
		if err != nil {
			return nil, err
		}
		en.closers = append(en.closers, redisCache.Close)
		cache = redisCache
		logger.Info("preference cache enabled", zap.Duration("ttl", cfg.PreferenceCacheTTL))
	}

	subscriptions := services.NewPushSubscriptionRegistry(repositories.NewPostgresPushSubscriptionRepository(pgdb))
	en.Hub = realtime.NewHub(logger)

	deps := services.Dependencies{
		Notifications: repositories.NewPostgresNotificationRepository(pgdb),
		Preferences:   services.NewPreferenceStore(repositories.NewPostgresPreferenceRepository(pgdb), cache, logger),
		Subscriptions: subscriptions,
		DeliveryLogs:  deliveryLogs,
		InApp:         services.NewInAppDispatcher(en.Hub),
		Logger:        logger,
		Async:         cfg.DispatchMode == config.DispatchAsync,
	}

	if cfg.SMTPHost != "" {
		sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		deps.Email = services.NewEmailDispatcher(users, sender, cfg.EmailTimeout)
		logger.Info("email channel enabled", zap.String("smtp_host", cfg.SMTPHost))
	} else {
		logger.Warn("SMTP_HOST not set, email channel disabled")
	}

	transport, err := newPushTransport(cfg, fb)
	if err != nil {
		return nil, err
	}
	if transport != nil {
		deps.Push = services.NewPushDispatcher(subscriptions, transport, cfg.PushTimeout, logger)
		logger.Info("push channel enabled", zap.String("provider", cfg.PushProvider))
	} else {
		logger.Warn("push transport not configured, push channel disabled")
	}

	en.Service = services.NewNotificationService(deps)
	return en, nil
}

func newDeliveryLogRepository(ctx context.Context, cfg *config.Config, db *config.DB) (repositories.DeliveryLogRepository, error) {
	if cfg.DeliveryLogBackend != "mongo" {
		return repositories.NewPostgresDeliveryLogRepository(db.Postgres), nil
	}
	if db.Mongo == nil {
		return nil, errors.New("DELIVERY_LOG_BACKEND=mongo but MongoDB is not connected")
	}
	repo := repositories.NewMongoDeliveryLogRepository(db.Mongo.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create delivery log indexes: %w", err)
	}
	return repo, nil
}

// newPushTransport returns nil when the selected provider has no credentials
func newPushTransport(cfg *config.Config, fb *firebase.App) (services.PushTransport, error) {
	switch cfg.PushProvider {
	case "fcm":
		if fb == nil {
			return nil, errors.New("PUSH_PROVIDER=fcm requires FIREBASE_CREDENTIALS_PATH")
		}
		return push.NewFCMTransport(fb.MessagingClient), nil
	default:
		if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
			return nil, nil
		}
		return push.NewWebPushTransport(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, &http.Client{}), nil
	}
}

// Close waits for in-flight dispatches and releases engine resources
func (en *Engine) Close() {
	en.Service.Wait()
	for _, closeFn := range en.closers {
		if err := closeFn(); err != nil {
			en.logger.Warn("error closing engine resource", zap.Error(err))
		}
	}
}

// SetupRoutes configures all application routes
func SetupRoutes(e *echo.Echo, en *Engine, cfg *config.Config, db *config.DB, fb *firebase.App) error {
	e.GET("/health", handlers.HealthCheck)
	e.GET("/ready", handlers.ReadinessCheck(db.Postgres))

	var auth echo.MiddlewareFunc
	switch cfg.AuthProvider {
	case "firebase":
		if fb == nil {
			return errors.New("AUTH_PROVIDER=firebase requires FIREBASE_CREDENTIALS_PATH")
		}
		auth = middleware.FirebaseAuthMiddleware(fb.AuthClient, en.Users)
	default:
		if cfg.JWTSecret == "" {
			return errors.New("AUTH_PROVIDER=jwt requires JWT_SECRET")
		}
		auth = middleware.JWTAuthMiddleware(cfg.JWTSecret)
	}

	// --- Unprotected routes for authentication ---
	if fb != nil && cfg.JWTSecret != "" {
		authHandler := handlers.NewAuthHandler(en.Users, fb.AuthClient, cfg.JWTSecret)
		authHandler.RegisterAuthRoutes(e.Group("/api/v1/auth"))
	}

	// --- Protected routes ---
	if cfg.ServiceToken == "" {
		en.logger.Warn("SERVICE_TOKEN not set, users can only send notifications to themselves")
	}
	api := e.Group("/api/v1")
	api.Use(middleware.ServiceOrUserAuth(cfg.ServiceToken, auth))

	handlers.NewUserHandler(en.Users).RegisterProfileRoutes(api)
	handlers.NewNotificationHandler(en.Service).RegisterNotificationRoutes(api)
	handlers.NewPreferenceHandler(en.Service).RegisterPreferenceRoutes(api)

	vapidPublicKey := ""
	if cfg.PushProvider == "webpush" {
		vapidPublicKey = cfg.VAPIDPublicKey
	}
	handlers.NewPushSubscriptionHandler(en.Service, vapidPublicKey).RegisterPushRoutes(api)
	handlers.NewWebSocketHandler(en.Hub, en.logger).RegisterWebSocketRoutes(api)

	en.logger.Info("routes configured", zap.String("auth_provider", cfg.AuthProvider))
	return nil
}
