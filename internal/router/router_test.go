package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anonto42/notification-engine/internal/middleware"
	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/repositories"
	"github.com/anonto42/notification-engine/pkg/config"
	"github.com/anonto42/notification-engine/validators"
)

func testDB(t *testing.T) *config.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repositories.AutoMigrate(db))
	return &config.DB{Postgres: db}
}

func baseConfig() *config.Config {
	return &config.Config{
		DeliveryLogBackend: "postgres",
		AuthProvider:       "jwt",
		JWTSecret:          "router-secret",
		PushProvider:       "webpush",
		DispatchMode:       config.DispatchSync,
		EmailTimeout:       time.Second,
		PushTimeout:        time.Second,
		PreferenceCacheTTL: time.Minute,
		ServiceToken:       "router-service-token",
	}
}

func bearer(t *testing.T, secret, userID string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestSetupRoutes(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	db := testDB(t)

	en, err := NewEngine(context.Background(), cfg, db, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(en.Close)

	e := echo.New()
	e.Validator = validators.NewValidator()
	require.NoError(t, SetupRoutes(e, en, cfg, db, nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := `{"user_id":"alice","type":"system","title":"Maintenance","message":"Tonight at 22:00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", bearer(t, cfg.JWTSecret, "mallory"))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code, "a user token cannot target another user")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.ServiceTokenHeader, cfg.ServiceToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	req.Header.Set("Authorization", bearer(t, cfg.JWTSecret, "alice"))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"count":1}}`, rec.Body.String())

	// preferences were resolved during dispatch and cached
	assert.True(t, mr.Exists("notification:prefs:alice"))

	// web push without VAPID keys is disabled
	req = httptest.NewRequest(http.MethodGet, "/api/v1/push/vapid-public-key", nil)
	req.Header.Set("Authorization", bearer(t, cfg.JWTSecret, "alice"))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigurationErrors(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	cfg := baseConfig()
	cfg.PushProvider = "fcm"
	_, err := NewEngine(ctx, cfg, db, nil, zap.NewNop())
	assert.ErrorContains(t, err, "FIREBASE_CREDENTIALS_PATH")

	cfg = baseConfig()
	cfg.DeliveryLogBackend = "mongo"
	_, err = NewEngine(ctx, cfg, db, nil, zap.NewNop())
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"
	_, err = NewEngine(ctx, cfg, db, nil, zap.NewNop())
	assert.Error(t, err)

	cfg = baseConfig()
	en, err := NewEngine(ctx, cfg, db, nil, zap.NewNop())
	require.NoError(t, err)

	cfg.AuthProvider = "firebase"
	assert.ErrorContains(t, SetupRoutes(echo.New(), en, cfg, db, nil), "FIREBASE_CREDENTIALS_PATH")

	cfg.AuthProvider = "jwt"
	cfg.JWTSecret = ""
	assert.ErrorContains(t, SetupRoutes(echo.New(), en, cfg, db, nil), "JWT_SECRET")
}
