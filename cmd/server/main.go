package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anonto42/notification-engine/internal/repositories"
	"github.com/anonto42/notification-engine/internal/router"
	"github.com/anonto42/notification-engine/pkg/config"
	"github.com/anonto42/notification-engine/pkg/firebase"
	"github.com/anonto42/notification-engine/pkg/logger"
	"github.com/anonto42/notification-engine/validators"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	// Initialize database connections
	db, err := config.InitDB(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	if err := repositories.AutoMigrate(db.Postgres); err != nil {
		return err
	}
	zl.Info("PostgreSQL auto-migrations completed")

	// Firebase is optional unless an auth or push provider needs it
	var fb *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		fb, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return err
		}
		zl.Info("Firebase initialized")
	}

	engine, err := router.NewEngine(ctx, cfg, db, fb, zl)
	if err != nil {
		return err
	}
	defer engine.Close()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, zl)

	if err := router.SetupRoutes(e, engine, cfg, db, fb); err != nil {
		return err
	}

	metrics := echo.New()
	metrics.HideBanner = true
	metrics.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	errCh := make(chan error, 2)
	go func() {
		zl.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		zl.Info("metrics server listening", zap.String("port", cfg.MetricsPort))
		if err := metrics.Start(":" + cfg.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zl.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Warn("HTTP server shutdown", zap.Error(err))
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		zl.Warn("metrics server shutdown", zap.Error(err))
	}
	return nil
}
