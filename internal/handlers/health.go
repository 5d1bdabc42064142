package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func HealthCheck(e echo.Context) error {
	return e.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "notification-engine",
	})
}

// ReadinessCheck reports ready once the relational store answers a ping
func ReadinessCheck(db *gorm.DB) echo.HandlerFunc {
	return func(e echo.Context) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(e.Request().Context())
		}
		if err != nil {
			return e.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
		return e.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
}
