package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/notification-engine/internal/middleware"
	"github.com/anonto42/notification-engine/internal/services"
)

// getUserIDFromContext returns the id set by the auth middleware, or "" when unauthenticated
func getUserIDFromContext(c echo.Context) string {
	userID, _ := c.Get(middleware.UserIDKey).(string)
	return userID
}

// serviceError maps engine errors onto HTTP errors
func serviceError(err error, notFound string) *echo.HTTPError {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

// bindAndValidate binds the request body into req and runs the echo validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
