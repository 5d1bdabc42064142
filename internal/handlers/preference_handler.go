package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/services"
)

// PreferenceHandler exposes the caller's notification preferences
type PreferenceHandler struct {
	service *services.NotificationService
}

func NewPreferenceHandler(service *services.NotificationService) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

func (h *PreferenceHandler) RegisterPreferenceRoutes(g *echo.Group) {
	g.GET("/preferences", h.GetPreferences)
	g.PUT("/preferences", h.UpdatePreferences)
}

func (h *PreferenceHandler) GetPreferences(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	prefs, err := h.service.GetPreferences(c.Request().Context(), currentUserID)
	if err != nil {
		return serviceError(err, "")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": prefs})
}

// UpdatePreferences applies a partial update; omitted fields keep their value
func (h *PreferenceHandler) UpdatePreferences(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdatePreferencesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	prefs, err := h.service.UpdatePreferences(c.Request().Context(), currentUserID, &req)
	if err != nil {
		return serviceError(err, "")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": prefs})
}
