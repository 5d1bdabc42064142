package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/services"
)

// PushSubscriptionHandler manages the caller's push devices
type PushSubscriptionHandler struct {
	service        *services.NotificationService
	vapidPublicKey string
}

// NewPushSubscriptionHandler creates a new PushSubscriptionHandler. vapidPublicKey is
// empty when push goes through FCM.
func NewPushSubscriptionHandler(service *services.NotificationService, vapidPublicKey string) *PushSubscriptionHandler {
	return &PushSubscriptionHandler{service: service, vapidPublicKey: vapidPublicKey}
}

func (h *PushSubscriptionHandler) RegisterPushRoutes(g *echo.Group) {
	g.GET("/push/vapid-public-key", h.GetVAPIDPublicKey)
	g.POST("/push/subscriptions", h.Subscribe)
	g.GET("/push/subscriptions", h.ListSubscriptions)
	g.DELETE("/push/subscriptions/:id", h.Unsubscribe)
}

// GetVAPIDPublicKey returns the application server key browsers subscribe with
func (h *PushSubscriptionHandler) GetVAPIDPublicKey(c echo.Context) error {
	if h.vapidPublicKey == "" {
		return echo.NewHTTPError(http.StatusNotFound, "Web push is not configured")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"public_key": h.vapidPublicKey}})
}

// Subscribe registers a subscription. Re-posting the same subscription refreshes it.
func (h *PushSubscriptionHandler) Subscribe(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SubscribePushRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sub, err := h.service.SubscribePush(c.Request().Context(), currentUserID, req.Payload(), req.DeviceLabel)
	if err != nil {
		return serviceError(err, "")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": sub})
}

func (h *PushSubscriptionHandler) ListSubscriptions(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	subs, err := h.service.ListPushSubscriptions(c.Request().Context(), currentUserID)
	if err != nil {
		return serviceError(err, "")
	}
	if subs == nil {
		subs = []models.PushSubscription{}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"subscriptions": subs}})
}

func (h *PushSubscriptionHandler) Unsubscribe(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.service.UnsubscribePush(c.Request().Context(), currentUserID, c.Param("id")); err != nil {
		return serviceError(err, "Subscription not found")
	}

	return c.NoContent(http.StatusNoContent)
}
