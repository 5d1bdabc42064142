package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/notification-engine/internal/middleware"
	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/services"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.POST("/notifications", h.SendNotification)
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/:id/archive", h.Archive)
	g.DELETE("/notifications/:id", h.Delete)
	g.GET("/notifications/:id/deliveries", h.GetDeliveries)
}

// SendNotification creates a notification for req.UserID and dispatches it.
// Producers holding the service token may target any user; end users only themselves.
// A 201 means the notification is recorded, not that every channel delivered it.
func (h *NotificationHandler) SendNotification(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	producer := middleware.IsServiceCaller(c)
	if currentUserID == "" && !producer {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SendNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if !producer && req.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "Cannot send notifications to other users")
	}

	notification, err := h.service.Send(c.Request().Context(), &req)
	if err != nil {
		return serviceError(err, "")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": notification})
}

// GetNotifications returns a page of the caller's notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread_only"))

	filter := models.ListNotificationsFilter{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: unreadOnly,
		Type:       c.QueryParam("type"),
	}

	notifications, total, err := h.service.List(c.Request().Context(), currentUserID, filter)
	if err != nil {
		return serviceError(err, "")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	if offset < 0 {
		offset = 0
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": notifications,
		},
		"meta": echo.Map{
			"totalItems":  total,
			"offset":      offset,
			"count":       len(notifications),
			"hasNextPage": int64(offset+len(notifications)) < total,
		},
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.service.GetUnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return serviceError(err, "")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks a notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.service.MarkAsRead(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		return serviceError(err, "Notification not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	updated, err := h.service.MarkAllAsRead(c.Request().Context(), currentUserID)
	if err != nil {
		return serviceError(err, "")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"updated": updated}})
}

// Archive hides a notification from the caller's listings
func (h *NotificationHandler) Archive(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.service.Archive(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		return serviceError(err, "Notification not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// Delete removes a notification
func (h *NotificationHandler) Delete(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.service.Delete(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		return serviceError(err, "Notification not found")
	}

	return c.NoContent(http.StatusNoContent)
}

// GetDeliveries returns the delivery log of one of the caller's notifications
func (h *NotificationHandler) GetDeliveries(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	entries, err := h.service.ListDeliveries(c.Request().Context(), c.Param("id"), currentUserID)
	if err != nil {
		return serviceError(err, "Notification not found")
	}
	if entries == nil {
		entries = []models.DeliveryLog{}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"deliveries": entries}})
}
