package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/notification-engine/pkg/realtime"
)

const maxClientMessageSize = 1024

// WebSocketHandler streams new in-app notifications to connected clients
type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *realtime.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) RegisterWebSocketRoutes(g *echo.Group) {
	g.GET("/ws", h.Connect)
}

// Connect upgrades the request and holds the connection until the client goes away.
// Client messages are read and discarded.
func (h *WebSocketHandler) Connect(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Debug("websocket upgrade failed", zap.String("user_id", currentUserID), zap.Error(err))
		return nil
	}

	client := h.hub.Add(currentUserID, conn)
	defer h.hub.Remove(client)

	conn.SetReadLimit(maxClientMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
