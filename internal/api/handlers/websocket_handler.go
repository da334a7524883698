package handlers

import (
	"log/slog"

	"github.com/TridentTech8969/ASA/internal/websocket"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocketHandler upgrades dashboard connections and joins them to the hub.
type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler accepting the given origins.
func NewWebSocketHandler(hub *websocket.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:      hub,
		upgrader: websocket.NewSecureUpgrader(allowedOrigins, logger),
		logger:   logger,
	}
}

// Connect handles GET /hubs/email
func (h *WebSocketHandler) Connect(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.Debug("websocket upgrade failed",
			slog.String("remote_ip", c.RealIP()),
			slog.Any("error", err))
		return nil
	}

	client := websocket.NewClient(h.hub, conn, h.logger)
	if !h.hub.Register(client) {
		conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump()
	return nil
}
