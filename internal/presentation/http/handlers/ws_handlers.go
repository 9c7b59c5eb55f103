package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dailymirror/mirror-go/internal/infrastructure/messaging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
)

// WSHandlers upgrades in-app notification connections into the hub.
type WSHandlers struct {
	hub    *messaging.Hub
	logger *logging.ChanneledLogger
}

// NewWSHandlers creates websocket handlers with injected dependencies.
func NewWSHandlers(hub *messaging.Hub, logger *logging.ChanneledLogger) *WSHandlers {
	return &WSHandlers{
		hub:    hub,
		logger: logger,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement happens in the CORS layer; the webview origin set
	// is not meaningful for websocket upgrades from the native shell.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Connect handles GET /ws/notifications/:userId
func (h *WSHandlers) Connect(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user ID is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Notify().Warn("Websocket upgrade failed", "userId", userID, "error", err.Error())
		return
	}

	remove := h.hub.AddConnection(userID, conn)
	defer remove()

	// Read loop exists only to observe the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
