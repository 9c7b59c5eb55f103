// Package messaging provides the delivery adapters: the in-app websocket
// hub, the push-notification platform client, and the transactional email
// sender.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
)

// Hub manages per-user websocket connections for in-app notification
// delivery. A user may hold several connections (phone plus tablet).
type Hub struct {
	userConns map[string][]*client
	mu        sync.Mutex
	logger    *logging.ChanneledLogger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

var (
	globalHub *Hub
	once      sync.Once
)

// NewHub creates the singleton Hub instance.
func NewHub(logger *logging.ChanneledLogger) *Hub {
	once.Do(func() {
		globalHub = &Hub{
			userConns: make(map[string][]*client),
			logger:    logger,
		}
	})
	return globalHub
}

// AddConnection registers a websocket connection for a user and starts its
// write pump. The returned remove func must be called when the connection
// closes.
func (h *Hub) AddConnection(userID string, conn *websocket.Conn) func() {
	c := &client{conn: conn, send: make(chan []byte, 10)}

	h.mu.Lock()
	h.userConns[userID] = append(h.userConns[userID], c)
	h.mu.Unlock()

	go c.writePump()

	h.logger.Notify().Debug("In-app client connected", "userId", userID)
	return func() { h.removeConnection(userID, c) }
}

func (h *Hub) removeConnection(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.userConns[userID]
	kept := make([]*client, 0, len(conns))
	for _, existing := range conns {
		if existing != c {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(h.userConns, userID)
	} else {
		h.userConns[userID] = kept
	}
	close(c.send)

	h.logger.Notify().Debug("In-app client disconnected", "userId", userID)
}

// ConnectionCount returns the number of live connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.userConns[userID])
}

// Notify delivers a payload to every live connection for the user. It is the
// in-app fallback path when platform push fails, so having no connection is
// an error the caller can park on.
func (h *Hub) Notify(userID string, payload map[string]string) error {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Notify().Error("Panic recovered in Notify", "error", r, "userId", userID)
		}
	}()

	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling in-app payload: %w", err)
	}

	h.mu.Lock()
	conns := h.userConns[userID]
	delivered := 0
	for _, c := range conns {
		select {
		case c.send <- message:
			delivered++
		default:
			h.logger.Notify().Warn("In-app channel full, message dropped", "userId", userID)
		}
	}
	h.mu.Unlock()

	if delivered == 0 {
		return fmt.Errorf("no live in-app connection for user %s", userID)
	}
	return nil
}

func (c *client) writePump() {
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}
