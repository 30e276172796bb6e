package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	eventTaskCreated   = "task_created"
	eventTaskUpdated   = "task_updated"
	eventTaskCompleted = "task_completed"
	eventTaskDeleted   = "task_deleted"

	wsWriteTimeout = 5 * time.Second
)

type taskEvent struct {
	Event  string        `json:"event"`
	TaskID string        `json:"task_id"`
	Task   *taskDocument `json:"task,omitempty"`
}

// WSHub fans task events out to every open connection of the owning user.
type WSHub struct {
	connections map[string]map[*websocket.Conn]bool
	mutex       sync.Mutex
	log         *logrus.Logger
}

func NewWSHub(log *logrus.Logger) *WSHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHub{connections: make(map[string]map[*websocket.Conn]bool), log: log}
}

func (h *WSHub) add(userID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.connections[userID] == nil {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	h.connections[userID][conn] = true
}

func (h *WSHub) remove(userID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	conns := h.connections[userID]
	if conns == nil {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
}

// Connections reports how many sockets the user has open.
func (h *WSHub) Connections(userID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.connections[userID])
}

// Broadcast sends an event to all connections of a user. Connections that
// fail to accept the write are dropped.
func (h *WSHub) Broadcast(userID, event string, task *models.Task) {
	msg := taskEvent{Event: event, TaskID: task.ID}
	if event != eventTaskDeleted {
		doc := toTaskDocument(task)
		msg.Task = &doc
	}
	message, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("marshal task event")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.connections[userID] {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.WithError(err).WithField("user_id", userID).Warn("websocket write failed")
			delete(h.connections[userID], conn)
			conn.Close()
		}
	}
}

func (h *Handler) broadcast(userID, event string, task *models.Task) {
	if h.WSHub != nil {
		h.WSHub.Broadcast(userID, event, task)
	}
}

// GET /api/ws
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.allow(r) {
		sendError(w, "Too many WebSocket connection attempts", http.StatusTooManyRequests)
		return
	}
	if h.WSHub == nil {
		sendError(w, "Live updates are disabled", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger().WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.WSHub.add(userID, conn)
	h.logger().WithField("user_id", userID).Debug("websocket connected")

	// Client messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.WSHub.remove(userID, conn)
			conn.Close()
			h.logger().WithField("user_id", userID).Debug("websocket disconnected")
			return
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	return originAllowed(h.AllowedOrigins, r.Header.Get("Origin"))
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), origin) {
			return true
		}
	}
	return false
}
