// internal/realtime/hub.go
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/data"
)

// Hub routes realtime events to per-user sessions. A user has at most
// one live connection: registering a new one evicts the old. Lookup is
// bidirectional, user to connection and connection to user.
type Hub struct {
	mu          sync.RWMutex
	byUser      map[int]*Client
	byConn      map[string]int
	graceTimers map[int]*time.Timer

	presence *Presence
	grace    time.Duration
	publish  func(topic, payload string) error
	log      *zap.Logger
}

func NewHub(timeout, grace time.Duration, log *zap.Logger) *Hub {
	h := &Hub{
		byUser:      make(map[int]*Client),
		byConn:      make(map[string]int),
		graceTimers: make(map[int]*time.Timer),
		grace:       grace,
		log:         log,
	}
	h.presence = NewPresence(timeout, h.notifyStatus, log)
	return h
}

// Presence exposes the liveness tracker backing this hub.
func (h *Hub) Presence() *Presence { return h.presence }

// SetPublisher wires the outbound pub/sub transport used to forward
// device commands.
func (h *Hub) SetPublisher(publish func(topic, payload string) error) {
	h.publish = publish
}

// Register establishes the session for userID, evicting any previous
// connection, and confirms it to the client. A pending disconnect grace
// timer for the user is cancelled: this is the reconnect case.
func (h *Hub) Register(userID int, client *Client) {
	h.mu.Lock()
	if prev, ok := h.byUser[userID]; ok {
		delete(h.byConn, prev.ID)
		// Closing the socket lets the old pumps wind down on their own;
		// the Send channel stays open so in-flight sends cannot panic.
		prev.close()
	}
	h.byUser[userID] = client
	h.byConn[client.ID] = userID
	if timer, ok := h.graceTimers[userID]; ok {
		timer.Stop()
		delete(h.graceTimers, userID)
	}
	h.mu.Unlock()

	h.log.Info("realtime session registered",
		zap.Int("user_id", userID), zap.String("connection_id", client.ID))

	h.SendToUser(userID, data.EventUserConfirmed, map[string]any{"user_id": userID})
	h.presence.Touch(userID)
}

// SendToUser delivers one event to the user's live connection. Returns
// false, without error, when the user has no session or the session's
// buffer is full; delivery is best effort.
func (h *Hub) SendToUser(userID int, event string, payload any) bool {
	h.mu.RLock()
	client, ok := h.byUser[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	raw, err := json.Marshal(map[string]any{"type": event, "payload": payload})
	if err != nil {
		h.log.Error("marshalling realtime event", zap.String("event", event), zap.Error(err))
		return false
	}

	select {
	case client.Send <- raw:
		return true
	default:
		h.log.Warn("realtime send buffer full, dropping event",
			zap.Int("user_id", userID), zap.String("event", event))
		return false
	}
}

// Disconnect removes the connection mapping immediately but defers the
// liveness removal by the grace period, so a page reload does not mark
// the user inactive and drop their sensor data.
func (h *Hub) Disconnect(client *Client) {
	h.mu.Lock()
	userID, ok := h.byConn[client.ID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.byConn, client.ID)
	if current, exists := h.byUser[userID]; exists && current == client {
		delete(h.byUser, userID)
	}
	if timer, exists := h.graceTimers[userID]; exists {
		timer.Stop()
	}
	h.graceTimers[userID] = time.AfterFunc(h.grace, func() {
		h.mu.Lock()
		delete(h.graceTimers, userID)
		_, reconnected := h.byUser[userID]
		h.mu.Unlock()
		if !reconnected {
			h.presence.Deactivate(userID, "disconnect")
		}
	})
	h.mu.Unlock()

	h.log.Info("realtime session disconnected",
		zap.Int("user_id", userID), zap.String("connection_id", client.ID))
}

// UserFor returns the user owning a connection, if any.
func (h *Hub) UserFor(connectionID string) (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	userID, ok := h.byConn[connectionID]
	return userID, ok
}

// ForwardCommand pushes a device-control command straight to the pub/sub
// transport. The payload is not interpreted here.
func (h *Hub) ForwardCommand(topic, payload string) {
	if h.publish == nil {
		h.log.Warn("device command dropped, no publisher wired", zap.String("topic", topic))
		return
	}
	if err := h.publish(topic, payload); err != nil {
		h.log.Warn("device command publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (h *Hub) notifyStatus(userID int, active bool) {
	h.SendToUser(userID, data.EventUserStatusChange, map[string]any{
		"user_id": userID,
		"active":  active,
	})
}
