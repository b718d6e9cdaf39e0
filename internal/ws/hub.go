package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/metrics"
)

// Hub is the in-process connection registry. It maps each user to the set of
// their live connections and is the fan-out side of the gateway: the
// messaging service reaches it only through the narrow EmitToUser surface,
// never through connection internals.
type Hub struct {
	mu     sync.RWMutex
	byUser map[string]map[*Client]struct{}
	log    *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		byUser: make(map[string]map[*Client]struct{}),
		log:    log,
	}
}

// Register adds the connection and reports whether it is the user's first
// live one (an offline→online transition).
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.byUser[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.byUser[c.UserID] = set
	}
	set[c] = struct{}{}
	metrics.ActiveConnections.Inc()
	return len(set) == 1
}

// Unregister removes the connection and reports whether it was the user's
// last one.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.byUser[c.UserID]
	if !ok {
		return true
	}
	if _, registered := set[c]; registered {
		delete(set, c)
		metrics.ActiveConnections.Dec()
	}
	if len(set) == 0 {
		delete(h.byUser, c.UserID)
		return true
	}
	return false
}

// ConnectionCount reports the number of live connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// EmitToUser delivers an event to every channel bound to the user. A user
// with no live channel is a silent no-op: durability of the underlying fact
// is the durable store's job, not the notifier's.
func (h *Hub) EmitToUser(userID, event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		h.log.Warnw("encode event", "event", event, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		c.enqueue(data)
	}
}

// EmitToOthers delivers an event to every live connection except those
// belonging to userID.
func (h *Hub) EmitToOthers(userID, event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		h.log.Warnw("encode event", "event", event, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for uid, set := range h.byUser {
		if uid == userID {
			continue
		}
		for c := range set {
			c.enqueue(data)
		}
	}
}
