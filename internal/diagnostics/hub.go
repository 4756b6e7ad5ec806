// Package diagnostics exposes a per-session, read-only status feed over
// WebSocket: a debugging surface, never a control channel. Adapted from
// the teacher's websocket/websocket.go chat-room Hub (Rooms, Register,
// Unregister, Broadcast channels, ReadPump/WritePump), repurposed from
// broadcasting chat messages to broadcasting pipeline stage snapshots.
package diagnostics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mycrl/mirror/internal/xlog"
)

// Snapshot is one point-in-time status report for a session, broadcast to
// every connected observer.
type Snapshot struct {
	SessionID      string         `json:"session_id"`
	Role           string         `json:"role"`
	State          string         `json:"state"`
	QueueDepths    map[string]int `json:"queue_depths"`
	DroppedCounts  map[string]int `json:"dropped_counts"`
	Timestamp      int64          `json:"timestamp"`
}

// Hub fans out Snapshots to every WebSocket client registered for a given
// session ID.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*client]bool
	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan Snapshot
}

// NewHub constructs an empty diagnostics Hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish broadcasts snap to every observer registered for snap.SessionID.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sessions[snap.SessionID] {
		select {
		case c.send <- snap:
		default:
			// slow observer: drop rather than block publishing.
		}
	}
}

// ServeHTTP upgrades the connection and registers it as an observer for
// the session ID named by the "session" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := xlog.For("diagnostics")
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan Snapshot, 16)}

	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*client]bool)
	}
	h.sessions[sessionID][c] = true
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(sessionID, c)
}

func (h *Hub) readPump(sessionID string, c *client) {
	defer h.unregister(sessionID, c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case snap, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			b, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.sessions[sessionID]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.sessions, sessionID)
		}
	}
}
